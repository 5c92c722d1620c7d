//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/shotclip/shotclip/internal/config"
	"github.com/shotclip/shotclip/internal/daemon"
)

// memClipboard records writes instead of touching the real pasteboard, so the
// suite runs headless.
type memClipboard struct {
	mu     sync.Mutex
	writes []string
}

func (m *memClipboard) Write(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, text)
	return nil
}

func (m *memClipboard) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

var _ = Describe("Watch Pipeline", func() {
	var (
		watchDir string
		clip     *memClipboard
		cancel   context.CancelFunc
		done     chan error
	)

	startPipeline := func(cfg *config.Config) {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())

		p := daemon.NewPipeline(cfg, clip, nil, zap.NewNop())

		started := make(chan struct{})
		done = make(chan error, 1)
		go func() { done <- p.Run(ctx, func() { close(started) }) }()

		Eventually(started, 3*time.Second).Should(BeClosed())
		// Give the kernel watch a beat to establish.
		time.Sleep(150 * time.Millisecond)
	}

	newConfig := func() *config.Config {
		return &config.Config{
			WatchDir:    watchDir,
			Extensions:  map[string]struct{}{"png": {}, "jpg": {}},
			SettleDelay: 80 * time.Millisecond,
		}
	}

	BeforeEach(func() {
		var err error
		watchDir, err = os.MkdirTemp("", "shotclip-integration-*")
		Expect(err).NotTo(HaveOccurred())
		clip = &memClipboard{}
	})

	AfterEach(func() {
		if cancel != nil {
			cancel()
			Eventually(done, 3*time.Second).Should(Receive())
		}
		os.RemoveAll(watchDir)
	})

	Describe("publishing new screenshots", func() {
		It("copies the absolute path of a new screenshot to the clipboard", func() {
			startPipeline(newConfig())

			path := filepath.Join(watchDir, "Screenshot 2026-08-25.png")
			Expect(os.WriteFile(path, []byte("png bytes"), 0644)).To(Succeed())

			Eventually(clip.all, 5*time.Second, 20*time.Millisecond).
				Should(ConsistOf(path))
		})

		It("ignores files whose extension is not recognized", func() {
			startPipeline(newConfig())

			Expect(os.WriteFile(filepath.Join(watchDir, "notes.txt"), []byte("x"), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(watchDir, "clip.mov"), []byte("x"), 0644)).To(Succeed())

			Consistently(clip.all, 500*time.Millisecond, 50*time.Millisecond).
				Should(BeEmpty())
		})

		It("publishes each file in a burst exactly once", func() {
			startPipeline(newConfig())

			var want []string
			for _, name := range []string{"a.png", "b.png", "c.jpg", "d.png", "e.jpg"} {
				path := filepath.Join(watchDir, name)
				Expect(os.WriteFile(path, []byte(name), 0644)).To(Succeed())
				want = append(want, path)
			}

			Eventually(clip.all, 5*time.Second, 20*time.Millisecond).
				Should(ConsistOf(want))
			Consistently(func() int { return len(clip.all()) }, 400*time.Millisecond, 50*time.Millisecond).
				Should(Equal(len(want)))
		})
	})

	Describe("slow screenshot writes", func() {
		It("waits until writes stop before publishing", func() {
			startPipeline(newConfig())

			path := filepath.Join(watchDir, "big.png")
			f, err := os.Create(path)
			Expect(err).NotTo(HaveOccurred())

			// Keep appending at intervals shorter than the settle delay.
			for i := 0; i < 5; i++ {
				_, err = f.Write([]byte("chunk of screenshot data "))
				Expect(err).NotTo(HaveOccurred())
				time.Sleep(40 * time.Millisecond)
				Expect(clip.all()).To(BeEmpty(), "must not publish while the file is still growing")
			}
			Expect(f.Close()).To(Succeed())

			Eventually(clip.all, 5*time.Second, 20*time.Millisecond).
				Should(ConsistOf(path))
		})
	})

	Describe("watch directory disappearing", func() {
		It("resubscribes after the directory is recreated and keeps working", func() {
			startPipeline(newConfig())

			Expect(os.RemoveAll(watchDir)).To(Succeed())
			time.Sleep(300 * time.Millisecond)
			Expect(os.MkdirAll(watchDir, 0755)).To(Succeed())

			// Allow a resubscribe cycle to complete.
			time.Sleep(1 * time.Second)

			path := filepath.Join(watchDir, "after-recreate.png")
			Expect(os.WriteFile(path, []byte("png"), 0644)).To(Succeed())

			Eventually(clip.all, 10*time.Second, 50*time.Millisecond).
				Should(ContainElement(path))
		})
	})
})
