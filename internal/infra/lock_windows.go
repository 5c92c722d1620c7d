//go:build windows

package infra

// lockFile is a no-op on Windows; the atomic rename in the registry is the
// real consistency guarantee, the flock on unix only narrows the
// read-modify-write window.
func lockFile(path string) (func(), error) {
	return func() {}, nil
}
