package validate

// MockDeviceExists replaces the host existence check for the duration
// of a test and returns a restore function.
func MockDeviceExists(f func(string) bool) (restore func()) {
	old := deviceExists
	deviceExists = f
	return func() {
		deviceExists = old
	}
}
