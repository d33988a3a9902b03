package mirror

import "time"

// SetLockTimeoutForTest shortens how long Sync waits for the file lock.
func SetLockTimeoutForTest(m *Mirror, d time.Duration) {
	m.lockTimeout = d
}
