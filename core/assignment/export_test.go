package assignment

import "time"

// SetTimeNow swaps the clock out for tests and returns a restore func.
func SetTimeNow(f func() time.Time) (restore func()) {
	orig := timeNow
	timeNow = f
	return func() { timeNow = orig }
}
