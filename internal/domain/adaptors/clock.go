package adaptors

import "time"

// Clock abstracts time so timestamps are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the current UTC time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
