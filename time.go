package identity

import "time"

// WithinWindow reports whether t falls inside the trailing window
// described by pattern, e.g. "24h".
func WithinWindow(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	threshold := time.Now().Add(-duration)
	return t.After(threshold), nil
}

// OutsideWindow is the negation of WithinWindow.
func OutsideWindow(t time.Time, pattern string) (bool, error) {
	inside, err := WithinWindow(t, pattern)
	if err != nil {
		return false, err
	}

	return !inside, nil
}
