package service

import "time"

// Clock supplies the current instant. Services take it explicitly so that
// validity checks are deterministic under test.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
