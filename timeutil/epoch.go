// Package timeutil converts broker epoch timestamps.
package timeutil

import "time"

// DateTimeLayout is the layout EpochToUTC renders
const DateTimeLayout = "2006-01-02 15:04:05"

// EpochToUTC formats epoch seconds as a UTC date-time string
func EpochToUTC(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(DateTimeLayout)
}

// EpochToDate returns the UTC calendar date of epoch seconds, at midnight UTC
func EpochToDate(epoch int64) time.Time {
	t := time.Unix(epoch, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
