// Package timeslot builds the bookable session grid for a day.
package timeslot

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	DayStartHour = 9
	DayEndHour   = 21
	// Interval is the slot length in minutes.
	Interval = 60
)

var (
	ErrInvalidStart    = errors.New("start time is not on the slot grid")
	ErrInvalidDuration = errors.New("duration must be a positive multiple of the slot interval")
	ErrPastClosing     = errors.New("session would end after closing time")
)

const layout = "15:04"

// Generate lists slot start times in HH:MM from startHour (inclusive) to
// endHour (exclusive), interval minutes apart.
func Generate(startHour, endHour, interval int) []string {
	if interval <= 0 || endHour <= startHour {
		return nil
	}
	slots := make([]string, 0, (endHour-startHour)*60/interval)
	for m := startHour * 60; m < endHour*60; m += interval {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// Day is the default grid: 09:00 through 20:00, hourly.
func Day() []string {
	return Generate(DayStartHour, DayEndHour, Interval)
}

// Span returns the grid slots a session starting at start occupies.
func Span(start string, durationMinutes int) ([]string, error) {
	if durationMinutes <= 0 || durationMinutes%Interval != 0 {
		return nil, ErrInvalidDuration
	}
	day := Day()
	idx := slices.Index(day, start)
	if idx < 0 {
		return nil, ErrInvalidStart
	}
	n := durationMinutes / Interval
	if idx+n > len(day) {
		return nil, ErrPastClosing
	}
	return slices.Clone(day[idx : idx+n]), nil
}

// StartsAt combines a session date and HH:MM start into a time in loc.
func StartsAt(date time.Time, start string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(layout, start)
	if err != nil {
		return time.Time{}, ErrInvalidStart
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
}
