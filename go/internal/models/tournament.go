package models

import (
	"time"

	"github.com/mcdev12/fileupload/go/internal/rangeset"
)

// Tournament is a named competition instance with its own roster and submission windows.
type Tournament struct {
	Name   string
	Date   time.Time
	Teams  map[Division]rangeset.Set
	Events map[Event]map[Division]TimeInterval
}

// Offers reports whether the tournament has a window for the event in division d.
func (t Tournament) Offers(ev Event, d Division) bool {
	_, ok := t.Events[ev][d]
	return ok
}

// Window returns the submission window for the event in division d.
func (t Tournament) Window(ev Event, d Division) (TimeInterval, bool) {
	ti, ok := t.Events[ev][d]
	return ti, ok
}

// HasTeam reports whether team n of division d is on the roster.
func (t Tournament) HasTeam(d Division, n int) bool {
	return t.Teams[d].Contains(n)
}
