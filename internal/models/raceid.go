package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RaceID is the composite race identifier used across the system,
// rendered as YYYYMMDD_R<meeting>_C<race> (e.g. "20240315_R1_C3").
type RaceID struct {
	Date    time.Time
	Meeting string
	Race    string
}

// ParseRaceID splits a race identifier into its date, meeting and race
// segments. Malformed identifiers fail fast with ErrMalformedRaceID.
func ParseRaceID(id string) (RaceID, error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return RaceID{}, fmt.Errorf("%w: %q (want YYYYMMDD_R<n>_C<n>)", ErrMalformedRaceID, id)
	}

	date, err := time.Parse("20060102", parts[0])
	if err != nil {
		return RaceID{}, fmt.Errorf("%w: %q: bad date segment", ErrMalformedRaceID, id)
	}

	meeting, race := parts[1], parts[2]
	if !validSegment(meeting, 'R') || !validSegment(race, 'C') {
		return RaceID{}, fmt.Errorf("%w: %q: bad meeting or race segment", ErrMalformedRaceID, id)
	}

	return RaceID{Date: date, Meeting: meeting, Race: race}, nil
}

func validSegment(s string, prefix byte) bool {
	if len(s) < 2 || s[0] != prefix {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

// String renders the identifier back into its canonical form.
func (r RaceID) String() string {
	return fmt.Sprintf("%s_%s_%s", r.Date.Format("20060102"), r.Meeting, r.Race)
}

// RaceNumber returns the race segment normalized to two digits ("C1" -> "C01").
func (r RaceID) RaceNumber() string {
	n, _ := strconv.Atoi(r.Race[1:])
	return fmt.Sprintf("C%02d", n)
}
