package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for pack range bounds.
const DateLayout = "2006-01-02"

// PackMode decides what generate_pack does when a pack already exists.
type PackMode string

// Possible pack modes
const (
	PackModeSkip      PackMode = "skip"
	PackModeOverwrite PackMode = "overwrite"
)

// Valid reports whether m is a known mode.
func (m PackMode) Valid() bool {
	return m == PackModeSkip || m == PackModeOverwrite
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses two YYYY-MM-DD dates into a DateRange.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: range start %q", ErrInvalidDateRange, start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: range end %q", ErrInvalidDateRange, end)
	}
	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate rejects ranges that end before they start.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange,
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return nil
}

// Until returns the exclusive upper bound: midnight after the last day.
func (r DateRange) Until() time.Time {
	return r.End.AddDate(0, 0, 1)
}

// String formats the range as start..end.
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Pack is a generated digest of an owner's notes over a date range.
// A pack is unique per (owner, range).
type Pack struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Range     DateRange `json:"-"`
	Document  string    `json:"document"`
	NoteCount int       `json:"note_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
