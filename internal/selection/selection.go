// Package selection models the stepped option picker: expiration, then
// strike, then right, then a date window. Each step depends on the one
// before it, and changing a step clears everything after it.
package selection

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"optiscope/internal/domain"
	"optiscope/internal/normalize"
)

// ErrPrerequisite is returned when a field is set before the field it
// depends on.
var ErrPrerequisite = errors.New("prerequisite selection missing")

// ErrInvalidValue is returned when a value cannot be parsed for its field.
var ErrInvalidValue = errors.New("invalid selection value")

// Field is one selectable input, in dependency order.
type Field int

const (
	FieldExpiration Field = iota
	FieldStrike
	FieldRight
	FieldStartDate
	FieldEndDate
)

func (f Field) String() string {
	switch f {
	case FieldExpiration:
		return "expiration"
	case FieldStrike:
		return "strike"
	case FieldRight:
		return "right"
	case FieldStartDate:
		return "start_date"
	case FieldEndDate:
		return "end_date"
	default:
		return "Field(" + strconv.Itoa(int(f)) + ")"
	}
}

// prerequisite returns the field that must be set before f.
func (f Field) prerequisite() (Field, bool) {
	switch f {
	case FieldStrike:
		return FieldExpiration, true
	case FieldRight:
		return FieldStrike, true
	case FieldStartDate, FieldEndDate:
		return FieldRight, true
	default:
		return 0, false
	}
}

// Stage is how far a State has progressed.
type Stage int

const (
	StageNone Stage = iota
	StageExpiration
	StageStrike
	StageRight
	StageDates
)

func (s Stage) String() string {
	return [...]string{"none", "expiration", "strike", "right", "dates"}[s]
}

// State is an immutable selection. Use Select to derive a new one.
type State struct {
	Expiration string // YYYY-MM-DD
	Strike     float64
	HasStrike  bool
	Right      domain.Right
	StartDate  string // YYYY-MM-DD
	EndDate    string // YYYY-MM-DD
	Generation uint64
}

func (s State) isSet(f Field) bool {
	switch f {
	case FieldExpiration:
		return s.Expiration != ""
	case FieldStrike:
		return s.HasStrike
	case FieldRight:
		return s.Right != ""
	case FieldStartDate:
		return s.StartDate != ""
	case FieldEndDate:
		return s.EndDate != ""
	}
	return false
}

// Stage reports the last step that is complete. Dates count only when both
// bounds are set.
func (s State) Stage() Stage {
	switch {
	case !s.isSet(FieldExpiration):
		return StageNone
	case !s.isSet(FieldStrike):
		return StageExpiration
	case !s.isSet(FieldRight):
		return StageStrike
	case !s.isSet(FieldStartDate) || !s.isSet(FieldEndDate):
		return StageRight
	default:
		return StageDates
	}
}

// Ready reports whether every field is set and a price may be fetched.
func (s State) Ready() bool { return s.Stage() == StageDates }

// Request returns the EOD request for a ready state.
func (s State) Request(symbol string) (domain.EODRequest, error) {
	if !s.Ready() {
		return domain.EODRequest{}, fmt.Errorf("%w: stage %s", ErrPrerequisite, s.Stage())
	}
	return domain.EODRequest{
		Root:       symbol,
		Expiration: s.Expiration,
		Strike:     s.Strike,
		Right:      s.Right,
		StartDate:  s.StartDate,
		EndDate:    s.EndDate,
	}, nil
}

// Select sets field to value and clears every field after it. An empty
// value clears field as well. Each successful call advances Generation.
func Select(s State, field Field, value string) (State, error) {
	if pre, ok := field.prerequisite(); ok && value != "" && !s.isSet(pre) {
		return s, fmt.Errorf("%w: %s needs %s", ErrPrerequisite, field, pre)
	}

	next := s
	switch field {
	case FieldExpiration:
		next.Expiration = ""
		if value != "" {
			d, err := parseDate(value)
			if err != nil {
				return s, err
			}
			next.Expiration = d
		}
		next.clearAfter(FieldExpiration)
	case FieldStrike:
		next.Strike, next.HasStrike = 0, false
		if value != "" {
			k, err := strconv.ParseFloat(value, 64)
			if err != nil || k <= 0 {
				return s, fmt.Errorf("%w: strike %q", ErrInvalidValue, value)
			}
			next.Strike, next.HasStrike = k, true
		}
		next.clearAfter(FieldStrike)
	case FieldRight:
		next.Right = ""
		if value != "" {
			next.Right = domain.ParseRight(value)
		}
		next.clearAfter(FieldRight)
	case FieldStartDate, FieldEndDate:
		d := ""
		if value != "" {
			var err error
			if d, err = parseDate(value); err != nil {
				return s, err
			}
		}
		if field == FieldStartDate {
			next.StartDate = d
		} else {
			next.EndDate = d
		}
	default:
		return s, fmt.Errorf("%w: unknown field %d", ErrInvalidValue, int(field))
	}

	next.Generation = s.Generation + 1
	return next, nil
}

// SelectDates sets both bounds at once. A missing bound takes its value from
// DefaultDates.
func SelectDates(s State, start, end string, now time.Time) (State, error) {
	defStart, defEnd := DefaultDates(now)
	if start == "" && end == "" {
		return s, fmt.Errorf("%w: at least one date is required", ErrInvalidValue)
	}
	if start == "" {
		start = defStart
	}
	if end == "" {
		end = defEnd
	}

	next, err := Select(s, FieldStartDate, start)
	if err != nil {
		return s, err
	}
	next, err = Select(next, FieldEndDate, end)
	if err != nil {
		return s, err
	}
	next.Generation = s.Generation + 1
	return next, nil
}

// DefaultDates returns the window used when only one bound is chosen: the
// thirty days ending today.
func DefaultDates(now time.Time) (start, end string) {
	return now.AddDate(0, 0, -30).Format(time.DateOnly), now.Format(time.DateOnly)
}

func (s *State) clearAfter(f Field) {
	if f < FieldStrike {
		s.Strike, s.HasStrike = 0, false
	}
	if f < FieldRight {
		s.Right = ""
	}
	if f < FieldStartDate {
		s.StartDate, s.EndDate = "", ""
	}
}

func parseDate(v string) (string, error) {
	iso := normalize.InsertDashes(v)
	if _, err := time.Parse(time.DateOnly, iso); err != nil {
		return "", fmt.Errorf("%w: date %q", ErrInvalidValue, v)
	}
	return iso, nil
}
