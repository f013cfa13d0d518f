package entity

import (
	"fmt"
	"time"

	"github.com/sangkips/pos-engine/internal/domain/errs"
)

// Window is a half-open business-day interval [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow normalises both bounds to UTC at microsecond precision, the finest
// precision every supported database keeps
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{
		Start: start.UTC().Truncate(time.Microsecond),
		End:   end.UTC().Truncate(time.Microsecond),
	}
	if start.IsZero() || end.IsZero() {
		return Window{}, fmt.Errorf("%w: start and end are required", errs.ErrInvalidWindow)
	}
	if !w.Start.Before(w.End) {
		return Window{}, fmt.Errorf("%w: start must be before end", errs.ErrInvalidWindow)
	}
	return w, nil
}

// BusinessDay returns the window that opens on date at dayStart in loc and
// lasts 24 hours
func BusinessDay(date time.Time, loc *time.Location, dayStart time.Duration) Window {
	d := date.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).Add(dayStart)
	end := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc).Add(dayStart)
	return Window{Start: start.UTC(), End: end.UTC()}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether the two windows share any instant
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

func (w Window) String() string {
	return w.Start.Format(time.RFC3339) + "/" + w.End.Format(time.RFC3339)
}
