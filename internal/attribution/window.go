package attribution

import (
	"fmt"
	"time"
)

// Window is the inclusive [From, To] range over which events and orders
// are aggregated.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// InvalidWindowError reports a date bound that could not be parsed.
// Malformed bounds are rejected up front instead of being allowed to
// leak into timestamp comparisons.
type InvalidWindowError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid %s date %q: %v", e.Field, e.Value, e.Err)
}

func (e *InvalidWindowError) Unwrap() error { return e.Err }

// windowLayouts are tried in order when parsing a raw bound.
var windowLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// NormalizeWindow parses the raw from/to strings into a Window. A
// missing from defaults to the zero time (beginning of history); a
// missing to defaults to the current time. End-of-day is applied to a
// date-only upper bound so "2024-06-01".."2024-06-01" covers the whole
// day.
func NormalizeWindow(rawFrom, rawTo string) (Window, error) {
	w := Window{To: time.Now().UTC()}

	if rawFrom != "" {
		t, err := parseBound(rawFrom)
		if err != nil {
			return Window{}, &InvalidWindowError{Field: "from", Value: rawFrom, Err: err}
		}
		w.From = t
	}

	if rawTo != "" {
		t, dateOnly, err := parseBoundWithLayout(rawTo)
		if err != nil {
			return Window{}, &InvalidWindowError{Field: "to", Value: rawTo, Err: err}
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		w.To = t
	}

	if w.To.Before(w.From) {
		return Window{}, &InvalidWindowError{
			Field: "to",
			Value: rawTo,
			Err:   fmt.Errorf("to precedes from"),
		}
	}

	return w, nil
}

func parseBound(raw string) (time.Time, error) {
	t, _, err := parseBoundWithLayout(raw)
	return t, err
}

func parseBoundWithLayout(raw string) (time.Time, bool, error) {
	var lastErr error
	for _, layout := range windowLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), layout == "2006-01-02", nil
		}
		lastErr = err
	}
	return time.Time{}, false, lastErr
}
