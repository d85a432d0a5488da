package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/timrodz/blog/internal/xerrors"
)

// InvalidDate is what FormatDate renders for an unparseable date.
const InvalidDate = "Invalid Date"

const longDateLayout = "January 2, 2006"

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339Nano,
}

// ParseDate parses a header date. A date without a time component is
// midnight in loc; date-times without an offset are also read in loc.
// A nil loc means time.Local.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "T") {
		t, err := time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			return time.Time{}, xerrors.Newf("invalid date %q", s)
		}
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, xerrors.Newf("invalid date %q", s)
}

// DateFormatter renders header dates for display. A zero DateFormatter uses
// the wall clock and time.Local.
type DateFormatter struct {
	Now      func() time.Time
	Location *time.Location
}

func (f DateFormatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f DateFormatter) now() time.Time {
	if f.Now == nil {
		return time.Now().In(f.loc())
	}
	return f.Now().In(f.loc())
}

// FormatDate renders date in long form ("January 2, 2006"), followed by
// " (<relative>)" when includeRelative is set. A date that does not parse
// renders as InvalidDate.
func (f DateFormatter) FormatDate(date string, includeRelative bool) string {
	t, err := ParseDate(date, f.loc())
	if err != nil {
		return InvalidDate
	}
	return f.FormatTime(t, includeRelative)
}

// FormatTime is FormatDate for an already parsed time.
func (f DateFormatter) FormatTime(t time.Time, includeRelative bool) string {
	if t.IsZero() {
		return InvalidDate
	}
	full := t.In(f.loc()).Format(longDateLayout)
	if !includeRelative {
		return full
	}
	return fmt.Sprintf("%s (%s)", full, f.Relative(t))
}

// Relative describes how long ago t was. Year, month and day numbers are
// compared independently and the first positive difference wins, so the
// result is coarse across month and year boundaries: Dec 31 to Jan 1 is
// "1y ago".
func (f DateFormatter) Relative(t time.Time) string {
	now := f.now()
	t = t.In(f.loc())

	if years := now.Year() - t.Year(); years > 0 {
		return fmt.Sprintf("%dy ago", years)
	}
	if months := int(now.Month()) - int(t.Month()); months > 0 {
		return fmt.Sprintf("%dmo ago", months)
	}
	if days := now.Day() - t.Day(); days > 0 {
		return fmt.Sprintf("%dd ago", days)
	}
	return "Today"
}
