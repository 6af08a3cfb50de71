package dashboard

import (
	"alcyxob/fitness-dashboard/internal/metrics"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is shown for missing values.
const Placeholder = "—"

// Pending is shown for counts that are still loading.
const Pending = "…"

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatNumber renders v with en-US grouping and at most one fraction digit.
func FormatNumber(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(1)))
}

// FormatCount renders an integer count with en-US grouping.
func FormatCount(n int) string {
	return printer.Sprint(number.Decimal(n))
}

// FormatDate renders a gateway timestamp as M/D/YYYY in the timestamp's own
// offset, or the placeholder when it is missing or unparseable.
func FormatDate(raw *string) string {
	if raw == nil || *raw == "" {
		return Placeholder
	}
	t, ok := metrics.ParseTimestamp(*raw)
	if !ok {
		return Placeholder
	}
	return t.Format("1/2/2006")
}

// FormatLoad renders a weight the way it was entered, or the placeholder for
// nil or zero.
func FormatLoad(w *float64) string {
	if w == nil || *w == 0 {
		return Placeholder
	}
	return strconv.FormatFloat(*w, 'f', -1, 64)
}

// FormatDuration renders minutes as "N min", or the placeholder.
func FormatDuration(minutes *int) string {
	if minutes == nil || *minutes == 0 {
		return Placeholder
	}
	return strconv.Itoa(*minutes) + " min"
}

// DayLabel returns the weekday name of a YYYY-MM-DD date, or "" when the
// date does not parse.
func DayLabel(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}
