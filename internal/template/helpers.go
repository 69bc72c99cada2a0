package template

import (
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultDateFormat is the format formatDate uses when none is given
const DefaultDateFormat = "PPp"

// dateFormats maps the date-fns tokens used in stored templates to Go layouts
var dateFormats = map[string]string{
	"P":          "01/02/2006",
	"PP":         "Jan 2, 2006",
	"PPP":        "January 2, 2006",
	"PPPP":       "Monday, January 2, 2006",
	"p":          "3:04 PM",
	"pp":         "3:04:05 PM",
	"Pp":         "01/02/2006, 3:04 PM",
	"PPp":        "Jan 2, 2006, 3:04 PM",
	"PPPp":       "January 2, 2006 at 3:04 PM",
	"yyyy-MM-dd": "2006-01-02",
	"dd/MM/yyyy": "02/01/2006",
	"HH:mm":      "15:04",
}

// parseLayouts are tried, in order, when formatDate receives a string
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006, 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// FormatDate formats t with a date-fns token or, failing that, a Go layout
func FormatDate(t time.Time, format string) string {
	if format == "" {
		format = DefaultDateFormat
	}
	if layout, ok := dateFormats[format]; ok {
		return t.Format(layout)
	}
	return t.Format(format)
}

func toTime(v interface{}) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return *d, true
	case string:
		return parseTime(d)
	case raymond.SafeString:
		return parseTime(string(d))
	default:
		return time.Time{}, false
	}
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	return raymond.Str(v)
}

// helpers returns the helper set for one render. Helper output is escaped
// here in HTML mode and left untouched in text mode.
func helpers(escapeHTML bool) map[string]interface{} {
	wrap := func(s string) raymond.SafeString {
		if escapeHTML {
			return raymond.SafeString(raymond.Escape(s))
		}
		return raymond.SafeString(s)
	}
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)

	return map[string]interface{}{
		"formatDate": func(date interface{}, options *raymond.Options) raymond.SafeString {
			t, ok := toTime(date)
			if !ok {
				return wrap(str(date))
			}
			return wrap(FormatDate(t, options.HashStr("format")))
		},
		"uppercase": func(v interface{}) raymond.SafeString {
			return wrap(upper.String(str(v)))
		},
		"lowercase": func(v interface{}) raymond.SafeString {
			return wrap(lower.String(str(v)))
		},
		"capitalize": func(v interface{}) raymond.SafeString {
			return wrap(capitalize(str(v)))
		},
	}
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(cases.Lower(language.Und).String(s))
	first := cases.Upper(language.Und).String(string(r[0]))
	return first + string(r[1:])
}
