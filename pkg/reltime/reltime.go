// Package reltime formats timestamps as short relative phrases.
package reltime

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// band thresholds
const (
	Minute = time.Minute
	Hour   = time.Hour
	Day    = 24 * time.Hour
	Week   = 7 * Day
)

// naive timestamps (no offset) are read in the viewer's zone, as browsers do
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

var (
	supported = []language.Tag{
		language.AmericanEnglish,
		language.SimplifiedChinese,
		language.BritishEnglish,
		language.German,
		language.Japanese,
	}
	matcher = language.NewMatcher(supported)

	absLayouts = map[language.Tag]string{
		language.AmericanEnglish:   "01/02/2006, 15:04",
		language.SimplifiedChinese: "2006/01/02 15:04",
		language.BritishEnglish:    "02/01/2006, 15:04",
		language.German:            "02.01.2006, 15:04",
		language.Japanese:          "2006/01/02 15:04",
	}
)

// Zone loads an IANA zone name such as "Asia/Shanghai". Empty or unknown names yield the server zone.
func Zone(name string) *time.Location {
	if len(name) == 0 {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// Parse reads an ISO-8601 timestamp, naive ones in the server zone.
func Parse(s string) (time.Time, error) {
	return ParseIn(s, time.Local)
}

// ParseIn reads an ISO-8601 timestamp, naive ones in loc.
func ParseIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc = orLocal(loc)
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// Match picks the closest supported locale for the given tags, e.g. from Accept-Language.
func Match(tags ...language.Tag) language.Tag {
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// MatchString is Match over an Accept-Language style string. Garbage yields the default locale.
func MatchString(s string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	return Match(tags...)
}

// Absolute formats t in loc with the date layout of tag. A nil loc is the server zone.
func Absolute(t time.Time, tag language.Tag, loc *time.Location) string {
	layout, ok := absLayouts[Match(tag)]
	if !ok {
		layout = absLayouts[language.AmericanEnglish]
	}
	return t.In(orLocal(loc)).Format(layout)
}

// Format describes how long ago ts was, measured at now, for a viewer in loc.
// An empty ts yields "-"; an unparsable one is returned as is.
func Format(ts string, now time.Time, tag language.Tag, loc *time.Location) string {
	if len(strings.TrimSpace(ts)) == 0 {
		return "-"
	}
	t, err := ParseIn(ts, loc)
	if err != nil {
		return ts
	}
	return Since(t, now, tag, loc)
}

// Since classifies the age of t at now.
func Since(t, now time.Time, tag language.Tag, loc *time.Location) string {
	diff := now.Sub(t)
	switch {
	case diff < Minute:
		return "just now"
	case diff < Hour:
		return fmt.Sprintf("%d minutes ago", int64(diff/Minute))
	case diff < Day:
		return fmt.Sprintf("%d hours ago", int64(diff/Hour))
	case diff < Week:
		return fmt.Sprintf("%d days ago", int64(diff/Day))
	}
	return Absolute(t, tag, loc)
}
