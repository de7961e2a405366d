package format

import (
	"fmt"
	"regexp"
	"time"
)

// CurrentYearMonth returns the current local year and month as "YYYY-MM".
func CurrentYearMonth() string {
	return YearMonth(time.Now())
}

// YearMonth formats t as "YYYY-MM".
func YearMonth(t time.Time) string {
	return fmt.Sprintf("%d-%02d", t.Year(), int(t.Month()))
}

var xmlDateTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T(\d{2}:\d{2}:\d{2})`)

// ExtractDate turns an XML date time ("2017-03-15T10:20:30.000+01:00") into
// "2017-03-15 10:20:30". Other values are returned unchanged.
func ExtractDate(xmlDatetime string) string {
	m := xmlDateTime.FindStringSubmatch(xmlDatetime)
	if m == nil {
		return xmlDatetime
	}
	return m[1] + " " + m[2]
}
