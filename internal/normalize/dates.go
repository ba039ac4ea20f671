package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dotNetDate = regexp.MustCompile(`/Date\((\d+)\)/`)

const slashLayout = "2006/01/02 15:04:05"

// ParseDotNetDate parses the "/Date(<ms>)/" encoding into a UTC instant
func ParseDotNetDate(s string) (time.Time, bool) {
	m := dotNetDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// ParseSlashDate parses "YYYY/MM/DD HH:mm:ss", interpreted in UTC
func ParseSlashDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{slashLayout, "2006/01/02 15:04", "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
