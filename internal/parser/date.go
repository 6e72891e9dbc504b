package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseDate parses s as a calendar date using generic date parsing.
// ISO-8601 dates and timestamps take a fast path; everything else goes
// through dateparse.
func ParseDate(s string) (t time.Time, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if t, ok := fastISODate(s); ok {
		return t, nil
	}

	// dateparse has panicked on malformed input in the past.
	defer func() {
		if r := recover(); r != nil {
			t, err = time.Time{}, fmt.Errorf("unparseable date %q: %v", s, r)
		}
	}()

	return dateparse.ParseAny(s)
}

// IsDate reports whether s parses as a valid calendar date.
func IsDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// fastISODate parses "YYYY-MM-DD" optionally followed by " HH:MM:SS[.fff]" or
// "THH:MM:SS[.fff]" using manual parsing. Anything else, including a trailing
// zone offset, reports false so the caller can fall back.
func fastISODate(s string) (time.Time, bool) {
	if len(s) != 10 && len(s) < 19 {
		return time.Time{}, false
	}
	if s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}

	year := parseInt4(s[0:4])
	month := parseInt2(s[5:7])
	day := parseInt2(s[8:10])
	if year < 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	hour, min, sec, nsec := 0, 0, 0, 0
	if len(s) > 10 {
		if (s[10] != ' ' && s[10] != 'T') || s[13] != ':' || s[16] != ':' {
			return time.Time{}, false
		}
		hour = parseInt2(s[11:13])
		min = parseInt2(s[14:16])
		sec = parseInt2(s[17:19])
		if hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
			return time.Time{}, false
		}

		if len(s) > 19 {
			if s[19] != '.' || len(s) == 20 {
				return time.Time{}, false
			}
			frac := s[20:]
			fracLen := len(frac)
			if fracLen > 9 {
				return time.Time{}, false
			}
			nsec = parseIntN(frac, fracLen)
			if nsec < 0 {
				return time.Time{}, false
			}
			for i := fracLen; i < 9; i++ {
				nsec *= 10
			}
		}
	}

	t := time.Date(year, time.Month(month), day, hour, min, sec, nsec, time.UTC)
	// time.Date normalizes Feb 30 into March; reject such dates.
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// parseInt2 parses a 2-digit decimal string. Returns -1 on error.
func parseInt2(s string) int {
	if len(s) != 2 {
		return -1
	}
	d1, d2 := s[0]-'0', s[1]-'0'
	if d1 > 9 || d2 > 9 {
		return -1
	}
	return int(d1)*10 + int(d2)
}

// parseInt4 parses a 4-digit decimal string. Returns -1 on error.
func parseInt4(s string) int {
	if len(s) != 4 {
		return -1
	}
	d1, d2, d3, d4 := s[0]-'0', s[1]-'0', s[2]-'0', s[3]-'0'
	if d1 > 9 || d2 > 9 || d3 > 9 || d4 > 9 {
		return -1
	}
	return int(d1)*1000 + int(d2)*100 + int(d3)*10 + int(d4)
}

// parseIntN parses an n-digit decimal string. Returns -1 on error.
func parseIntN(s string, n int) int {
	result := 0
	for i := 0; i < n; i++ {
		d := s[i] - '0'
		if d > 9 {
			return -1
		}
		result = result*10 + int(d)
	}
	return result
}
