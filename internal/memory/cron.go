package memory

import (
	"strconv"
	"strings"
	"time"
)

// matchesCron reports whether t satisfies a standard 5-field cron
// expression (minute hour day-of-month month day-of-week). There is no
// cron library directly exercised anywhere in the example pack — the
// only occurrence of robfig/cron is an indirect, unused transitive
// dependency of an unrelated workflow engine — so this matcher is a
// small hand-rolled implementation, documented in DESIGN.md.
func matchesCron(spec string, t time.Time) bool {
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return false
	}
	return matchesField(fields[0], t.Minute()) &&
		matchesField(fields[1], t.Hour()) &&
		matchesField(fields[2], t.Day()) &&
		matchesField(fields[3], int(t.Month())) &&
		matchesField(fields[4], int(t.Weekday()))
}

func matchesField(field string, value int) bool {
	for _, part := range strings.Split(field, ",") {
		if matchesPart(part, value) {
			return true
		}
	}
	return false
}

func matchesPart(part string, value int) bool {
	base, step := part, 1
	if idx := strings.Index(part, "/"); idx != -1 {
		base = part[:idx]
		if s, err := strconv.Atoi(part[idx+1:]); err == nil && s > 0 {
			step = s
		}
	}

	if base == "*" {
		return value%step == 0
	}

	if idx := strings.Index(base, "-"); idx != -1 {
		lo, errLo := strconv.Atoi(base[:idx])
		hi, errHi := strconv.Atoi(base[idx+1:])
		if errLo != nil || errHi != nil || value < lo || value > hi {
			return false
		}
		return (value-lo)%step == 0
	}

	n, err := strconv.Atoi(base)
	if err != nil {
		return false
	}
	return n == value
}
