package wakeup

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultHour, defaultMinute = 2, 0

// parseDailySchedule reads spec §4.9's "M H * * *" schedule string down to
// the hour/minute it actually varies — the day-of-month/month/day-of-week
// fields are always "*" for a once-daily job, so a full cron grammar buys
// nothing here.
func parseDailySchedule(schedule string) (hour, minute int, err error) {
	if strings.TrimSpace(schedule) == "" {
		return defaultHour, defaultMinute, nil
	}

	fields := strings.Fields(schedule)
	if len(fields) != 5 || fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return 0, 0, fmt.Errorf("wakeup: schedule %q must be \"M H * * *\"", schedule)
	}

	minute, err = strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("wakeup: invalid minute field in schedule %q", schedule)
	}

	hour, err = strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("wakeup: invalid hour field in schedule %q", schedule)
	}

	return hour, minute, nil
}

// nextRun returns the next occurrence of hour:minute local time strictly
// after now, rolling over to tomorrow if today's is at or before now.
func nextRun(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	return candidate
}
