// Copyright 2025 James Ross
package redisbackend

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

// maxFilterLookaheadTicks bounds how many candidate ticks
// filteredSchedule will walk past before giving up and returning the
// zero time, guarding against a filter combination (e.g. skipWeekends
// plus every weekday in onlyWeekdays) that can never be satisfied.
const maxFilterLookaheadTicks = 10000

// filteredSchedule wraps a parsed cron.Schedule and advances past any
// tick excluded by the advanced schedule rules of spec §4.8/§6.2:
// skipWeekends, business-hours windows, an explicit weekday allowlist,
// and specific skipped calendar dates.
type filteredSchedule struct {
	inner cron.Schedule
	def   backend.CronDefinition
}

func (f filteredSchedule) Next(t time.Time) time.Time {
	candidate := t
	for i := 0; i < maxFilterLookaheadTicks; i++ {
		candidate = f.inner.Next(candidate)
		if candidate.IsZero() {
			return candidate
		}
		if f.passes(candidate) {
			return candidate
		}
	}
	return time.Time{}
}

func (f filteredSchedule) passes(t time.Time) bool {
	if f.def.SkipWeekends && isWeekend(t) {
		return false
	}
	if len(f.def.OnlyWeekdays) > 0 && !weekdayIn(t, f.def.OnlyWeekdays) {
		return false
	}
	if f.def.OnlyBusinessHours != nil && !withinBusinessHours(t, *f.def.OnlyBusinessHours) {
		return false
	}
	for _, skip := range f.def.SkipDates {
		if sameDate(t, skip) {
			return false
		}
	}
	return true
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func weekdayIn(t time.Time, allowed []int) bool {
	wd := int(t.Weekday())
	for _, a := range allowed {
		if a == wd {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func withinBusinessHours(t time.Time, bh backend.BusinessHours) bool {
	loc := time.Local
	if bh.Timezone != "" {
		if l, err := time.LoadLocation(bh.Timezone); err == nil {
			loc = l
		}
	}
	local := t.In(loc)
	start, err := time.Parse("15:04", bh.Start)
	if err != nil {
		return true
	}
	end, err := time.Parse("15:04", bh.End)
	if err != nil {
		return true
	}
	minuteOfDay := local.Hour()*60 + local.Minute()
	startMinute := start.Hour()*60 + start.Minute()
	endMinute := end.Hour()*60 + end.Minute()
	return minuteOfDay >= startMinute && minuteOfDay <= endMinute
}
