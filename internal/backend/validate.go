// Copyright 2025 James Ross
package backend

import (
	"time"

	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

// ValidateScheduleParams enforces the two schedule-time invariants of
// spec §6.2 shared by both backends: "at" must be in the future, and
// "cron"/"every" are mutually exclusive.
func ValidateScheduleParams(params ScheduleParams, now time.Time) error {
	if params.At != nil && !params.At.After(now) {
		return ignitererr.New(ignitererr.CodeInvalidSchedule, "at must be in the future")
	}
	if params.Cron != "" && params.Every > 0 {
		return ignitererr.New(ignitererr.CodeInvalidSchedule, "cron and every are mutually exclusive")
	}
	return nil
}
