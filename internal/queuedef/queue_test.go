// Copyright 2025 James Ross
package queuedef

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

func echoHandler(_ context.Context, execCtx backend.ExecutionContext) (any, error) {
	return execCtx.Job, nil
}

func TestCreateRejectsEmptyName(t *testing.T) {
	_, err := Create("").AddJob("x", JobSpec{Handler: echoHandler}).Build()
	require.True(t, ignitererr.Is(err, ignitererr.CodeInvalidDefinition))
}

func TestAddJobRequiresHandler(t *testing.T) {
	_, err := Create("emails").AddJob("send", JobSpec{}).Build()
	require.True(t, ignitererr.Is(err, ignitererr.CodeHandlerRequired))
}

func TestAddJobRejectsDuplicateName(t *testing.T) {
	_, err := Create("emails").
		AddJob("send", JobSpec{Handler: echoHandler}).
		AddJob("send", JobSpec{Handler: echoHandler}).
		Build()
	require.True(t, ignitererr.Is(err, ignitererr.CodeDuplicateJob))
}

func TestAddJobRejectsNameCollisionWithCron(t *testing.T) {
	_, err := Create("emails").
		AddCron("nightly", CronSpec{Cron: "@daily", Handler: echoHandler}).
		AddJob("nightly", JobSpec{Handler: echoHandler}).
		Build()
	require.True(t, ignitererr.Is(err, ignitererr.CodeDuplicateJob))
}

func TestAddCronValidatesCronExpression(t *testing.T) {
	_, err := Create("emails").AddCron("nightly", CronSpec{Cron: "not a cron", Handler: echoHandler}).Build()
	require.True(t, ignitererr.Is(err, ignitererr.CodeInvalidCron))
}

func TestAddCronRequiresSchedule(t *testing.T) {
	_, err := Create("emails").AddCron("nightly", CronSpec{Handler: echoHandler}).Build()
	require.True(t, ignitererr.Is(err, ignitererr.CodeInvalidCron))
}

func TestAddCronRejectsNameCollisionWithJob(t *testing.T) {
	_, err := Create("emails").
		AddJob("send", JobSpec{Handler: echoHandler}).
		AddCron("send", CronSpec{Cron: "@daily", Handler: echoHandler}).
		Build()
	require.True(t, ignitererr.Is(err, ignitererr.CodeInvalidCron))
}

func TestBuildSucceedsWithJobsAndCrons(t *testing.T) {
	def, err := Create("emails").
		AddJob("send", JobSpec{Handler: echoHandler, Attempts: 3}).
		AddCron("nightly", CronSpec{Cron: "@daily", Handler: echoHandler}).
		Build()
	require.NoError(t, err)
	require.Equal(t, "emails", def.Name)
	require.Contains(t, def.Jobs, "send")
	require.Contains(t, def.Crons, "nightly")
}

func TestFirstErrorShortCircuitsSubsequentCalls(t *testing.T) {
	b := Create("emails").AddJob("send", JobSpec{})
	_, err1 := b.Build()
	_, err2 := b.AddCron("nightly", CronSpec{Cron: "@daily", Handler: echoHandler}).Build()
	require.Equal(t, err1, err2)
}
