// Copyright 2025 James Ross
package redisbackend

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

const timeLayout = time.RFC3339Nano

// encodeRecord flattens a Record into the string-keyed map HSET
// expects. Complex fields (Input, Result, Metadata, Scope, Logs) are
// JSON-encoded; everything else is a plain scalar.
func encodeRecord(rec backend.Record) (map[string]any, error) {
	input, err := json.Marshal(rec.Input)
	if err != nil {
		return nil, err
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, err
	}
	scope, err := json.Marshal(rec.Scope)
	if err != nil {
		return nil, err
	}
	logs, err := json.Marshal(rec.Logs)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"id":           rec.ID,
		"name":         rec.Name,
		"queue":        rec.Queue,
		"status":       string(rec.Status),
		"progress":     rec.Progress,
		"attemptsMade": rec.AttemptsMade,
		"maxAttempts":  rec.MaxAttempts,
		"priority":     rec.Priority,
		"createdAt":    rec.CreatedAt.Format(timeLayout),
		"error":        rec.Error,
		"input":        string(input),
		"result":       string(result),
		"metadata":     string(metadata),
		"scope":        string(scope),
		"logs":         string(logs),
	}
	if rec.StartedAt != nil {
		out["startedAt"] = rec.StartedAt.Format(timeLayout)
	}
	if rec.CompletedAt != nil {
		out["completedAt"] = rec.CompletedAt.Format(timeLayout)
	}
	return out, nil
}

func decodeRecord(fields map[string]string) (backend.Record, error) {
	rec := backend.Record{
		ID:     fields["id"],
		Name:   fields["name"],
		Queue:  fields["queue"],
		Status: backend.Status(fields["status"]),
		Error:  fields["error"],
	}
	rec.Progress, _ = strconv.Atoi(fields["progress"])
	rec.AttemptsMade, _ = strconv.Atoi(fields["attemptsMade"])
	rec.MaxAttempts, _ = strconv.Atoi(fields["maxAttempts"])
	rec.Priority, _ = strconv.Atoi(fields["priority"])

	if v := fields["createdAt"]; v != "" {
		rec.CreatedAt, _ = time.Parse(timeLayout, v)
	}
	if v := fields["startedAt"]; v != "" {
		t, err := time.Parse(timeLayout, v)
		if err == nil {
			rec.StartedAt = &t
		}
	}
	if v := fields["completedAt"]; v != "" {
		t, err := time.Parse(timeLayout, v)
		if err == nil {
			rec.CompletedAt = &t
		}
	}
	if v := fields["input"]; v != "" {
		_ = json.Unmarshal([]byte(v), &rec.Input)
	}
	if v := fields["result"]; v != "" {
		_ = json.Unmarshal([]byte(v), &rec.Result)
	}
	if v := fields["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &rec.Metadata)
	}
	if v := fields["scope"]; v != "" && v != "null" {
		_ = json.Unmarshal([]byte(v), &rec.Scope)
	}
	if v := fields["logs"]; v != "" {
		_ = json.Unmarshal([]byte(v), &rec.Logs)
	}
	return rec, nil
}
