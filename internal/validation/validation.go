// Copyright 2025 James Ross
// Package validation adapts the small schema contract of spec §6.3 to a
// single Validate entry point. Two shapes are recognized:
//
//   - StandardSchema: a "~standard"-style validator with Validate.
//   - ParseSchema: a parse/safeParse-style validator.
//
// Anything satisfying neither interface passes through unchanged —
// jobs and crons are never required to declare an input schema.
package validation

import (
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

// Issue is a single validation failure, mirroring a schema library's
// issue list.
type Issue struct {
	Message string
	Path    string
}

// StandardSchema is satisfied by validators exposing a Validate method
// that returns either the normalized value or a list of issues.
type StandardSchema interface {
	Validate(value any) (normalized any, issues []Issue)
}

// ParseSchema is satisfied by validators exposing Parse (required) and
// SafeParse (optional, preferred when present since it never panics).
type ParseSchema interface {
	Parse(value any) (any, error)
}

// SafeParseSchema is the optional non-throwing companion to ParseSchema.
type SafeParseSchema interface {
	ParseSchema
	SafeParse(value any) (normalized any, ok bool, err error)
}

// Validate normalizes input against schema. A nil schema, or a schema
// satisfying neither recognized shape, passes input through unchanged.
func Validate(schema any, input any) (any, error) {
	if schema == nil {
		return input, nil
	}

	if s, ok := schema.(StandardSchema); ok {
		normalized, issues := s.Validate(input)
		if len(issues) > 0 {
			return nil, validationFailed(issues)
		}
		return normalized, nil
	}

	if s, ok := schema.(SafeParseSchema); ok {
		normalized, success, err := s.SafeParse(input)
		if !success {
			msg := "validation failed"
			if err != nil {
				msg = err.Error()
			}
			return nil, validationFailed([]Issue{{Message: msg}})
		}
		return normalized, nil
	}

	if s, ok := schema.(ParseSchema); ok {
		normalized, err := s.Parse(input)
		if err != nil {
			return nil, validationFailed([]Issue{{Message: err.Error()}})
		}
		return normalized, nil
	}

	return input, nil
}

func validationFailed(issues []Issue) *ignitererr.Error {
	rawIssues := make([]map[string]any, 0, len(issues))
	for _, iss := range issues {
		entry := map[string]any{"message": iss.Message}
		if iss.Path != "" {
			entry["path"] = iss.Path
		}
		rawIssues = append(rawIssues, entry)
	}
	return ignitererr.New(ignitererr.CodeValidationFailed, "input validation failed").
		WithDetails(map[string]any{"issues": rawIssues})
}
