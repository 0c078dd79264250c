// Copyright 2025 James Ross
package validation

import (
	"errors"
	"testing"

	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
)

type emailStandardSchema struct{}

func (emailStandardSchema) Validate(value any) (any, []Issue) {
	s, ok := value.(string)
	if !ok || !containsAt(s) {
		return nil, []Issue{{Message: "must be a valid email"}}
	}
	return s, nil
}

func containsAt(s string) bool {
	for _, r := range s {
		if r == '@' {
			return true
		}
	}
	return false
}

type upperParseSchema struct{}

func (upperParseSchema) Parse(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errors.New("not a string")
	}
	return s + "!", nil
}

func TestValidateNoSchemaPassesThrough(t *testing.T) {
	got, err := Validate(nil, 42)
	if err != nil || got != 42 {
		t.Fatalf("expected pass-through, got %v, %v", got, err)
	}
}

func TestValidateStandardSchemaSuccess(t *testing.T) {
	got, err := Validate(emailStandardSchema{}, "user@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "user@example.com" {
		t.Fatalf("unexpected normalized value: %v", got)
	}
}

func TestValidateStandardSchemaFailure(t *testing.T) {
	_, err := Validate(emailStandardSchema{}, "not-an-email")
	if !ignitererr.Is(err, ignitererr.CodeValidationFailed) {
		t.Fatalf("expected JOBS_VALIDATION_FAILED, got %v", err)
	}
}

func TestValidateParseSchema(t *testing.T) {
	got, err := Validate(upperParseSchema{}, "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hi!" {
		t.Fatalf("expected transformed value, got %v", got)
	}
}

func TestValidateUnrecognizedShapePassesThrough(t *testing.T) {
	got, err := Validate(struct{ Foo string }{Foo: "bar"}, "payload")
	if err != nil || got != "payload" {
		t.Fatalf("expected pass-through for unrecognized schema, got %v, %v", got, err)
	}
}
