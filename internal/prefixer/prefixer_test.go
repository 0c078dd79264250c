// Copyright 2025 James Ross
package prefixer

import (
	"strings"
	"testing"
)

func TestQueueNameHasOneColonBeyondBase(t *testing.T) {
	q := QueueName("email")
	extra := strings.TrimPrefix(q, BasePrefix)
	if strings.Count(extra, ":") != 1 {
		t.Fatalf("expected exactly one colon beyond base, got %q", q)
	}
}

func TestEventsChannelScopeSuffix(t *testing.T) {
	unscoped := EventsChannel("prod", "billing", nil)
	if strings.HasSuffix(unscoped, ":scope:") {
		t.Fatalf("unscoped channel should not carry a scope suffix: %s", unscoped)
	}
	scoped := EventsChannel("prod", "billing", &ScopeRef{Type: "organization", ID: "org_1"})
	if !strings.HasSuffix(scoped, ":scope:organization:org_1") {
		t.Fatalf("expected scope suffix, got %s", scoped)
	}
}
