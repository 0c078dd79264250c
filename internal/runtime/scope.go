// Copyright 2025 James Ross
package runtime

import (
	"github.com/ignitehq/igniter-jobs/internal/ignitererr"
	"github.com/ignitehq/igniter-jobs/internal/scope"
)

// Scope derives a child Runtime bound to a single (type, id) pair.
// The child shares its parent's adapter, queue definitions, and
// registration state — it never re-registers jobs or crons — and
// every dispatch/schedule issued through it carries the bound scope
// automatically. Scope may only be called on a runtime that declared
// a scope dimension via Builder.AddScope.
func (rt *Runtime) Scope(scopeType, id string, tags ...string) (*Runtime, error) {
	if rt.scopeDef == nil {
		return nil, ignitererr.New(ignitererr.CodeScopeNotDeclared, "this runtime declared no scope dimension")
	}
	if scopeType != rt.scopeDef.Name {
		return nil, ignitererr.Newf(ignitererr.CodeConfigurationInvalid, "scope type %q does not match the declared dimension %q", scopeType, rt.scopeDef.Name)
	}
	entry := &scope.Entry{Type: scopeType, ID: id, Tags: tags}
	if rt.boundScope != nil && !rt.boundScope.Equal(*entry) {
		return nil, ignitererr.New(ignitererr.CodeConfigurationInvalid, "cannot re-scope a runtime already bound to a different scope")
	}

	child := *rt
	child.boundScope = entry
	return &child, nil
}
