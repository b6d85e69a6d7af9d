package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/repository"
)

// Actor is the resolved identity performing an operation.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) role() string {
	return strings.ToLower(strings.TrimSpace(a.Role))
}

// IsTeacher reports whether the actor holds final authority over disputes.
func (a Actor) IsTeacher() bool {
	role := a.role()
	return role == models.RoleTeacher || role == models.RoleAdmin
}

// IsTA reports whether the actor is a teaching assistant.
func (a Actor) IsTA() bool {
	return a.role() == models.RoleTA
}

// ScopeAuthorizer asserts that an actor may act on a dispute.
type ScopeAuthorizer interface {
	AuthorizeEvaluation(ctx context.Context, actor Actor, evaluationID uint) error
	RequireTeacher(actor Actor) error
	FlagScope(ctx context.Context, actor Actor) (repository.FlagFilter, error)
}

type scopeAuthorizer struct {
	scopes repository.ScopeRepository
}

// NewScopeAuthorizer constructs the authorizer backed by batch membership.
func NewScopeAuthorizer(scopes repository.ScopeRepository) ScopeAuthorizer {
	return &scopeAuthorizer{scopes: scopes}
}

// AuthorizeEvaluation allows teachers everywhere and TAs only on evaluations of exams in their batches.
func (a *scopeAuthorizer) AuthorizeEvaluation(ctx context.Context, actor Actor, evaluationID uint) error {
	if actor.ID == 0 {
		return &AuthorizationError{Reason: "authenticated user required"}
	}
	if actor.IsTeacher() {
		return nil
	}
	if !actor.IsTA() {
		return &AuthorizationError{ActorID: actor.ID, Reason: fmt.Sprintf("role %q cannot act on flags", actor.role())}
	}

	allowed, err := a.scopes.IsTAForEvaluation(ctx, actor.ID, evaluationID)
	if err != nil {
		return &DependencyError{Op: "resolve ta scope", Err: err}
	}
	if !allowed {
		return &AuthorizationError{ActorID: actor.ID, Reason: "not a TA for the batch of this evaluation"}
	}

	return nil
}

func (a *scopeAuthorizer) RequireTeacher(actor Actor) error {
	if actor.ID == 0 {
		return &AuthorizationError{Reason: "authenticated user required"}
	}
	if !actor.IsTeacher() {
		return &AuthorizationError{ActorID: actor.ID, Reason: "only teachers can act on escalated tickets"}
	}
	return nil
}

// FlagScope returns the listing filter an actor is limited to.
func (a *scopeAuthorizer) FlagScope(ctx context.Context, actor Actor) (repository.FlagFilter, error) {
	if actor.IsTeacher() {
		return repository.FlagFilter{}, nil
	}
	if !actor.IsTA() || actor.ID == 0 {
		return repository.FlagFilter{}, &AuthorizationError{ActorID: actor.ID, Reason: "only TAs and teachers can list flags"}
	}

	batchIDs, err := a.scopes.BatchIDsForTA(ctx, actor.ID)
	if err != nil {
		return repository.FlagFilter{}, &DependencyError{Op: "resolve ta batches", Err: err}
	}

	return repository.FlagFilter{BatchIDs: batchIDs, Scoped: true}, nil
}
