package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/peereval-api/internal/repository"
)

// Entity names used in error values.
const (
	EntityFlag         = "flag"
	EntityEvaluation   = "evaluation"
	EntityTicket       = "ticket"
	EntityNotification = "notification"
)

// ValidationKind classifies an input rejection.
type ValidationKind string

const (
	// KindMarkType means the marks payload was not an ordered sequence of numbers.
	KindMarkType ValidationKind = "mark_type"
	// KindMarkCountMismatch means the marks length differs from the exam's question count.
	KindMarkCountMismatch ValidationKind = "mark_count_mismatch"
	// KindMarkOutOfRange means at least one mark falls outside [0, max].
	KindMarkOutOfRange ValidationKind = "mark_out_of_range"
	// KindTicketNotEscalated means a teacher tried to act on a ticket never routed to teachers.
	KindTicketNotEscalated ValidationKind = "ticket_not_escalated"
	// KindInvalidTransition means the flag state machine forbids the requested move.
	KindInvalidTransition ValidationKind = "invalid_transition"
	// KindPayload means the request payload failed struct validation.
	KindPayload ValidationKind = "payload"
)

// NotFoundError reports a missing flag, evaluation or ticket.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError reports rejected input. No state is mutated when it is returned.
type ValidationError struct {
	Kind     ValidationKind
	Detail   string
	Expected int
	Received int
	Indices  []int
	Value    *float64
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return string(e.Kind)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AuthorizationError reports an actor acting outside their role or batch scope.
type AuthorizationError struct {
	ActorID uint
	Reason  string
}

func (e *AuthorizationError) Error() string {
	return e.Reason
}

// ConflictError reports a concurrent modification detected through the revision check.
type ConflictError struct {
	Entity string
	ID     uint
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently, retry the request", e.Entity, e.ID)
}

// DependencyError wraps a failure of the underlying store.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// lookupError translates a repository read failure for entity/id.
func lookupError(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return &DependencyError{Op: "load " + entity, Err: err}
}

// writeError translates a repository write failure for entity/id.
func writeError(err error, entity string, id uint) error {
	if errors.Is(err, repository.ErrRevisionConflict) {
		return &ConflictError{Entity: entity, ID: id}
	}
	return &DependencyError{Op: "update " + entity, Err: err}
}

func payloadError(err error) error {
	return &ValidationError{
		Kind:   KindPayload,
		Detail: strings.TrimSpace(err.Error()),
		Err:    err,
	}
}
