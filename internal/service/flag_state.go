package service

import (
	"fmt"

	"github.com/noah-isme/peereval-api/internal/models"
)

var flagTransitions = map[models.FlagStatus]map[models.FlagStatus]bool{
	models.FlagStatusPending: {
		models.FlagStatusResolved:  true,
		models.FlagStatusEscalated: true,
	},
	models.FlagStatusResolved: {
		models.FlagStatusResolved:  true,
		models.FlagStatusEscalated: true,
	},
	models.FlagStatusEscalated: {
		models.FlagStatusResolved:  true,
		models.FlagStatusEscalated: true,
	},
}

// CanTransition reports whether a flag may move from one resolution status to another.
// Once a flag leaves pending it never returns there.
func CanTransition(from, to models.FlagStatus) bool {
	targets, ok := flagTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

func checkTransition(flag models.Flag, to models.FlagStatus) error {
	if CanTransition(flag.ResolutionStatus, to) {
		return nil
	}
	return &ValidationError{
		Kind:   KindInvalidTransition,
		Detail: fmt.Sprintf("flag %d cannot move from %q to %q", flag.ID, flag.ResolutionStatus, to),
	}
}
