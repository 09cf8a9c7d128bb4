// Package rules holds the failure taxonomy, the collaborator contracts and
// the validator library shared by every action handler.
package rules

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/farm-engine/pkg/actions"
)

// Kind classifies why a transition was rejected. Callers branch on Kind,
// never on message text.
type Kind string

const (
	UnknownAction       Kind = "UnknownAction"
	FeatureRetired      Kind = "FeatureRetired"
	MissingAvatar       Kind = "MissingAvatar"
	MissingRegistry     Kind = "MissingRegistry"
	NoActiveQuest       Kind = "NoActiveQuest"
	QuestNotAvailable   Kind = "QuestNotAvailable"
	AlreadyCompleted    Kind = "AlreadyCompleted"
	ItemNotOwned        Kind = "ItemNotOwned"
	WearableNotOwned    Kind = "WearableNotOwned"
	InsufficientBalance Kind = "InsufficientBalance"

	InvalidAmount     Kind = "InvalidAmount"
	UnknownItem       Kind = "UnknownItem"
	UnknownNPC        Kind = "UnknownNPC"
	InvalidSlot       Kind = "InvalidSlot"
	AlreadyCollected  Kind = "AlreadyCollected"
	VIPRequired       Kind = "VIPRequired"
	InconsistentState Kind = "InconsistentState"
)

// AllKinds lists every failure kind.
func AllKinds() []Kind {
	return []Kind{
		UnknownAction, FeatureRetired, MissingAvatar, MissingRegistry, NoActiveQuest,
		QuestNotAvailable, AlreadyCompleted, ItemNotOwned, WearableNotOwned,
		InsufficientBalance, InvalidAmount, UnknownItem, UnknownNPC, InvalidSlot,
		AlreadyCollected, VIPRequired, InconsistentState,
	}
}

// MessageKey returns the translation key for display text.
func (k Kind) MessageKey() string {
	return "error." + string(k)
}

// TransitionError is the single error type returned for rejected actions.
type TransitionError struct {
	Kind   Kind
	Action actions.Kind // empty when the action itself could not be identified
	Detail string       // English, for logs only
}

// Fail builds a TransitionError.
func Fail(kind Kind, action actions.Kind, format string, args ...any) *TransitionError {
	return &TransitionError{Kind: kind, Action: action, Detail: fmt.Sprintf(format, args...)}
}

func (e *TransitionError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s rejected (%s): %s", e.Action, e.Kind, e.Detail)
}

// Is matches any TransitionError of the same Kind, so
// errors.Is(err, &TransitionError{Kind: rules.MissingAvatar}) works.
func (e *TransitionError) Is(target error) bool {
	var t *TransitionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// MessageKey returns the translation key for this failure.
func (e *TransitionError) MessageKey() string {
	return e.Kind.MessageKey()
}

// KindOf returns the failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
