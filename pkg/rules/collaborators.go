package rules

import (
	"time"

	"github.com/jwebster45206/farm-engine/pkg/state"
)

// Flag names a feature toggle.
type Flag string

// FlagGoodbyeBert retires Bert's obsessions.
const FlagGoodbyeBert Flag = "GOODBYE_BERT"

// Clock supplies timestamps (unix ms) to callers that omit one.
type Clock interface {
	Now() int64
}

// FeatureGate decides whether a flag is active for a world. It must be a
// pure function of its arguments.
type FeatureGate interface {
	HasAccess(ws *state.WorldState, flag Flag) bool
}

// Translator turns a message key into display text.
type Translator interface {
	Translate(key string, args ...any) string
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().UnixMilli() }

// FixedClock always returns the same instant.
type FixedClock int64

func (c FixedClock) Now() int64 { return int64(c) }

// NoFlags is a FeatureGate with every flag off.
type NoFlags struct{}

func (NoFlags) HasAccess(*state.WorldState, Flag) bool { return false }

// Describe returns display text for err. Non-transition errors get the
// generic "error.unknown" message.
func Describe(err error, tr Translator) string {
	if err == nil {
		return ""
	}
	key := "error.unknown"
	if kind, ok := KindOf(err); ok {
		key = kind.MessageKey()
	}
	if tr == nil {
		return key
	}
	return tr.Translate(key)
}
