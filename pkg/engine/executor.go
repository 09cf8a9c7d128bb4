// Package engine applies player actions to world states.
//
// Apply is the only entry point. It looks up the handler for the action's
// kind, runs it against a private draft of the world, checks the draft's
// invariants and only then returns it. On any failure the caller gets back
// the exact pointer they passed in together with a *rules.TransitionError.
//
// Every handler follows the same template:
//
//  1. run validators in a fixed order, returning the first failure;
//  2. mutate the draft through ledger helpers and registry accessors;
//  3. record one activity entry.
//
// Handlers never call each other. The engine performs no I/O and never reads
// the wall clock; ApplyNow takes its timestamp from the injected Clock.
package engine

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/activity"
	"github.com/jwebster45206/farm-engine/pkg/catalog"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/season"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

// Env is what a handler may consult besides the draft, the action and the
// timestamp.
type Env struct {
	Gate     rules.FeatureGate
	Tracker  *activity.Tracker
	Calendar *season.Calendar
	Catalog  *catalog.Catalog
}

type handler func(env *Env, draft *state.WorldState, a actions.Action, at int64) error

// handle adapts a handler written against one concrete action type.
func handle[T actions.Action](fn func(env *Env, draft *state.WorldState, a T, at int64) error) handler {
	return func(env *Env, draft *state.WorldState, a actions.Action, at int64) error {
		typed, ok := a.(T)
		if !ok {
			return rules.Fail(rules.UnknownAction, a.Kind(), "handler received %T", a)
		}
		return fn(env, draft, typed, at)
	}
}

var handlers = map[actions.Kind]handler{
	actions.KindCompleteBertObsession: handle(completeBertObsession),
	actions.KindSellCrop:              handle(sellCrop),
	actions.KindBuySeed:               handle(buySeed),
	actions.KindDeliverToNPC:          handle(deliverToNPC),
	actions.KindEquipWearable:         handle(equipWearable),
	actions.KindCollectDailyReward:    handle(collectDailyReward),
	actions.KindOpenVIPChest:          handle(openVIPChest),
}

// Handlers returns the kinds that have a registered handler, sorted.
func Handlers() []actions.Kind {
	return slices.Sorted(maps.Keys(handlers))
}

// Executor applies actions. It is safe for concurrent use; it holds no
// per-world state.
type Executor struct {
	clock  rules.Clock
	env    Env
	logger *slog.Logger
}

type Option func(*Executor)

func WithClock(c rules.Clock) Option {
	return func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithFeatureGate(g rules.FeatureGate) Option {
	return func(e *Executor) {
		if g != nil {
			e.env.Gate = g
		}
	}
}

// WithTracker sets the activity tracker, which controls the log capacity.
func WithTracker(t *activity.Tracker) Option {
	return func(e *Executor) {
		if t != nil {
			e.env.Tracker = t
		}
	}
}

func WithCalendar(c *season.Calendar) Option {
	return func(e *Executor) {
		if c != nil {
			e.env.Calendar = c
		}
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Executor) {
		if c != nil {
			e.env.Catalog = c
		}
	}
}

// WithLogger sets the logger used for debug-level decisions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an executor. Without options it uses the system clock, no
// feature flags, the default activity capacity, and the embedded calendar and
// catalog.
func New(opts ...Option) *Executor {
	e := &Executor{
		clock: rules.SystemClock{},
		env: Env{
			Gate:     rules.NoFlags{},
			Tracker:  activity.NewTracker(activity.DefaultCapacity),
			Calendar: season.Default(),
			Catalog:  catalog.Default(),
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply applies a to ws at the given unix-ms timestamp. On success it
// returns a new state and ws is left untouched. On failure it returns ws
// itself and a *rules.TransitionError.
func (e *Executor) Apply(ws *state.WorldState, a actions.Action, at int64) (*state.WorldState, error) {
	if ws == nil {
		return nil, rules.Fail(rules.InconsistentState, kindOf(a), "world state is nil")
	}
	if a == nil {
		return ws, rules.Fail(rules.UnknownAction, "", "action is nil")
	}

	h, ok := handlers[a.Kind()]
	if !ok {
		return ws, rules.Fail(rules.UnknownAction, a.Kind(), "no handler registered")
	}

	draft := ws.Clone()
	if err := h(&e.env, draft, a, at); err != nil {
		e.logger.Debug("Action rejected", "world_id", ws.ID.String(), "kind", a.Kind(), "at", at, "error", err)
		return ws, err
	}
	if err := draft.Validate(); err != nil {
		e.logger.Debug("Action produced an inconsistent state", "world_id", ws.ID.String(), "kind", a.Kind(), "error", err)
		return ws, rules.Fail(rules.InconsistentState, a.Kind(), "%v", err)
	}

	e.logger.Debug("Action applied", "world_id", ws.ID.String(), "kind", a.Kind(), "at", at)
	return draft, nil
}

// ApplyNow applies a using the executor's clock for the timestamp.
func (e *Executor) ApplyNow(ws *state.WorldState, a actions.Action) (*state.WorldState, error) {
	return e.Apply(ws, a, e.clock.Now())
}

// Now returns the executor clock's current time.
func (e *Executor) Now() int64 {
	return e.clock.Now()
}

func kindOf(a actions.Action) actions.Kind {
	if a == nil {
		return ""
	}
	return a.Kind()
}
