package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/farm-engine/internal/audit"
	"github.com/jwebster45206/farm-engine/internal/i18n"
	"github.com/jwebster45206/farm-engine/internal/logger"
	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/engine"
	"github.com/jwebster45206/farm-engine/pkg/queue"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
	"github.com/jwebster45206/farm-engine/pkg/storage"
)

// ErrWorldNotFound is returned when a request names a world that is not stored.
var ErrWorldNotFound = errors.New("world not found")

// AuditLog receives one entry per processed request.
type AuditLog interface {
	Record(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// Outcome is the result of running one action against a stored world.
type Outcome struct {
	RequestID string
	WorldID   uuid.UUID
	Kind      actions.Kind
	At        int64

	// World is the new state when the action applied, otherwise the stored
	// state unchanged.
	World *state.WorldState

	Failure *rules.TransitionError
	Message string // Failure rendered in the request's locale
}

// Applied reports whether the action was accepted.
func (o *Outcome) Applied() bool {
	return o.Failure == nil
}

// ActionProcessor loads a world, runs an action through the engine and
// persists the result. It's used by both the HTTP handler (previews) and the
// worker (queued requests).
type ActionProcessor struct {
	storage  storage.Storage
	executor *engine.Executor
	bundle   *i18n.Bundle
	audit    AuditLog
	logger   *slog.Logger
}

// NewActionProcessor creates a new action processor. auditLog may be nil.
func NewActionProcessor(
	storage storage.Storage,
	executor *engine.Executor,
	bundle *i18n.Bundle,
	auditLog AuditLog,
	logger *slog.Logger,
) *ActionProcessor {
	if bundle == nil {
		bundle = i18n.Default()
	}
	return &ActionProcessor{
		storage:  storage,
		executor: executor,
		bundle:   bundle,
		audit:    auditLog,
		logger:   logger,
	}
}

// Evaluate runs raw against the stored world without saving anything.
// A zero at uses the executor's clock.
func (p *ActionProcessor) Evaluate(ctx context.Context, worldID uuid.UUID, raw json.RawMessage, at int64, locale string) (*Outcome, error) {
	ws, err := p.storage.LoadWorld(ctx, worldID)
	if err != nil {
		return nil, fmt.Errorf("failed to load world: %w", err)
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, worldID.String())
	}
	if at == 0 {
		at = p.executor.Now()
	}

	out := &Outcome{WorldID: worldID, At: at, World: ws}

	action, err := actions.Decode(raw)
	if err != nil {
		kind, _ := actions.PeekKind(raw)
		out.Kind = kind
		out.Failure = rules.Fail(rules.UnknownAction, kind, "%v", err)
	} else {
		out.Kind = action.Kind()
		next, err := p.executor.Apply(ws, action, at)
		if err != nil {
			out.Failure = asTransitionError(err, action.Kind())
		} else {
			out.World = next
		}
	}

	if out.Failure != nil {
		tr := p.bundle.Translator(p.bundle.Match(locale))
		out.Message = rules.Describe(out.Failure, tr)
	}
	return out, nil
}

// Process evaluates a queued request, saves the world when the action
// applied and records the outcome in the audit log.
func (p *ActionProcessor) Process(ctx context.Context, req *queue.Request) (*Outcome, error) {
	log := logger.WithWorldID(logger.WithRequestID(p.logger, req.RequestID), req.WorldID)

	out, err := p.Evaluate(ctx, req.WorldID, req.Action, req.At, req.Locale)
	if err != nil {
		return nil, err
	}
	out.RequestID = req.RequestID

	if out.Applied() {
		if err := p.storage.SaveWorld(ctx, out.World); err != nil {
			return nil, fmt.Errorf("failed to save world: %w", err)
		}
		log.Debug("Action applied", "kind", out.Kind, "at", out.At)
	} else {
		log.Info("Action rejected", "kind", out.Kind, "failure", out.Failure.Kind, "detail", out.Failure.Detail)
	}

	p.record(ctx, log, out)
	return out, nil
}

func (p *ActionProcessor) record(ctx context.Context, log *slog.Logger, out *Outcome) {
	if p.audit == nil {
		return
	}
	entry := audit.Entry{
		RequestID: out.RequestID,
		WorldID:   out.WorldID,
		Action:    string(out.Kind),
		Outcome:   audit.OutcomeApplied,
		At:        out.At,
	}
	if !out.Applied() {
		entry.Outcome = audit.OutcomeRejected
		entry.Failure = string(out.Failure.Kind)
		entry.Message = out.Message
	}
	// The world is already saved; a lost audit row is logged, not retried.
	if _, err := p.audit.Record(ctx, entry); err != nil {
		logger.WithError(log, err).Error("Failed to record audit entry")
	}
}

func asTransitionError(err error, kind actions.Kind) *rules.TransitionError {
	var te *rules.TransitionError
	if errors.As(err, &te) {
		return te
	}
	return rules.Fail(rules.InconsistentState, kind, "%v", err)
}
