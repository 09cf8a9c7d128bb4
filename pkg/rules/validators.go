package rules

import (
	"github.com/shopspring/decimal"

	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

// Validators never mutate the state they inspect. The Require* forms return
// nil when the check passes.

// InWindow reports whether at falls inside w, inclusive on both ends.
func InWindow(w state.TimeWindow, at int64) bool {
	return w.Contains(at)
}

// RequireFeatureAvailable fails with FeatureRetired when flag is active.
func RequireFeatureAvailable(ws *state.WorldState, gate FeatureGate, flag Flag, action actions.Kind) *TransitionError {
	if gate != nil && gate.HasAccess(ws, flag) {
		return Fail(FeatureRetired, action, "feature %s is retired", flag)
	}
	return nil
}

func RequireAvatar(ws *state.WorldState, action actions.Kind) *TransitionError {
	if ws.Bumpkin == nil {
		return Fail(MissingAvatar, action, "farm has no bumpkin")
	}
	return nil
}

// RequireRegistry checks the NPC registry itself exists. Individual records
// are created lazily and are not checked here.
func RequireRegistry(ws *state.WorldState, action actions.Kind) *TransitionError {
	if ws.NPCs == nil {
		return Fail(MissingRegistry, action, "farm has no npc registry")
	}
	return nil
}

func RequireActiveObsession(ws *state.WorldState, action actions.Kind) *TransitionError {
	if ws.BertObsession == nil {
		return Fail(NoActiveQuest, action, "no active obsession")
	}
	return nil
}

func RequireWithinWindow(w state.TimeWindow, at int64, action actions.Kind) *TransitionError {
	if !InWindow(w, at) {
		return Fail(QuestNotAvailable, action, "%d is outside [%d, %d]", at, w.Start, w.End)
	}
	return nil
}

// RequireNotCompletedInWindow fails with AlreadyCompleted when the NPC's last
// completion falls inside w. Only the most recent completion is compared, so
// a completion from an earlier window never blocks a new one.
func RequireNotCompletedInWindow(ws *state.WorldState, npcID string, w state.TimeWindow, action actions.Kind) *TransitionError {
	npc, ok := ws.NPCs.Get(npcID)
	if !ok || npc.QuestCompletedAt == nil {
		return nil
	}
	if InWindow(w, *npc.QuestCompletedAt) {
		return Fail(AlreadyCompleted, action, "%s already completed at %d", npcID, *npc.QuestCompletedAt)
	}
	return nil
}

// RequireNotClaimedInWindow fails with AlreadyCollected when last, the
// previous claim of reward, falls inside w.
func RequireNotClaimedInWindow(last *int64, w state.TimeWindow, reward string, action actions.Kind) *TransitionError {
	if last != nil && InWindow(w, *last) {
		return Fail(AlreadyCollected, action, "%s already collected at %d", reward, *last)
	}
	return nil
}

// RequireVIP fails with VIPRequired unless the membership covers at.
func RequireVIP(ws *state.WorldState, at int64, action actions.Kind) *TransitionError {
	if !ws.VIP.Active(at) {
		return Fail(VIPRequired, action, "no vip membership at %d", at)
	}
	return nil
}

// HasItem reports whether the inventory holds a positive amount of name.
func HasItem(ws *state.WorldState, name string) bool {
	return ws.Inventory.Has(name)
}

// HasWearable reports whether the wardrobe marks name as owned.
func HasWearable(ws *state.WorldState, name string) bool {
	return ws.OwnsWearable(name)
}

func RequireItem(ws *state.WorldState, name string, action actions.Kind) *TransitionError {
	if !HasItem(ws, name) {
		return Fail(ItemNotOwned, action, "missing %s", name)
	}
	return nil
}

func RequireWearable(ws *state.WorldState, name string, action actions.Kind) *TransitionError {
	if !HasWearable(ws, name) {
		return Fail(WearableNotOwned, action, "missing wearable %s", name)
	}
	return nil
}

// RequireBalance checks the coin balance covers amount.
func RequireBalance(ws *state.WorldState, amount decimal.Decimal, action actions.Kind) *TransitionError {
	if ws.Balance.LessThan(amount) {
		return Fail(InsufficientBalance, action, "balance %s is less than %s", ws.Balance, amount)
	}
	return nil
}

// RequireItemBalance checks the inventory holds at least amount of item.
func RequireItemBalance(ws *state.WorldState, item string, amount decimal.Decimal, action actions.Kind) *TransitionError {
	if have := ws.Inventory.Balance(item); have.LessThan(amount) {
		return Fail(InsufficientBalance, action, "have %s %s, need %s", have, item, amount)
	}
	return nil
}

func RequirePositive(amount decimal.Decimal, action actions.Kind) *TransitionError {
	if !amount.IsPositive() {
		return Fail(InvalidAmount, action, "amount %s must be positive", amount)
	}
	return nil
}
