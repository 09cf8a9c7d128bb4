package engine

import (
	"github.com/shopspring/decimal"

	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/ledger"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

// LabelQuestCompleted is recorded when Bert's obsession is completed.
const LabelQuestCompleted = "Quest Completed"

// completeBertObsession claims the reward for Bert's current obsession.
//
// Checks, first failure wins:
//
//	FeatureRetired     GOODBYE_BERT is active
//	MissingAvatar      no bumpkin
//	MissingRegistry    no npc registry
//	NoActiveQuest      no obsession
//	QuestNotAvailable  at is outside [start, end]
//	AlreadyCompleted   bert's last completion is inside the same window
//	ItemNotOwned       collectible target not in inventory
//	WearableNotOwned   wearable target not in wardrobe
//
// The reward is credited to the ticket of the season covering at.
func completeBertObsession(env *Env, draft *state.WorldState, _ actions.CompleteBertObsession, at int64) error {
	const kind = actions.KindCompleteBertObsession

	if err := rules.RequireFeatureAvailable(draft, env.Gate, rules.FlagGoodbyeBert, kind); err != nil {
		return err
	}
	if err := rules.RequireAvatar(draft, kind); err != nil {
		return err
	}
	if err := rules.RequireRegistry(draft, kind); err != nil {
		return err
	}
	if err := rules.RequireActiveObsession(draft, kind); err != nil {
		return err
	}

	obsession := draft.BertObsession
	window := obsession.Window()
	if err := rules.RequireWithinWindow(window, at, kind); err != nil {
		return err
	}
	if err := rules.RequireNotCompletedInWindow(draft, state.BertID, window, kind); err != nil {
		return err
	}

	switch obsession.Type {
	case state.ObsessionCollectible:
		if err := rules.RequireItem(draft, obsession.Name, kind); err != nil {
			return err
		}
	case state.ObsessionWearable:
		if err := rules.RequireWearable(draft, obsession.Name, kind); err != nil {
			return err
		}
	default:
		return rules.Fail(rules.InconsistentState, kind, "unknown obsession type %q", obsession.Type)
	}

	bert := draft.NPCs.GetOrCreate(state.BertID)
	ticket := env.Calendar.TicketAt(at)
	if err := creditInventory(draft, ticket, obsession.Reward, kind); err != nil {
		return err
	}
	draft.FarmActivity = env.Tracker.Record(draft.FarmActivity, LabelQuestCompleted, at)
	bert.QuestCompletedAt = &at

	return nil
}

// creditInventory adds amount to key, creating the inventory and the entry
// at zero when absent. A zero amount only creates the entry.
func creditInventory(draft *state.WorldState, key string, amount decimal.Decimal, kind actions.Kind) error {
	if draft.Inventory == nil {
		draft.Inventory = ledger.Ledger{}
	}
	switch {
	case amount.IsZero():
		draft.Inventory[key] = draft.Inventory.Balance(key)
		return nil
	case amount.IsNegative():
		return rules.Fail(rules.InvalidAmount, kind, "cannot credit %s %s", amount, key)
	}
	if err := draft.Inventory.Credit(key, amount); err != nil {
		return rules.Fail(rules.InconsistentState, kind, "%v", err)
	}
	return nil
}

// debitInventory removes amount of key. Callers validate the balance first.
func debitInventory(draft *state.WorldState, key string, amount decimal.Decimal, kind actions.Kind) error {
	if err := draft.Inventory.Debit(key, amount); err != nil {
		return rules.Fail(rules.InsufficientBalance, kind, "%v", err)
	}
	return nil
}
