package engine

import (
	"maps"
	"slices"

	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/catalog"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

const (
	LabelDailyRewardCollected = "Daily Reward Collected"
	LabelVIPChestOpened       = "VIP Chest Opened"
)

// collectDailyReward opens the daily chest.
//
//	AlreadyCollected  the last collection is in the same UTC day as at
//
// The chest's tickets go to the season covering at.
func collectDailyReward(env *Env, draft *state.WorldState, _ actions.CollectDailyReward, at int64) error {
	const kind = actions.KindCollectDailyReward

	if draft.DailyRewards == nil {
		draft.DailyRewards = &state.DailyRewards{}
	}
	if err := rules.RequireNotClaimedInWindow(draft.DailyRewards.ChestCollectedAt, state.DayWindow(at), "daily chest", kind); err != nil {
		return err
	}

	if err := creditReward(env, draft, env.Catalog.DailyChest, at, kind); err != nil {
		return err
	}
	draft.DailyRewards.ChestCollectedAt = &at
	draft.FarmActivity = env.Tracker.Record(draft.FarmActivity, LabelDailyRewardCollected, at)
	return nil
}

// openVIPChest opens the monthly VIP chest.
//
//	VIPRequired       no membership covering at
//	AlreadyCollected  the chest was opened in the same UTC month as at
func openVIPChest(env *Env, draft *state.WorldState, _ actions.OpenVIPChest, at int64) error {
	const kind = actions.KindOpenVIPChest

	if err := rules.RequireVIP(draft, at, kind); err != nil {
		return err
	}
	if err := rules.RequireNotClaimedInWindow(draft.VIP.ChestOpenedAt, state.MonthWindow(at), "vip chest", kind); err != nil {
		return err
	}

	if err := creditReward(env, draft, env.Catalog.VIPChest, at, kind); err != nil {
		return err
	}
	draft.VIP.ChestOpenedAt = &at
	draft.FarmActivity = env.Tracker.Record(draft.FarmActivity, LabelVIPChestOpened, at)
	return nil
}

// creditReward credits the chest's tickets to the seasonal ticket for at and
// each item in name order.
func creditReward(env *Env, draft *state.WorldState, r catalog.Reward, at int64, kind actions.Kind) error {
	if r.Tickets.IsPositive() {
		if err := creditInventory(draft, env.Calendar.TicketAt(at), r.Tickets, kind); err != nil {
			return err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(r.Items)) {
		if err := creditInventory(draft, name, r.Items[name], kind); err != nil {
			return err
		}
	}
	return nil
}
