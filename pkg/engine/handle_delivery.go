package engine

import (
	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/ledger"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

const LabelOrderDelivered = "Order Delivered"

// deliverToNPC: MissingAvatar, MissingRegistry, UnknownNPC, InvalidAmount,
// InsufficientBalance. Each delivery counts once regardless of amount; the
// coin reward is paid per unit.
func deliverToNPC(env *Env, draft *state.WorldState, a actions.DeliverToNPC, at int64) error {
	const kind = actions.KindDeliverToNPC

	if err := rules.RequireAvatar(draft, kind); err != nil {
		return err
	}
	if err := rules.RequireRegistry(draft, kind); err != nil {
		return err
	}
	reward, ok := env.Catalog.DeliveryReward(a.NPC)
	if !ok {
		return rules.Fail(rules.UnknownNPC, kind, "%s does not take deliveries", a.NPC)
	}
	if err := rules.RequirePositive(a.Amount, kind); err != nil {
		return err
	}
	if err := rules.RequireItemBalance(draft, a.Item, a.Amount, kind); err != nil {
		return err
	}

	npc := draft.NPCs.GetOrCreate(a.NPC)
	if err := debitInventory(draft, a.Item, a.Amount, kind); err != nil {
		return err
	}
	npc.DeliveryCount++
	draft.Balance = ledger.Add(draft.Balance, reward.Mul(a.Amount))
	draft.FarmActivity = env.Tracker.Record(draft.FarmActivity, LabelOrderDelivered, at)
	return nil
}
