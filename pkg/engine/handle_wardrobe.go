package engine

import (
	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

const LabelWearableEquipped = "Wearable Equipped"

// equipWearable: MissingAvatar, InvalidSlot (unknown slot), UnknownItem
// (wearable not in the catalog), InvalidSlot (worn elsewhere),
// WearableNotOwned.
func equipWearable(env *Env, draft *state.WorldState, a actions.EquipWearable, at int64) error {
	const kind = actions.KindEquipWearable

	if err := rules.RequireAvatar(draft, kind); err != nil {
		return err
	}
	if !env.Catalog.HasSlot(a.Slot) {
		return rules.Fail(rules.InvalidSlot, kind, "unknown slot %q", a.Slot)
	}
	slot, ok := env.Catalog.WearableSlot(a.Name)
	if !ok {
		return rules.Fail(rules.UnknownItem, kind, "unknown wearable %q", a.Name)
	}
	if slot != a.Slot {
		return rules.Fail(rules.InvalidSlot, kind, "%s is worn in %q, not %q", a.Name, slot, a.Slot)
	}
	if err := rules.RequireWearable(draft, a.Name, kind); err != nil {
		return err
	}

	if draft.Bumpkin.Equipped == nil {
		draft.Bumpkin.Equipped = map[string]string{}
	}
	draft.Bumpkin.Equipped[a.Slot] = a.Name
	draft.FarmActivity = env.Tracker.Record(draft.FarmActivity, LabelWearableEquipped, at)
	return nil
}
