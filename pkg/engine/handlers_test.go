package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func marketWorld() *state.WorldState {
	ws := state.NewWorldState()
	ws.Balance = dec("20")
	ws.Inventory["Pumpkin"] = dec("3")
	ws.Inventory["Carrot"] = dec("2")
	ws.Wardrobe["Farmer Hat"] = 1
	return ws
}

func TestHandlers_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(ws *state.WorldState)
		action   actions.Action
		expected rules.Kind
	}{
		{"sell without avatar", func(ws *state.WorldState) { ws.Bumpkin = nil }, actions.SellCrop{Crop: "Pumpkin", Amount: dec("1")}, rules.MissingAvatar},
		{"sell zero", nil, actions.SellCrop{Crop: "Pumpkin", Amount: decimal.Zero}, rules.InvalidAmount},
		{"sell negative", nil, actions.SellCrop{Crop: "Pumpkin", Amount: dec("-1")}, rules.InvalidAmount},
		{"sell unknown crop", nil, actions.SellCrop{Crop: "Dragonfruit", Amount: dec("1")}, rules.UnknownItem},
		{"sell more than owned", nil, actions.SellCrop{Crop: "Pumpkin", Amount: dec("3.5")}, rules.InsufficientBalance},
		{"buy without avatar", func(ws *state.WorldState) { ws.Bumpkin = nil }, actions.BuySeed{Item: "Kale Seed", Amount: dec("1")}, rules.MissingAvatar},
		{"buy unknown seed", nil, actions.BuySeed{Item: "Magic Bean", Amount: dec("1")}, rules.UnknownItem},
		{"buy beyond balance", nil, actions.BuySeed{Item: "Kale Seed", Amount: dec("3")}, rules.InsufficientBalance},
		{"deliver without registry", func(ws *state.WorldState) { ws.NPCs = nil }, actions.DeliverToNPC{NPC: "betty", Item: "Carrot", Amount: dec("1")}, rules.MissingRegistry},
		{"deliver to stranger", nil, actions.DeliverToNPC{NPC: "goblin", Item: "Carrot", Amount: dec("1")}, rules.UnknownNPC},
		{"deliver zero", nil, actions.DeliverToNPC{NPC: "betty", Item: "Carrot", Amount: decimal.Zero}, rules.InvalidAmount},
		{"deliver more than owned", nil, actions.DeliverToNPC{NPC: "betty", Item: "Carrot", Amount: dec("5")}, rules.InsufficientBalance},
		{"equip without avatar", func(ws *state.WorldState) { ws.Bumpkin = nil }, actions.EquipWearable{Slot: "hat", Name: "Farmer Hat"}, rules.MissingAvatar},
		{"equip unknown slot", nil, actions.EquipWearable{Slot: "tail", Name: "Farmer Hat"}, rules.InvalidSlot},
		{"equip unowned", nil, actions.EquipWearable{Slot: "hat", Name: "Crab Hat"}, rules.WearableNotOwned},
		{"equip in the wrong slot", nil, actions.EquipWearable{Slot: "pants", Name: "Farmer Hat"}, rules.InvalidSlot},
		{"equip unknown wearable", nil, actions.EquipWearable{Slot: "hat", Name: "Tin Foil Hat"}, rules.UnknownItem},
	}

	e := newTestExecutor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := marketWorld()
			if tt.setup != nil {
				tt.setup(ws)
			}
			before := ws.Clone()

			got, err := e.Apply(ws, tt.action, 1500)
			requireKind(t, err, tt.expected)
			requireUnchanged(t, before, ws, got)
		})
	}
}

func TestSellCrop(t *testing.T) {
	got, err := newTestExecutor().Apply(marketWorld(), actions.SellCrop{Crop: "Pumpkin", Amount: dec("2.5")}, 1500)
	require.NoError(t, err)
	assert.Equal(t, "21", got.Balance.String())
	assert.Equal(t, "0.5", got.Inventory.Balance("Pumpkin").String())
	assert.Equal(t, LabelCropSold, got.FarmActivity[0].Label)
}

func TestBuySeed(t *testing.T) {
	ws := marketWorld()
	got, err := newTestExecutor().Apply(ws, actions.BuySeed{Item: "Kale Seed", Amount: dec("2")}, 1500)
	require.NoError(t, err)
	assert.Equal(t, "6", got.Balance.String())
	assert.Equal(t, "2", got.Inventory.Balance("Kale Seed").String())
	assert.Equal(t, LabelSeedBought, got.FarmActivity[0].Label)
	assert.False(t, ws.Inventory.Has("Kale Seed"))
}

func TestBuySeed_ExactBalance(t *testing.T) {
	ws := marketWorld()
	ws.Balance = dec("14")
	got, err := newTestExecutor().Apply(ws, actions.BuySeed{Item: "Kale Seed", Amount: dec("2")}, 1500)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
}

func TestDeliverToNPC(t *testing.T) {
	e := newTestExecutor()
	ws := marketWorld()

	got, err := e.Apply(ws, actions.DeliverToNPC{NPC: "betty", Item: "Carrot", Amount: dec("2")}, 1500)
	require.NoError(t, err)
	assert.Equal(t, "21", got.Balance.String())
	assert.True(t, got.Inventory.Balance("Carrot").IsZero())

	betty, ok := got.NPCs.Get("betty")
	require.True(t, ok)
	assert.Equal(t, 1, betty.DeliveryCount)
	_, ok = ws.NPCs.Get("betty")
	assert.False(t, ok, "input registry must not gain the lazily created record")

	got, err = e.Apply(got, actions.DeliverToNPC{NPC: "betty", Item: "Pumpkin", Amount: dec("1")}, 1600)
	require.NoError(t, err)
	betty, _ = got.NPCs.Get("betty")
	assert.Equal(t, 2, betty.DeliveryCount)
	assert.Equal(t, 2, len(got.FarmActivity))
}

func TestEquipWearable(t *testing.T) {
	ws := marketWorld()
	ws.Bumpkin.Equipped = nil

	got, err := newTestExecutor().Apply(ws, actions.EquipWearable{Slot: "hat", Name: "Farmer Hat"}, 1500)
	require.NoError(t, err)
	assert.Equal(t, "Farmer Hat", got.Bumpkin.Equipped["hat"])
	assert.Nil(t, ws.Bumpkin.Equipped)
	assert.Equal(t, LabelWearableEquipped, got.FarmActivity[0].Label)
}
