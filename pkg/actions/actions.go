// Package actions defines the closed set of player actions the engine
// understands, and their JSON envelope.
//
// An action is encoded as a flat JSON object whose "type" field carries the
// kind tag and whose remaining fields are the kind-specific payload:
//
//	{"type": "crop.sold", "crop": "Pumpkin", "amount": "3"}
//
// Only this package can add variants; the engine's handler table is checked
// against AllKinds in tests so every variant has a handler.
package actions

import (
	"github.com/shopspring/decimal"
)

// Kind is the tag identifying an action variant.
type Kind string

const (
	KindCompleteBertObsession Kind = "bertObsession.completed"
	KindSellCrop              Kind = "crop.sold"
	KindBuySeed               Kind = "seed.bought"
	KindDeliverToNPC          Kind = "npc.delivered"
	KindEquipWearable         Kind = "wearable.equipped"
	KindCollectDailyReward    Kind = "dailyReward.collected"
	KindOpenVIPChest          Kind = "vipChest.opened"
)

// AllKinds returns every action kind in a stable order.
func AllKinds() []Kind {
	return []Kind{
		KindCompleteBertObsession,
		KindSellCrop,
		KindBuySeed,
		KindDeliverToNPC,
		KindEquipWearable,
		KindCollectDailyReward,
		KindOpenVIPChest,
	}
}

// Action is a request to change a world. The unexported method closes the set.
type Action interface {
	Kind() Kind
	isAction()
}

// CompleteBertObsession claims the reward for Bert's current obsession.
// Legality depends only on the world and the timestamp.
type CompleteBertObsession struct{}

// SellCrop sells Amount of Crop at the market for coins.
type SellCrop struct {
	Crop   string          `json:"crop"`
	Amount decimal.Decimal `json:"amount"`
}

// BuySeed buys Amount of Item from the market with coins.
type BuySeed struct {
	Item   string          `json:"item"`
	Amount decimal.Decimal `json:"amount"`
}

// DeliverToNPC hands Amount of Item to NPC for a coin reward.
type DeliverToNPC struct {
	NPC    string          `json:"npc"`
	Item   string          `json:"item"`
	Amount decimal.Decimal `json:"amount"`
}

// EquipWearable puts an owned wearable into one of the avatar's slots.
type EquipWearable struct {
	Slot string `json:"slot"`
	Name string `json:"name"`
}

// CollectDailyReward opens the daily reward chest, once per UTC day.
type CollectDailyReward struct{}

// OpenVIPChest opens the VIP chest, once per UTC calendar month.
type OpenVIPChest struct{}

func (CompleteBertObsession) Kind() Kind { return KindCompleteBertObsession }
func (SellCrop) Kind() Kind              { return KindSellCrop }
func (BuySeed) Kind() Kind               { return KindBuySeed }
func (DeliverToNPC) Kind() Kind          { return KindDeliverToNPC }
func (EquipWearable) Kind() Kind         { return KindEquipWearable }
func (CollectDailyReward) Kind() Kind    { return KindCollectDailyReward }
func (OpenVIPChest) Kind() Kind          { return KindOpenVIPChest }

func (CompleteBertObsession) isAction() {}
func (SellCrop) isAction()              {}
func (BuySeed) isAction()               {}
func (DeliverToNPC) isAction()          {}
func (EquipWearable) isAction()         {}
func (CollectDailyReward) isAction()    {}
func (OpenVIPChest) isAction()          {}
