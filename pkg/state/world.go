package state

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/farm-engine/pkg/activity"
	"github.com/jwebster45206/farm-engine/pkg/ledger"
	"github.com/shopspring/decimal"
)

// BertID is the NPC whose quest is described by WorldState.BertObsession.
const BertID = "bert"

// ObsessionType identifies what an obsession asks the player to own.
type ObsessionType string

const (
	ObsessionCollectible ObsessionType = "collectible"
	ObsessionWearable    ObsessionType = "wearable"
)

// Obsession is Bert's time-boxed request: own the named item between
// StartDate and EndDate (unix ms, inclusive) to earn Reward tickets.
type Obsession struct {
	Type      ObsessionType   `json:"type"`
	Name      string          `json:"name"`
	Reward    decimal.Decimal `json:"reward"`
	StartDate int64           `json:"startDate"`
	EndDate   int64           `json:"endDate"`
}

// Window returns the obsession's eligibility window.
func (o *Obsession) Window() TimeWindow {
	return TimeWindow{Start: o.StartDate, End: o.EndDate}
}

// Bumpkin is the player's avatar.
type Bumpkin struct {
	ID         int               `json:"id"`
	Experience decimal.Decimal   `json:"experience"`
	Equipped   map[string]string `json:"equipped,omitempty"` // slot -> wearable name
}

// DailyRewards tracks the once-a-day reward chest.
type DailyRewards struct {
	ChestCollectedAt *int64 `json:"chestCollectedAt,omitempty"`
}

// VIP is a time-limited membership. It grants access while at < ExpiresAt.
type VIP struct {
	ExpiresAt     int64  `json:"expiresAt"`
	ChestOpenedAt *int64 `json:"chestOpenedAt,omitempty"`
}

// Active reports whether the membership covers at. A nil VIP is never active.
func (v *VIP) Active(at int64) bool {
	return v != nil && at < v.ExpiresAt
}

// WorldState is the full persisted snapshot of one player's farm.
type WorldState struct {
	ID            uuid.UUID        `json:"id"`
	Balance       decimal.Decimal  `json:"balance"`
	Inventory     ledger.Ledger    `json:"inventory"`
	Wardrobe      map[string]int   `json:"wardrobe"`
	Bumpkin       *Bumpkin         `json:"bumpkin,omitempty"`
	NPCs          NPCRegistry      `json:"npcs"` // null means the registry was never initialised
	BertObsession *Obsession       `json:"bertObsession,omitempty"`
	DailyRewards  *DailyRewards    `json:"dailyRewards,omitempty"`
	VIP           *VIP             `json:"vip,omitempty"`
	FarmActivity  []activity.Entry `json:"farmActivity,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NewWorldState returns an empty farm with a fresh ID, an avatar and an
// initialised NPC registry.
func NewWorldState() *WorldState {
	return &WorldState{
		ID:        uuid.New(),
		Balance:   decimal.Zero,
		Inventory: ledger.Ledger{},
		Wardrobe:  map[string]int{},
		Bumpkin:   &Bumpkin{Experience: decimal.Zero, Equipped: map[string]string{}},
		NPCs:      NPCRegistry{},
		CreatedAt: time.Now(),
	}
}

// Clone returns a full logical copy of ws. Mutating the clone never
// affects ws.
func (ws *WorldState) Clone() *WorldState {
	if ws == nil {
		return nil
	}
	out := *ws
	out.Inventory = ws.Inventory.Clone()
	if ws.Wardrobe != nil {
		out.Wardrobe = maps.Clone(ws.Wardrobe)
	}
	if ws.Bumpkin != nil {
		b := *ws.Bumpkin
		if ws.Bumpkin.Equipped != nil {
			b.Equipped = maps.Clone(ws.Bumpkin.Equipped)
		}
		out.Bumpkin = &b
	}
	out.NPCs = ws.NPCs.Clone()
	if ws.BertObsession != nil {
		o := *ws.BertObsession
		out.BertObsession = &o
	}
	if ws.DailyRewards != nil {
		d := DailyRewards{ChestCollectedAt: cloneStamp(ws.DailyRewards.ChestCollectedAt)}
		out.DailyRewards = &d
	}
	if ws.VIP != nil {
		v := VIP{ExpiresAt: ws.VIP.ExpiresAt, ChestOpenedAt: cloneStamp(ws.VIP.ChestOpenedAt)}
		out.VIP = &v
	}
	if ws.FarmActivity != nil {
		out.FarmActivity = append([]activity.Entry(nil), ws.FarmActivity...)
	}
	return &out
}

func cloneStamp(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// OwnsWearable reports whether the wardrobe holds at least one of name.
func (ws *WorldState) OwnsWearable(name string) bool {
	return ws.Wardrobe[name] > 0
}

// Validate checks the cross-entity invariants every published state must hold.
func (ws *WorldState) Validate() error {
	if ws == nil {
		return fmt.Errorf("world state is nil")
	}
	if ws.Balance.IsNegative() {
		return fmt.Errorf("balance is negative: %s", ws.Balance)
	}
	if key, ok := ws.Inventory.Negative(); ok {
		return fmt.Errorf("inventory item %q is negative: %s", key, ws.Inventory[key])
	}
	for _, name := range slices.Sorted(maps.Keys(ws.Wardrobe)) {
		if count := ws.Wardrobe[name]; count < 0 {
			return fmt.Errorf("wardrobe item %q is negative: %d", name, count)
		}
	}
	if ws.BertObsession != nil {
		w := ws.BertObsession.Window()
		if !w.Valid() {
			return fmt.Errorf("obsession window is inverted: %d > %d", w.Start, w.End)
		}
		if bert, ok := ws.NPCs.Get(BertID); ok && bert.QuestCompletedAt != nil && *bert.QuestCompletedAt > w.End {
			return fmt.Errorf("npc %q completed a quest at %d, after the current window ends at %d",
				BertID, *bert.QuestCompletedAt, w.End)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(ws.NPCs)) {
		if npc := ws.NPCs[id]; npc != nil && npc.DeliveryCount < 0 {
			return fmt.Errorf("npc %q has a negative delivery count", id)
		}
	}
	return nil
}
