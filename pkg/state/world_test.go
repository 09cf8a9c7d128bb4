package state

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jwebster45206/farm-engine/pkg/activity"
	"github.com/jwebster45206/farm-engine/pkg/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func sampleWorld() *WorldState {
	ws := NewWorldState()
	ws.Balance = decimal.RequireFromString("12.5")
	ws.Inventory = ledger.Ledger{"Pumpkin": decimal.NewFromInt(3)}
	ws.Wardrobe = map[string]int{"Farmer Hat": 1}
	ws.Bumpkin.Equipped = map[string]string{"hat": "Farmer Hat"}
	ws.NPCs = NPCRegistry{"bert": {DeliveryCount: 2, QuestCompletedAt: int64Ptr(1500)}}
	ws.BertObsession = &Obsession{
		Type:      ObsessionCollectible,
		Name:      "Pumpkin",
		Reward:    decimal.NewFromInt(5),
		StartDate: 1000,
		EndDate:   2000,
	}
	ws.DailyRewards = &DailyRewards{ChestCollectedAt: int64Ptr(800)}
	ws.VIP = &VIP{ExpiresAt: 5000, ChestOpenedAt: int64Ptr(700)}
	ws.FarmActivity = []activity.Entry{{Label: "Crop Sold", At: 900}}
	return ws
}

func TestWorldState_CloneIsDeep(t *testing.T) {
	original := sampleWorld()
	clone := original.Clone()

	require.NoError(t, clone.Inventory.Credit("Pumpkin", decimal.NewFromInt(1)))
	clone.Wardrobe["Farmer Hat"] = 0
	clone.Bumpkin.Equipped["hat"] = "Crown"
	clone.NPCs.GetOrCreate("bert").DeliveryCount = 9
	*clone.NPCs["bert"].QuestCompletedAt = 1999
	clone.NPCs.GetOrCreate("betty")
	clone.BertObsession.Name = "Sunflower"
	clone.FarmActivity[0].Label = "changed"
	clone.Balance = decimal.Zero
	*clone.DailyRewards.ChestCollectedAt = 1
	*clone.VIP.ChestOpenedAt = 2

	assert.Equal(t, "3", original.Inventory.Balance("Pumpkin").String())
	assert.Equal(t, 1, original.Wardrobe["Farmer Hat"])
	assert.Equal(t, "Farmer Hat", original.Bumpkin.Equipped["hat"])
	assert.Equal(t, 2, original.NPCs["bert"].DeliveryCount)
	assert.Equal(t, int64(1500), *original.NPCs["bert"].QuestCompletedAt)
	assert.NotContains(t, original.NPCs, "betty")
	assert.Equal(t, "Pumpkin", original.BertObsession.Name)
	assert.Equal(t, "Crop Sold", original.FarmActivity[0].Label)
	assert.Equal(t, "12.5", original.Balance.String())
	assert.Equal(t, int64(800), *original.DailyRewards.ChestCollectedAt)
	assert.Equal(t, int64(700), *original.VIP.ChestOpenedAt)
}

func TestWorldState_CloneKeepsMissingRegistry(t *testing.T) {
	ws := sampleWorld()
	ws.NPCs = nil
	ws.Bumpkin = nil

	clone := ws.Clone()
	assert.Nil(t, clone.NPCs)
	assert.Nil(t, clone.Bumpkin)
	assert.Nil(t, (*WorldState)(nil).Clone())
}

func TestWorldState_JSONRoundTripKeepsRegistryPresence(t *testing.T) {
	tests := []struct {
		name        string
		npcs        NPCRegistry
		expectNil   bool
		expectCount int
	}{
		{name: "absent registry", npcs: nil, expectNil: true},
		{name: "empty registry", npcs: NPCRegistry{}, expectCount: 0},
		{name: "populated registry", npcs: NPCRegistry{"bert": {DeliveryCount: 1}}, expectCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := sampleWorld()
			ws.NPCs = tt.npcs

			data, err := json.Marshal(ws)
			require.NoError(t, err)

			var decoded WorldState
			require.NoError(t, json.Unmarshal(data, &decoded))

			if tt.expectNil {
				assert.Nil(t, decoded.NPCs)
				return
			}
			require.NotNil(t, decoded.NPCs)
			assert.Len(t, decoded.NPCs, tt.expectCount)
		})
	}
}

func TestWorldState_JSONKeepsDecimals(t *testing.T) {
	ws := sampleWorld()
	ws.Inventory["Bertie Ticket"] = decimal.RequireFromString("0.30000000000000001")

	data, err := json.Marshal(ws)
	require.NoError(t, err)

	var decoded WorldState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "0.30000000000000001", decoded.Inventory.Balance("Bertie Ticket").String())
}

func TestNPCRegistry_UnmarshalArray(t *testing.T) {
	var reg NPCRegistry
	require.NoError(t, json.Unmarshal([]byte(`["bert","betty"]`), &reg))
	assert.Len(t, reg, 2)
	assert.Equal(t, 0, reg["bert"].DeliveryCount)

	err := json.Unmarshal([]byte(`42`), &reg)
	if err == nil || !strings.Contains(err.Error(), "not a map or array") {
		t.Errorf("Expected map-or-array error, got %v", err)
	}
}

func TestNPCRegistry_GetOrCreate(t *testing.T) {
	reg := NPCRegistry{}
	first := reg.GetOrCreate("bert")
	first.DeliveryCount = 3

	second := reg.GetOrCreate("bert")
	assert.Same(t, first, second)
	assert.Equal(t, 3, second.DeliveryCount)

	_, ok := reg.Get("betty")
	assert.False(t, ok)
}

func TestTimeWindow_Contains(t *testing.T) {
	w := TimeWindow{Start: 1000, End: 2000}
	tests := []struct {
		at       int64
		expected bool
	}{
		{999, false},
		{1000, true},
		{1500, true},
		{2000, true},
		{2001, false},
	}
	for _, tt := range tests {
		if got := w.Contains(tt.at); got != tt.expected {
			t.Errorf("Contains(%d): expected %v, got %v", tt.at, tt.expected, got)
		}
	}
}

func TestWorldState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ws *WorldState)
		wantErr string
	}{
		{name: "valid", mutate: func(ws *WorldState) {}},
		{name: "negative balance", mutate: func(ws *WorldState) { ws.Balance = decimal.NewFromInt(-1) }, wantErr: "balance is negative"},
		{name: "negative inventory", mutate: func(ws *WorldState) { ws.Inventory["Wood"] = decimal.NewFromInt(-2) }, wantErr: "inventory item \"Wood\""},
		{name: "negative wardrobe", mutate: func(ws *WorldState) { ws.Wardrobe["Hat"] = -1 }, wantErr: "wardrobe item"},
		{name: "inverted window", mutate: func(ws *WorldState) { ws.BertObsession.EndDate = 10 }, wantErr: "inverted"},
		{
			name:    "completion after window",
			mutate:  func(ws *WorldState) { *ws.NPCs["bert"].QuestCompletedAt = 2500 },
			wantErr: "after the current window",
		},
		{
			name:   "completion in an earlier window",
			mutate: func(ws *WorldState) { *ws.NPCs["bert"].QuestCompletedAt = 500 },
		},
		{
			name:    "negative delivery count",
			mutate:  func(ws *WorldState) { ws.NPCs["bert"].DeliveryCount = -1 },
			wantErr: "negative delivery count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := sampleWorld()
			tt.mutate(ws)
			err := ws.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCalendarWindows(t *testing.T) {
	const day = int64(24 * 60 * 60 * 1000)
	tests := []struct {
		name     string
		window   func(int64) TimeWindow
		at       int64
		expected TimeWindow
	}{
		{"day start", DayWindow, 2 * day, TimeWindow{Start: 2 * day, End: 3*day - 1}},
		{"day middle", DayWindow, 2*day + 12345, TimeWindow{Start: 2 * day, End: 3*day - 1}},
		{"day before epoch", DayWindow, -1, TimeWindow{Start: -day, End: -1}},
		{"january", MonthWindow, 9 * day, TimeWindow{Start: 0, End: 31*day - 1}},
		{"february 1970", MonthWindow, 31*day + 5, TimeWindow{Start: 31 * day, End: 59*day - 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.window(tt.at)
			if got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
			if !got.Contains(tt.at) {
				t.Errorf("Window %+v does not contain %d", got, tt.at)
			}
		})
	}
}

func TestVIP_Active(t *testing.T) {
	var none *VIP
	assert.False(t, none.Active(0))
	v := &VIP{ExpiresAt: 100}
	assert.True(t, v.Active(99))
	assert.False(t, v.Active(100))
}

func TestWorldState_ValidateReportsFirstKeyInOrder(t *testing.T) {
	ws := NewWorldState()
	ws.Wardrobe = map[string]int{"Zebra Hat": -1, "Apron": -1, "Mask": -1}
	ws.NPCs = NPCRegistry{"pete": {DeliveryCount: -1}, "betty": {DeliveryCount: -1}}
	for range 20 {
		err := ws.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"Apron"`)
	}
	ws.Wardrobe = nil
	for range 20 {
		err := ws.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"betty"`)
	}
}
