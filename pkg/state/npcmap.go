package state

import (
	"encoding/json"
	"fmt"
)

// NPCProgress is a farm's relationship with one NPC.
type NPCProgress struct {
	DeliveryCount    int    `json:"deliveryCount"`
	QuestCompletedAt *int64 `json:"questCompletedAt,omitempty"`
}

// NPCRegistry maps an NPC id to its progress record. Records are created on
// first reference and never removed.
type NPCRegistry map[string]*NPCProgress

// GetOrCreate returns the record for id, creating a zeroed one if needed.
// The registry itself must already exist.
func (m NPCRegistry) GetOrCreate(id string) *NPCProgress {
	if npc, ok := m[id]; ok && npc != nil {
		return npc
	}
	npc := &NPCProgress{}
	m[id] = npc
	return npc
}

// Get returns the record for id without creating it.
func (m NPCRegistry) Get(id string) (*NPCProgress, bool) {
	npc, ok := m[id]
	return npc, ok && npc != nil
}

// Clone deep-copies the registry, keeping nil as nil.
func (m NPCRegistry) Clone() NPCRegistry {
	if m == nil {
		return nil
	}
	out := make(NPCRegistry, len(m))
	for id, npc := range m {
		if npc == nil {
			out[id] = nil
			continue
		}
		c := *npc
		if npc.QuestCompletedAt != nil {
			at := *npc.QuestCompletedAt
			c.QuestCompletedAt = &at
		}
		out[id] = &c
	}
	return out
}

// UnmarshalJSON allows NPCRegistry to accept either a map or an array of ids.
func (m *NPCRegistry) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = nil
		return nil
	}
	// Try to unmarshal as a map first
	var asMap map[string]*NPCProgress
	if err := json.Unmarshal(data, &asMap); err == nil {
		*m = asMap
		return nil
	}
	// Try to unmarshal as an array of ids
	var asArray []string
	if err := json.Unmarshal(data, &asArray); err == nil {
		result := make(NPCRegistry, len(asArray))
		for _, id := range asArray {
			result[id] = &NPCProgress{}
		}
		*m = result
		return nil
	}
	return fmt.Errorf("npcs: not a map or array: %s", string(data))
}
