package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jwebster45206/farm-engine/internal/schema"
	"github.com/jwebster45206/farm-engine/pkg/catalog"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <world.json> [world.json...]\n", os.Args[0])
		os.Exit(1)
	}

	validator := &WorldValidator{catalog: catalog.Default()}
	failed := false
	for _, filename := range os.Args[1:] {
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	fmt.Println("World file(s) valid!")
}

// WorldValidator checks a world snapshot against the schema, the state
// invariants and the catalog.
type WorldValidator struct {
	catalog *catalog.Catalog
	errors  []string
}

func (v *WorldValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if err := schema.ValidateWorld(data); err != nil {
		return fmt.Errorf("file %s does not match the world schema: %w", filename, err)
	}

	var ws state.WorldState
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&ws); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	if err := ws.Validate(); err != nil {
		v.addError("invariant: %v", err)
	}
	v.validateBumpkin(&ws)
	v.validateObsession(&ws)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *WorldValidator) validateBumpkin(ws *state.WorldState) {
	if ws.Bumpkin == nil {
		return
	}
	slots := make([]string, 0, len(ws.Bumpkin.Equipped))
	for slot := range ws.Bumpkin.Equipped {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		name := ws.Bumpkin.Equipped[slot]
		if !v.catalog.HasSlot(slot) {
			v.addError("bumpkin.equipped: unknown slot %q", slot)
		}
		if !ws.OwnsWearable(name) {
			v.addError("bumpkin.equipped.%s: %q is not in the wardrobe", slot, name)
		}
	}
}

func (v *WorldValidator) validateObsession(ws *state.WorldState) {
	o := ws.BertObsession
	if o == nil {
		return
	}
	if o.Reward.IsNegative() {
		v.addError("bertObsession.reward: must not be negative, got %s", o.Reward)
	}
	if ws.NPCs == nil {
		v.addError("bertObsession: set on a farm with no npc registry")
	}
}

func (v *WorldValidator) addError(format string, args ...any) {
	v.errors = append(v.errors, "  - "+fmt.Sprintf(format, args...))
}
