// Package catalog holds the static price lists, wearable slots and chest
// rewards used by the action handlers.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Crops      map[string]string `yaml:"crops"`
	Seeds      map[string]string `yaml:"seeds"`
	Deliveries map[string]string `yaml:"deliveries"`
	Slots      []string          `yaml:"slots"`
	Wearables  map[string]string `yaml:"wearables"` // name -> slot
	Rewards    rewardsFile       `yaml:"rewards"`
}

type rewardsFile struct {
	DailyChest rewardFile `yaml:"daily_chest"`
	VIPChest   rewardFile `yaml:"vip_chest"`
}

type rewardFile struct {
	Tickets string            `yaml:"tickets"`
	Items   map[string]string `yaml:"items"`
}

// Reward is the content of a chest: seasonal tickets plus fixed items.
type Reward struct {
	Tickets decimal.Decimal
	Items   map[string]decimal.Decimal
}

// Catalog is the parsed price list.
type Catalog struct {
	Crops      map[string]decimal.Decimal // sell price per unit
	Seeds      map[string]decimal.Decimal // buy price per unit
	Deliveries map[string]decimal.Decimal // npc id -> coins per unit delivered
	Slots      []string
	Wearables  map[string]string // wearable name -> slot
	DailyChest Reward
	VIPChest   Reward
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog.yaml is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Prices are quoted strings so they are never
// routed through float64.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	crops, err := parsePrices("crops", f.Crops)
	if err != nil {
		return nil, err
	}
	seeds, err := parsePrices("seeds", f.Seeds)
	if err != nil {
		return nil, err
	}
	deliveries, err := parsePrices("deliveries", f.Deliveries)
	if err != nil {
		return nil, err
	}

	for name, slot := range f.Wearables {
		if !slices.Contains(f.Slots, slot) {
			return nil, fmt.Errorf("wearables: %q uses unknown slot %q", name, slot)
		}
	}
	daily, err := parseReward("daily_chest", f.Rewards.DailyChest)
	if err != nil {
		return nil, err
	}
	vip, err := parseReward("vip_chest", f.Rewards.VIPChest)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		Crops:      crops,
		Seeds:      seeds,
		Deliveries: deliveries,
		Slots:      f.Slots,
		Wearables:  f.Wearables,
		DailyChest: daily,
		VIPChest:   vip,
	}, nil
}

func parseReward(section string, raw rewardFile) (Reward, error) {
	r := Reward{Tickets: decimal.Zero}
	if raw.Tickets != "" {
		t, err := decimal.NewFromString(raw.Tickets)
		if err != nil {
			return Reward{}, fmt.Errorf("rewards.%s: invalid tickets %q: %w", section, raw.Tickets, err)
		}
		if t.IsNegative() {
			return Reward{}, fmt.Errorf("rewards.%s: negative tickets", section)
		}
		r.Tickets = t
	}
	items, err := parsePrices("rewards."+section, raw.Items)
	if err != nil {
		return Reward{}, err
	}
	r.Items = items
	return r, nil
}

func parsePrices(section string, raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for name, s := range raw {
		price, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid price %q for %q: %w", section, s, name, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%s: negative price for %q", section, name)
		}
		out[name] = price
	}
	return out, nil
}

// CropPrice returns the sell price of crop.
func (c *Catalog) CropPrice(crop string) (decimal.Decimal, bool) {
	p, ok := c.Crops[crop]
	return p, ok
}

// SeedPrice returns the buy price of seed.
func (c *Catalog) SeedPrice(seed string) (decimal.Decimal, bool) {
	p, ok := c.Seeds[seed]
	return p, ok
}

// DeliveryReward returns the coins paid per unit delivered to npc.
func (c *Catalog) DeliveryReward(npc string) (decimal.Decimal, bool) {
	p, ok := c.Deliveries[npc]
	return p, ok
}

// WearableSlot returns the slot a wearable is worn in.
func (c *Catalog) WearableSlot(name string) (string, bool) {
	slot, ok := c.Wearables[name]
	return slot, ok
}

// HasSlot reports whether slot is a known equipment slot.
func (c *Catalog) HasSlot(slot string) bool {
	return slices.Contains(c.Slots, slot)
}
