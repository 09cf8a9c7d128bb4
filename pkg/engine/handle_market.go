package engine

import (
	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/ledger"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

const (
	LabelCropSold   = "Crop Sold"
	LabelSeedBought = "Seed Bought"
)

// sellCrop: MissingAvatar, InvalidAmount, UnknownItem, InsufficientBalance.
func sellCrop(env *Env, draft *state.WorldState, a actions.SellCrop, at int64) error {
	const kind = actions.KindSellCrop

	if err := rules.RequireAvatar(draft, kind); err != nil {
		return err
	}
	if err := rules.RequirePositive(a.Amount, kind); err != nil {
		return err
	}
	price, ok := env.Catalog.CropPrice(a.Crop)
	if !ok {
		return rules.Fail(rules.UnknownItem, kind, "%s is not sold at the market", a.Crop)
	}
	if err := rules.RequireItemBalance(draft, a.Crop, a.Amount, kind); err != nil {
		return err
	}

	if err := debitInventory(draft, a.Crop, a.Amount, kind); err != nil {
		return err
	}
	draft.Balance = ledger.Add(draft.Balance, price.Mul(a.Amount))
	draft.FarmActivity = env.Tracker.Record(draft.FarmActivity, LabelCropSold, at)
	return nil
}

// buySeed: MissingAvatar, InvalidAmount, UnknownItem, InsufficientBalance.
func buySeed(env *Env, draft *state.WorldState, a actions.BuySeed, at int64) error {
	const kind = actions.KindBuySeed

	if err := rules.RequireAvatar(draft, kind); err != nil {
		return err
	}
	if err := rules.RequirePositive(a.Amount, kind); err != nil {
		return err
	}
	price, ok := env.Catalog.SeedPrice(a.Item)
	if !ok {
		return rules.Fail(rules.UnknownItem, kind, "%s is not sold at the market", a.Item)
	}
	cost := price.Mul(a.Amount)
	if err := rules.RequireBalance(draft, cost, kind); err != nil {
		return err
	}

	balance, err := ledger.Sub(draft.Balance, cost)
	if err != nil {
		return rules.Fail(rules.InsufficientBalance, kind, "%v", err)
	}
	draft.Balance = balance
	if err := creditInventory(draft, a.Item, a.Amount, kind); err != nil {
		return err
	}
	draft.FarmActivity = env.Tracker.Record(draft.FarmActivity, LabelSeedBought, at)
	return nil
}
