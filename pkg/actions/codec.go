package actions

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned when the envelope's type tag is not a known kind.
	ErrUnknownKind = errors.New("unknown action kind")
	// ErrMissingKind is returned when the envelope has no type tag.
	ErrMissingKind = errors.New("action type is required")
)

type envelope struct {
	Type Kind `json:"type"`
}

// PeekKind returns the type tag of an encoded action without decoding the payload.
func PeekKind(data []byte) (Kind, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("failed to decode action envelope: %w", err)
	}
	if env.Type == "" {
		return "", ErrMissingKind
	}
	return env.Type, nil
}

// Decode parses an encoded action.
func Decode(data []byte) (Action, error) {
	kind, err := PeekKind(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindCompleteBertObsession:
		return CompleteBertObsession{}, nil
	case KindSellCrop:
		return decodePayload[SellCrop](kind, data)
	case KindBuySeed:
		return decodePayload[BuySeed](kind, data)
	case KindDeliverToNPC:
		return decodePayload[DeliverToNPC](kind, data)
	case KindEquipWearable:
		return decodePayload[EquipWearable](kind, data)
	case KindCollectDailyReward:
		return CollectDailyReward{}, nil
	case KindOpenVIPChest:
		return OpenVIPChest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func decodePayload[T Action](kind Kind, data []byte) (Action, error) {
	var a T
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return a, nil
}

// Encode produces the JSON envelope for a. Keys are sorted, so equal actions
// always encode to equal bytes.
func Encode(a Action) ([]byte, error) {
	if a == nil {
		return nil, errors.New("action is nil")
	}
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", a.Kind(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", a.Kind(), err)
	}
	tag, err := json.Marshal(a.Kind())
	if err != nil {
		return nil, err
	}
	fields["type"] = tag

	return json.Marshal(fields)
}
