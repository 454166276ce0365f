package entity

import (
	"fmt"
	"strings"

	"uniscope/internal/store"
)

// Change is one entity-level field mutation derived from a keyed-store delta.
// Store keys are flat strings; sinks want rows addressed by entity type and
// primary key, so the split happens once here.
type Change struct {
	Block   uint64 `json:"block"`
	Ordinal uint64 `json:"ordinal"`
	Entity  string `json:"entity"`
	PK      string `json:"pk"`
	Field   string `json:"field"`
	Op      string `json:"op"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
}

// FromDeltas maps a block's flush deltas to entity changes, preserving order.
func FromDeltas(block uint64, deltas []store.Delta) ([]Change, error) {
	changes := make([]Change, 0, len(deltas))
	for _, delta := range deltas {
		change, err := FromDelta(block, delta)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// FromDelta maps one store delta to an entity change. Singleton entities
// (factory, bundle) use the fixed primary key "1"; day buckets key on
// "<owner>-<day>" so a row's identity survives the day rollover.
func FromDelta(block uint64, delta store.Delta) (Change, error) {
	change := Change{
		Block:   block,
		Ordinal: delta.Ordinal,
		Op:      string(delta.Op),
		Old:     delta.Old,
		New:     delta.New,
	}

	kind, rest, ok := strings.Cut(delta.Key, ":")
	if !ok {
		return Change{}, fmt.Errorf("entity: malformed store key %q", delta.Key)
	}

	switch kind {
	case "factory", "bundle":
		change.Entity, change.PK, change.Field = kind, "1", rest

	case "pool", "token", "tick", "position":
		pk, field, ok := strings.Cut(rest, ":")
		if !ok {
			return Change{}, fmt.Errorf("entity: malformed %s key %q", kind, delta.Key)
		}
		change.Entity, change.PK, change.Field = kind, pk, field

	case "pair":
		// Pair keys carry no field suffix; the value is the reference pool.
		change.Entity, change.PK, change.Field = kind, rest, "pool"

	case "uniswap_day_data":
		day, field, ok := strings.Cut(rest, ":")
		if !ok {
			return Change{}, fmt.Errorf("entity: malformed day key %q", delta.Key)
		}
		change.Entity, change.PK, change.Field = kind, day, field

	case "pool_day_data", "token_day_data":
		day, tail, ok := strings.Cut(rest, ":")
		if !ok {
			return Change{}, fmt.Errorf("entity: malformed day key %q", delta.Key)
		}
		owner, field, ok := strings.Cut(tail, ":")
		if !ok {
			return Change{}, fmt.Errorf("entity: malformed day key %q", delta.Key)
		}
		change.Entity, change.PK, change.Field = kind, owner+"-"+day, field

	default:
		return Change{}, fmt.Errorf("entity: unknown key prefix %q in %q", kind, delta.Key)
	}

	return change, nil
}
