package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"uniscope/internal/entity"
	"uniscope/internal/model"
)

// Sink adapts Store to the pipeline's change-sink interface. The context is
// fixed at construction; batch writes inherit the run's cancellation.
type Sink struct {
	ctx   context.Context
	store *Store
}

func NewSink(ctx context.Context, store *Store) *Sink {
	return &Sink{ctx: ctx, store: store}
}

// PutChangeBatch writes the batch to entity state and mirrors pool
// registrations into the pools table.
func (s *Sink) PutChangeBatch(changes []entity.Change) error {
	var pools []model.Pool
	for _, change := range changes {
		if change.Entity != "pool" || change.Field != "info" {
			continue
		}
		var pool model.Pool
		if err := json.Unmarshal([]byte(change.New), &pool); err != nil {
			return fmt.Errorf("parse pool info change: %w", err)
		}
		pools = append(pools, pool)
	}

	if err := s.store.UpsertPools(s.ctx, pools); err != nil {
		return err
	}
	return s.store.UpsertEntityChanges(s.ctx, changes)
}

func (s *Sink) PutDecodeErrorBatch(errs []model.DecodeError) error {
	return s.store.InsertDecodeErrors(s.ctx, errs)
}

func (s *Sink) Close() error {
	s.store.Close()
	return nil
}
