package postgres

import (
	"context"

	"uniscope/internal/indexer"
)

// StateCheckpoint stores stage progress in the pipeline_state table, keyed by
// stage name, so a restart against the same database resumes where it
// stopped.
type StateCheckpoint struct {
	ctx   context.Context
	store *Store
	name  string
}

func NewStateCheckpoint(ctx context.Context, store *Store, name string) *StateCheckpoint {
	return &StateCheckpoint{ctx: ctx, store: store, name: name}
}

func (c *StateCheckpoint) Load() (indexer.Checkpoint, bool, error) {
	block, ok, err := c.store.LoadState(c.ctx, c.name)
	if err != nil || !ok {
		return indexer.Checkpoint{}, false, err
	}
	return indexer.Checkpoint{LastProcessedBlock: block}, true, nil
}

func (c *StateCheckpoint) Save(lastProcessed uint64) error {
	return c.store.SaveState(c.ctx, c.name, lastProcessed)
}
