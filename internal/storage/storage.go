package storage

import (
	"uniscope/internal/entity"
	"uniscope/internal/model"
)

// ChangeSink receives the per-block output of the processing pipeline.
type ChangeSink interface {
	PutChangeBatch(changes []entity.Change) error
	PutDecodeErrorBatch(errs []model.DecodeError) error
	Close() error
}

// BlockSink receives captured block traces.
type BlockSink interface {
	PutBlockBatch(blocks []model.Block) error
	Close() error
}
