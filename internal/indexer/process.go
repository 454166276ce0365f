package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"uniscope/internal/aggregate"
	"uniscope/internal/entity"
	"uniscope/internal/extract"
	"uniscope/internal/model"
	"uniscope/internal/storage"
	"uniscope/internal/store"
)

// BlockSource yields block traces in ascending order; io.EOF ends the run.
type BlockSource interface {
	Next() (model.Block, error)
}

// ProcessRunner drives one block at a time through extraction, aggregation
// and the flush-to-sink handoff.
type ProcessRunner struct {
	state      store.Store
	extractor  *extract.Extractor
	aggregator *aggregate.Aggregator
	sink       storage.ChangeSink
	logger     *zap.Logger
	checkpoint Checkpointer
}

// NewProcessRunner builds a ProcessRunner with its dependencies. A nil
// checkpoint disables progress tracking.
func NewProcessRunner(state store.Store, extractor *extract.Extractor, aggregator *aggregate.Aggregator, sink storage.ChangeSink, checkpoint Checkpointer, logger *zap.Logger) *ProcessRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessRunner{
		state:      state,
		extractor:  extractor,
		aggregator: aggregator,
		sink:       sink,
		logger:     logger,
		checkpoint: checkpoint,
	}
}

// Run consumes the block source until io.EOF. Blocks at or below the
// checkpoint are skipped; each processed block flushes exactly once.
func (r *ProcessRunner) Run(ctx context.Context, source BlockSource) error {
	if r.state == nil {
		return fmt.Errorf("state store is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("change sink is nil")
	}

	var resumeAfter uint64
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok {
			resumeAfter = cp.LastProcessedBlock
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", resumeAfter))
		}
	}

	processed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		block, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read block: %w", err)
		}
		if block.Number <= resumeAfter {
			continue
		}

		if err := r.processOne(ctx, block); err != nil {
			return fmt.Errorf("process block %d: %w", block.Number, err)
		}
		processed++
	}

	r.logger.Info("processing complete", zap.Int("blocks", processed))
	return nil
}

func (r *ProcessRunner) processOne(ctx context.Context, block model.Block) error {
	out := r.extractor.ExtractBlock(ctx, block)

	if err := r.aggregator.ProcessBlock(block, out); err != nil {
		return err
	}

	deltas := r.state.Flush()
	changes, err := entity.FromDeltas(block.Number, deltas)
	if err != nil {
		return err
	}

	if err := r.sink.PutChangeBatch(changes); err != nil {
		return fmt.Errorf("store changes: %w", err)
	}
	if err := r.sink.PutDecodeErrorBatch(out.Errors); err != nil {
		return fmt.Errorf("store decode errors: %w", err)
	}

	if r.checkpoint != nil {
		if err := r.checkpoint.Save(block.Number); err != nil {
			return err
		}
	}

	r.logger.Debug("block processed",
		zap.Uint64("block", block.Number),
		zap.Int("events", len(out.Events)),
		zap.Int("changes", len(changes)),
		zap.Int("decode_errors", len(out.Errors)))
	return nil
}
