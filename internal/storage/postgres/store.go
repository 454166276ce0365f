package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uniscope/internal/entity"
	"uniscope/internal/model"
)

// Store provides Postgres persistence for entity state and pipeline progress.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, token0, token1, fee_tier, tick_spacing, created_at_block, created_at_ts, ignored, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee_tier = EXCLUDED.fee_tier,
				tick_spacing = EXCLUDED.tick_spacing,
				created_at_block = LEAST(pools.created_at_block, EXCLUDED.created_at_block),
				ignored = EXCLUDED.ignored,
				updated_at = now()
		`,
			pool.Address,
			pool.Token0,
			pool.Token1,
			int64(pool.FeeTier),
			pool.TickSpacing,
			int64(pool.CreatedAtBlock),
			int64(pool.CreatedAtTimestamp),
			pool.IgnorePool,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertEntityChanges materializes the latest value per (entity, pk, field).
// A block's changes arrive ordinal-ordered, so last write wins within the
// batch as well.
func (s *Store) UpsertEntityChanges(ctx context.Context, changes []entity.Change) error {
	if len(changes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, change := range changes {
		batch.Queue(`
			INSERT INTO entity_state (
				entity, pk, field, value, block, ordinal, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (entity, pk, field)
			DO UPDATE SET
				value = EXCLUDED.value,
				block = EXCLUDED.block,
				ordinal = EXCLUDED.ordinal,
				updated_at = now()
		`,
			change.Entity,
			change.PK,
			change.Field,
			change.New,
			int64(change.Block),
			int64(change.Ordinal),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range changes {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertDecodeErrors appends decode diagnostics.
func (s *Store) InsertDecodeErrors(ctx context.Context, errs []model.DecodeError) error {
	if len(errs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, decodeErr := range errs {
		batch.Queue(`
			INSERT INTO decode_errors (
				block_number, tx_id, ordinal, address, topic0, error, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, now())
		`,
			int64(decodeErr.BlockNumber),
			decodeErr.TxID,
			int64(decodeErr.Ordinal),
			decodeErr.Address,
			decodeErr.Topic0,
			decodeErr.Error,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range errs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed block for a named pipeline.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM pipeline_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return block, true, nil
}

// SaveState upserts the last processed block for a named pipeline.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, block)
	return err
}
