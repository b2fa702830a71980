package blockwatcher

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thrasher-corp/chainmonitor/models"
)

// BlockStorage is the only process-wide durable state the pipeline needs
// (spec.md §4.4.1, §4.4.2, §6): per-network last-processed progress, missed
// block bookkeeping, and optional raw block dumps.
type BlockStorage interface {
	GetLastProcessed(ctx context.Context, networkSlug string) (uint64, bool, error)
	SaveLastProcessed(ctx context.Context, networkSlug string, blockNumber uint64) error
	SaveMissedBlock(ctx context.Context, networkSlug string, blockNumber uint64) error
	SaveBlocks(ctx context.Context, networkSlug string, blocks []models.BlockType) error
}

// InMemoryBlockStorage is the default BlockStorage when no SQL backend is
// configured: progress does not survive a process restart.
type InMemoryBlockStorage struct {
	mu            sync.RWMutex
	lastProcessed map[string]uint64
	missed        map[string][]uint64
}

func NewInMemoryBlockStorage() *InMemoryBlockStorage {
	return &InMemoryBlockStorage{
		lastProcessed: make(map[string]uint64),
		missed:        make(map[string][]uint64),
	}
}

func (s *InMemoryBlockStorage) GetLastProcessed(_ context.Context, slug string) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.lastProcessed[slug]
	return n, ok, nil
}

func (s *InMemoryBlockStorage) SaveLastProcessed(_ context.Context, slug string, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastProcessed[slug] = n
	return nil
}

func (s *InMemoryBlockStorage) SaveMissedBlock(_ context.Context, slug string, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missed[slug] = append(s.missed[slug], n)
	return nil
}

func (s *InMemoryBlockStorage) SaveBlocks(_ context.Context, slug string, blocks []models.BlockType) error {
	return nil
}

// SQLBlockStorage persists progress and missed blocks in a relational
// table via sqlx, shared with the audit trail's connection pool
// (grounded on the teacher's database/repository pattern).
type SQLBlockStorage struct {
	db *sqlx.DB
}

func NewSQLBlockStorage(db *sqlx.DB) (*SQLBlockStorage, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS block_progress (
		network_slug TEXT PRIMARY KEY,
		last_processed INTEGER NOT NULL
	)`); err != nil {
		return nil, errors.Wrap(err, "creating block_progress table")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS missed_block (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		network_slug TEXT NOT NULL,
		block_number INTEGER NOT NULL
	)`); err != nil {
		return nil, errors.Wrap(err, "creating missed_block table")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS block_dump (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		network_slug TEXT NOT NULL,
		block_number INTEGER NOT NULL,
		payload TEXT NOT NULL
	)`); err != nil {
		return nil, errors.Wrap(err, "creating block_dump table")
	}
	return &SQLBlockStorage{db: db}, nil
}

func (s *SQLBlockStorage) GetLastProcessed(ctx context.Context, slug string) (uint64, bool, error) {
	query := s.db.Rebind(`SELECT last_processed FROM block_progress WHERE network_slug = ?`)
	var n uint64
	err := s.db.GetContext(ctx, &n, query, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "querying last processed block")
	}
	return n, true, nil
}

func (s *SQLBlockStorage) SaveLastProcessed(ctx context.Context, slug string, n uint64) error {
	query := s.db.Rebind(`INSERT INTO block_progress (network_slug, last_processed) VALUES (?, ?)
		ON CONFLICT(network_slug) DO UPDATE SET last_processed = excluded.last_processed`)
	_, err := s.db.ExecContext(ctx, query, slug, n)
	return errors.Wrap(err, "saving last processed block")
}

func (s *SQLBlockStorage) SaveMissedBlock(ctx context.Context, slug string, n uint64) error {
	query := s.db.Rebind(`INSERT INTO missed_block (network_slug, block_number) VALUES (?, ?)`)
	_, err := s.db.ExecContext(ctx, query, slug, n)
	return errors.Wrap(err, "saving missed block")
}

func (s *SQLBlockStorage) SaveBlocks(ctx context.Context, slug string, blocks []models.BlockType) error {
	query := s.db.Rebind(`INSERT INTO block_dump (network_slug, block_number, payload) VALUES (?, ?, ?)`)
	for _, b := range blocks {
		payload, err := json.Marshal(b)
		if err != nil {
			return errors.Wrap(err, "marshaling block dump")
		}
		if _, err := s.db.ExecContext(ctx, query, slug, b.Number(), string(payload)); err != nil {
			return errors.Wrap(err, "saving block dump")
		}
	}
	return nil
}
