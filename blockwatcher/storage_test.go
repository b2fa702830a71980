package blockwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/chainmonitor/database"
	"github.com/thrasher-corp/chainmonitor/models"
)

func openTestSQLStorage(t *testing.T) *SQLBlockStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "blockwatcher-test.db")
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite3, DSN: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(); os.Remove(dbPath) })

	storage, err := NewSQLBlockStorage(db)
	require.NoError(t, err)
	return storage
}

func TestInMemoryBlockStorage_RoundTripsLastProcessed(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryBlockStorage()

	_, ok, err := s.GetLastProcessed(ctx, "eth-mainnet")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SaveLastProcessed(ctx, "eth-mainnet", 42))
	n, ok, err := s.GetLastProcessed(ctx, "eth-mainnet")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), n)
}

func TestSQLBlockStorage_LastProcessedUpsertsOnConflict(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLStorage(t)

	require.NoError(t, s.SaveLastProcessed(ctx, "stellar-testnet", 10))
	require.NoError(t, s.SaveLastProcessed(ctx, "stellar-testnet", 20))

	n, ok, err := s.GetLastProcessed(ctx, "stellar-testnet")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(20), n)
}

func TestSQLBlockStorage_SaveMissedBlockAndBlocks(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLStorage(t)

	require.NoError(t, s.SaveMissedBlock(ctx, "eth-mainnet", 101))

	block := &models.EVMBlock{NumberValue: 102, Hash: "0xabc"}
	require.NoError(t, s.SaveBlocks(ctx, "eth-mainnet", []models.BlockType{block}))
}

func TestSQLBlockStorage_UnknownNetworkHasNoLastProcessed(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLStorage(t)

	_, ok, err := s.GetLastProcessed(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}
