package blockwatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/chainmonitor/blockchain"
	"github.com/thrasher-corp/chainmonitor/models"
)

type stubFilterService struct {
	delay   time.Duration
	matches []models.MonitorMatch
}

func (s *stubFilterService) FilterBlock(ctx context.Context, client blockchain.BlockChainClient, network *models.Network, block models.BlockType, monitors []models.Monitor) ([]models.MonitorMatch, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.matches, nil
}

type fakeEVMClient struct{ network *models.Network }

func (c *fakeEVMClient) Network() *models.Network { return c.network }
func (c *fakeEVMClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return 0, nil
}
func (c *fakeEVMClient) GetBlocks(ctx context.Context, start, end uint64) ([]models.BlockType, error) {
	return nil, nil
}

func TestBlockHandler_ShutdownCancelsInFlightFilteringWithoutEmitting(t *testing.T) {
	network := &models.Network{Slug: "eth-mainnet"}
	blockCh := make(chan *QueuedBlock, 1)
	triggerCh := make(chan *models.ProcessedBlock, 1)
	tracker := NewBlockTracker(10, nil)

	filterSvc := &stubFilterService{delay: 200 * time.Millisecond}
	handler := NewBlockHandler(filterSvc, tracker, blockCh, triggerCh, func(string) []models.Monitor { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	blockCh <- &QueuedBlock{Network: network, Client: &fakeEVMClient{network: network}, Block: &models.EVMBlock{NumberValue: 1}}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.Run(ctx, 1)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()

	select {
	case <-triggerCh:
		t.Fatal("expected no ProcessedBlock to be emitted after shutdown")
	default:
	}
}

func TestBlockHandler_RecordsTrackerAndForwardsMatches(t *testing.T) {
	network := &models.Network{Slug: "eth-mainnet"}
	blockCh := make(chan *QueuedBlock, 1)
	triggerCh := make(chan *models.ProcessedBlock, 1)
	tracker := NewBlockTracker(10, nil)

	match := &models.EVMMonitorMatch{Monitor: models.Monitor{Name: "m1"}}
	filterSvc := &stubFilterService{matches: []models.MonitorMatch{match}}
	handler := NewBlockHandler(filterSvc, tracker, blockCh, triggerCh, func(string) []models.Monitor { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blockCh <- &QueuedBlock{Network: network, Client: &fakeEVMClient{network: network}, Block: &models.EVMBlock{NumberValue: 42}}

	go handler.Run(ctx, 1)

	select {
	case processed := <-triggerCh:
		require.Equal(t, uint64(42), processed.BlockNumber)
		require.Equal(t, "eth-mainnet", processed.NetworkSlug)
		require.Len(t, processed.ProcessingResults, 1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ProcessedBlock")
	}

	last, ok := tracker.GetLastBlock("eth-mainnet")
	require.True(t, ok)
	require.Equal(t, uint64(42), last)
}

type recordingTriggerService struct {
	mu           sync.Mutex
	executed     []string
	executionIDs []string
}

func (r *recordingTriggerService) Execute(ctx context.Context, triggerNames []string, variables map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executed = append(r.executed, variables["monitor_name"])
	r.executionIDs = append(r.executionIDs, variables["execution_id"])
	return nil
}

func TestTriggerHandler_BuildsVariablesAndDispatchesPerMatch(t *testing.T) {
	triggerCh := make(chan *models.ProcessedBlock, 1)
	triggerSvc := &recordingTriggerService{}
	handler := NewTriggerHandler(triggerSvc, triggerCh)

	ctx, cancel := context.WithCancel(context.Background())

	match := &models.EVMMonitorMatch{
		Monitor: models.Monitor{Name: "transfer-watch", Triggers: []string{"slack-1"}},
		MatchedOnArgs: &models.EVMMatchArguments{
			Events: []models.EVMMatchParamsMap{{
				Signature: "Transfer(address,address,uint256)",
				Args: []models.EVMMatchParamEntry{
					{Name: "value", Value: "100"},
				},
			}},
		},
	}
	triggerCh <- &models.ProcessedBlock{
		BlockNumber:       1,
		NetworkSlug:       "eth-mainnet",
		ProcessingResults: []models.MonitorMatch{match},
	}

	go handler.Run(ctx)

	require.Eventually(t, func() bool {
		triggerSvc.mu.Lock()
		defer triggerSvc.mu.Unlock()
		return len(triggerSvc.executed) == 1
	}, time.Second, 10*time.Millisecond)

	triggerSvc.mu.Lock()
	require.NotEmpty(t, triggerSvc.executionIDs[0])
	triggerSvc.mu.Unlock()

	cancel()
}

func TestBuildVariables_IncludesFlatAndDottedEventKeys(t *testing.T) {
	match := &models.EVMMonitorMatch{
		Monitor: models.Monitor{Name: "m1"},
		MatchedOnArgs: &models.EVMMatchArguments{
			Events: []models.EVMMatchParamsMap{{
				Signature: "Transfer(address,address,uint256)",
				Args: []models.EVMMatchParamEntry{
					{Name: "value", Value: "100"},
				},
			}},
		},
	}

	vars := buildVariables(match)
	require.Equal(t, "100", vars["event_0_value"])
	require.Equal(t, "100", vars["events.0.value"])
	require.Equal(t, "Transfer(address,address,uint256)", vars["event_0_signature"])
	require.Equal(t, "Transfer(address,address,uint256)", vars["events.0.signature"])
}
