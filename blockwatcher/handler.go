package blockwatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/thrasher-corp/chainmonitor/common/convert"
	"github.com/thrasher-corp/chainmonitor/models"
)

// TriggerExecutionService is the outward collaborator the trigger handler
// drives; the concrete implementation (script/webhook/chat/email dispatch)
// lives outside the block pipeline.
type TriggerExecutionService interface {
	Execute(ctx context.Context, triggerNames []string, variables map[string]string) error
}

// BlockHandler runs a fixed pool of workers pulling QueuedBlock values off
// a shared channel, filtering each and forwarding matches to the trigger
// handler (spec.md §4.4.3).
type BlockHandler struct {
	filter  FilterService
	tracker *BlockTracker
	blockCh <-chan *QueuedBlock
	triggerCh chan<- *models.ProcessedBlock
	monitors func(networkSlug string) []models.Monitor
}

// NewBlockHandler wires a handler that reads blocks from blockCh and
// writes ProcessedBlock values to triggerCh. monitors resolves the active
// monitor set for a given network slug at dispatch time (so a hot reload
// of the monitor repository is picked up on the next block).
func NewBlockHandler(filterSvc FilterService, tracker *BlockTracker, blockCh <-chan *QueuedBlock, triggerCh chan<- *models.ProcessedBlock, monitors func(string) []models.Monitor) *BlockHandler {
	return &BlockHandler{filter: filterSvc, tracker: tracker, blockCh: blockCh, triggerCh: triggerCh, monitors: monitors}
}

// Run starts numWorkers goroutines and blocks until ctx is cancelled, at
// which point all workers finish their current block and return.
func (h *BlockHandler) Run(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.worker(ctx)
		}()
	}
	wg.Wait()
}

func (h *BlockHandler) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case queued, ok := <-h.blockCh:
			if !ok {
				return
			}
			h.process(ctx, queued)
		}
	}
}

func (h *BlockHandler) process(ctx context.Context, queued *QueuedBlock) {
	applicable := h.monitors(queued.Network.Slug)

	matches, err := h.filter.FilterBlock(ctx, queued.Client, queued.Network, queued.Block, applicable)
	if ctx.Err() != nil {
		// Shutdown raced the filter call: drop this block's result rather
		// than emit a partial or stale ProcessedBlock.
		return
	}
	if err != nil {
		InternalError(fmt.Sprintf("filtering block %d on %s: %v", queued.Block.Number(), queued.Network.Slug, err))
	}

	h.tracker.RecordBlock(ctx, queued.Network, queued.Block.Number())

	processed := &models.ProcessedBlock{
		BlockNumber:       queued.Block.Number(),
		NetworkSlug:       queued.Network.Slug,
		ProcessingResults: matches,
	}

	select {
	case h.triggerCh <- processed:
	case <-ctx.Done():
	}
}

// TriggerHandler fans each ProcessedBlock's matches out to the configured
// trigger execution service, one goroutine per ProcessedBlock.
type TriggerHandler struct {
	triggers  TriggerExecutionService
	triggerCh <-chan *models.ProcessedBlock
}

func NewTriggerHandler(triggers TriggerExecutionService, triggerCh <-chan *models.ProcessedBlock) *TriggerHandler {
	return &TriggerHandler{triggers: triggers, triggerCh: triggerCh}
}

// Run reads ProcessedBlock values until ctx is cancelled or the channel is
// closed, spawning one goroutine per block that dispatches every match's
// triggers independently.
func (h *TriggerHandler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case processed, ok := <-h.triggerCh:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.dispatch(ctx, processed)
			}()
		}
	}
}

func (h *TriggerHandler) dispatch(ctx context.Context, processed *models.ProcessedBlock) {
	for _, match := range processed.ProcessingResults {
		variables := buildVariables(match)
		variables["execution_id"] = newExecutionID()
		triggers := triggerNames(match)
		if err := h.triggers.Execute(ctx, triggers, variables); err != nil {
			InternalError(fmt.Sprintf("executing triggers for monitor %s on block %d (execution %s): %v",
				match.MonitorName(), processed.BlockNumber, variables["execution_id"], err))
		}
	}
}

// newExecutionID mints a correlation id for a single match's trigger
// dispatch, threaded through buildVariables as "execution_id" so webhook
// payloads, chat messages and logs from every trigger the match fires can
// all be tied back to the same dispatch.
func newExecutionID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}

func triggerNames(match models.MonitorMatch) []string {
	switch m := match.(type) {
	case *models.EVMMonitorMatch:
		return m.Monitor.Triggers
	case *models.StellarMonitorMatch:
		return m.Monitor.Triggers
	default:
		return nil
	}
}

// buildVariables flattens a MonitorMatch into the string-keyed
// interpolation context trigger bodies are rendered against: the monitor
// name, transaction identity fields, and every decoded event/function
// argument keyed "event_<i>_<name>" / "function_<i>_<name>".
func buildVariables(match models.MonitorMatch) map[string]string {
	vars := map[string]string{"monitor_name": match.MonitorName()}

	switch m := match.(type) {
	case *models.EVMMonitorMatch:
		if m.Transaction != nil {
			vars["transaction_hash"] = m.Transaction.Hash().Hex()
			if m.From != "" {
				vars["transaction_from"] = m.From
			}
			if m.Transaction.To() != nil {
				vars["transaction_to"] = m.Transaction.To().Hex()
			}
			vars["transaction_value"] = m.Transaction.Value().String()
			vars["transaction_value_ether"] = convert.WeiToEtherString(m.Transaction.Value())
		}
		if m.MatchedOnArgs != nil {
			addArgEntries(vars, "function", m.MatchedOnArgs.Functions)
			addArgEntries(vars, "event", m.MatchedOnArgs.Events)
		}
	case *models.StellarMonitorMatch:
		vars["transaction_hash"] = m.Transaction.Hash
		if m.MatchedOnArgs != nil {
			addStellarArgEntries(vars, "function", m.MatchedOnArgs.Functions)
			addStellarArgEntries(vars, "event", m.MatchedOnArgs.Events)
		}
	}

	return vars
}

// dottedNamespace pluralizes prefix ("event"/"function") into the dotted
// namespace root ("events"/"functions") used alongside the legacy flat keys.
func dottedNamespace(prefix string) string {
	return prefix + "s"
}

func addArgEntries(vars map[string]string, prefix string, entries []models.EVMMatchParamsMap) {
	namespace := dottedNamespace(prefix)
	for idx, entry := range entries {
		vars[fmt.Sprintf("%s_%d_signature", prefix, idx)] = entry.Signature
		vars[fmt.Sprintf("%s.%d.signature", namespace, idx)] = entry.Signature
		for _, arg := range entry.Args {
			vars[fmt.Sprintf("%s_%d_%s", prefix, idx, arg.Name)] = arg.Value
			vars[fmt.Sprintf("%s.%d.%s", namespace, idx, arg.Name)] = arg.Value
		}
	}
}

func addStellarArgEntries(vars map[string]string, prefix string, entries []models.StellarMatchParamsMap) {
	namespace := dottedNamespace(prefix)
	for idx, entry := range entries {
		vars[fmt.Sprintf("%s_%d_signature", prefix, idx)] = entry.Signature
		vars[fmt.Sprintf("%s.%d.signature", namespace, idx)] = entry.Signature
		for name, value := range entry.Args {
			vars[fmt.Sprintf("%s_%d_%s", prefix, idx, name)] = value
			vars[fmt.Sprintf("%s.%d.%s", namespace, idx, name)] = value
		}
	}
}
