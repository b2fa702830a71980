package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/thrasher-corp/chainmonitor/models"
)

// MonitorRepository holds every loaded Monitor keyed by name.
type MonitorRepository struct {
	monitors map[string]models.Monitor
}

// NewMonitorRepository loads every monitors/*.json file under dir, each
// containing a single Monitor object, and validates every monitor's
// networks[i] and triggers[i] against the given repositories (spec.md §6).
func NewMonitorRepository(dir string, networks *NetworkRepository, triggers *TriggerRepository) (*MonitorRepository, error) {
	monitors := make(map[string]models.Monitor)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, LoadError("reading monitors directory "+dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, LoadError("reading "+path, err)
		}

		var monitor models.Monitor
		if err := json.Unmarshal(data, &monitor); err != nil {
			return nil, LoadError("parsing "+path, err)
		}
		if monitor.Name == "" {
			return nil, ValidationError(fmt.Sprintf("%s: monitor has no name", path))
		}
		if _, exists := monitors[monitor.Name]; exists {
			return nil, ValidationError(fmt.Sprintf("%s: duplicate monitor name %q", path, monitor.Name))
		}
		if err := validateMonitor(path, monitor, networks, triggers); err != nil {
			return nil, err
		}
		monitors[monitor.Name] = monitor
	}

	return &MonitorRepository{monitors: monitors}, nil
}

func validateMonitor(path string, m models.Monitor, networks *NetworkRepository, triggers *TriggerRepository) error {
	if len(m.Networks) == 0 {
		return ValidationError(fmt.Sprintf("%s: monitor %q references no networks", path, m.Name))
	}

	var networkType models.BlockChainType
	for _, slug := range m.Networks {
		network, ok := networks.Network(slug)
		if !ok {
			return ValidationError(fmt.Sprintf("%s: monitor %q references unknown network %q", path, m.Name, slug))
		}
		if networkType == "" {
			networkType = network.NetworkType
		}
	}

	for _, name := range m.Triggers {
		if _, ok := triggers.Trigger(name); !ok {
			return ValidationError(fmt.Sprintf("%s: monitor %q references unknown trigger %q", path, m.Name, name))
		}
	}

	for _, addr := range m.Addresses {
		if err := validateAddress(addr.Address, networkType); err != nil {
			return ValidationError(fmt.Sprintf("%s: monitor %q: %v", path, m.Name, err))
		}
	}

	for _, fc := range m.MatchConditions.Functions {
		if fc.Signature == "" {
			return ValidationError(fmt.Sprintf("%s: monitor %q has a function condition with no signature", path, m.Name))
		}
	}
	for _, ec := range m.MatchConditions.Events {
		if ec.Signature == "" {
			return ValidationError(fmt.Sprintf("%s: monitor %q has an event condition with no signature", path, m.Name))
		}
	}

	return nil
}

// validateAddress checks an address parses for its network's chain kind.
// EVM addresses are validated via go-ethereum's common.IsHexAddress (the
// pack's one EVM address-format authority); Stellar has no address-parsing
// library anywhere in the pack, so its check is a minimal strkey shape
// check (G/C prefix, 56 chars) rather than a fabricated dependency.
func validateAddress(addr string, networkType models.BlockChainType) error {
	switch networkType {
	case models.EVM:
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid EVM address %q", addr)
		}
	case models.Stellar:
		if len(addr) != 56 || (addr[0] != 'G' && addr[0] != 'C') {
			return fmt.Errorf("invalid Stellar address %q", addr)
		}
	default:
		if addr == "" {
			return fmt.Errorf("empty address for network type %q", networkType)
		}
	}
	return nil
}

// Monitor returns the monitor with the given name.
func (r *MonitorRepository) Monitor(name string) (*models.Monitor, bool) {
	m, ok := r.monitors[name]
	if !ok {
		return nil, false
	}
	return &m, true
}

// All returns every loaded monitor, keyed by name.
func (r *MonitorRepository) All() map[string]models.Monitor {
	out := make(map[string]models.Monitor, len(r.monitors))
	for k, v := range r.monitors {
		out[k] = v
	}
	return out
}
