package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thrasher-corp/chainmonitor/models"
)

// NetworkRepository holds every loaded Network keyed by slug.
type NetworkRepository struct {
	networks map[string]models.Network
}

// NewNetworkRepository loads every networks/*.json file under dir, each
// containing a single Network object.
func NewNetworkRepository(dir string) (*NetworkRepository, error) {
	networks := make(map[string]models.Network)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, LoadError("reading networks directory "+dir, err)
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

		var network models.Network
		if err := json.Unmarshal(data, &network); err != nil {
			return nil, LoadError("parsing "+path, err)
		}
		if network.Slug == "" {
			return nil, ValidationError(fmt.Sprintf("%s: network has no slug", path))
		}
		if _, exists := networks[network.Slug]; exists {
			return nil, ValidationError(fmt.Sprintf("%s: duplicate network slug %q", path, network.Slug))
		}
		networks[network.Slug] = network
	}

	return &NetworkRepository{networks: networks}, nil
}

// Network returns the network with the given slug.
func (r *NetworkRepository) Network(slug string) (*models.Network, bool) {
	n, ok := r.networks[slug]
	if !ok {
		return nil, false
	}
	return &n, true
}

// All returns every loaded network, keyed by slug.
func (r *NetworkRepository) All() map[string]models.Network {
	out := make(map[string]models.Network, len(r.networks))
	for k, v := range r.networks {
		out[k] = v
	}
	return out
}
