package filter

import "github.com/thrasher-corp/chainmonitor/models"

// MidnightBlockFilter is an explicit stub: Midnight blocks carry no decoded
// body yet (models.MidnightBlock), so there is nothing to match against.
type MidnightBlockFilter struct{}

func (f *MidnightBlockFilter) FilterBlock(network *models.Network, block *models.MidnightBlock, monitors []models.Monitor) ([]models.MonitorMatch, error) {
	return nil, nil
}
