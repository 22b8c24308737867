package dispatch

import (
	"github.com/banshee-data/nextobject/internal/config"
	"github.com/banshee-data/nextobject/internal/pose"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
)

// FromTuning builds a dispatcher from the tuning config: the selector, the
// range converter (with the world transform when project_to_world is set)
// and the queue and stats settings.
func FromTuning(cfg *config.SelectorConfig, pub Publisher) (*Dispatcher, error) {
	model, err := selector.ParseCostModel(cfg.GetCostModel())
	if err != nil {
		return nil, err
	}
	sel := selector.New(selector.Config{AngleWeight: cfg.GetAngleWeight(), Model: model})

	tracker := pose.NewTracker()
	var conv scan.RangeToPointConverter = scan.LaserProjector{RangeCutoff: cfg.GetRangeCutoff()}
	if cfg.GetProjectToWorld() {
		conv = scan.WorldProjector{Base: conv, Pose: tracker}
	}

	return New(Config{
		Selector:      sel,
		Converter:     conv,
		Publisher:     pub,
		Tracker:       tracker,
		QueueDepth:    cfg.GetQueueDepth(),
		StatsInterval: cfg.GetStatsInterval(),
	}), nil
}
