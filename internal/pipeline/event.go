package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle point an Event reports.
type Phase string

const (
	PhaseStart    Phase = "START"
	PhaseFinished Phase = "FINISHED"
	PhaseError    Phase = "ERROR"
)

// Stage names, in execution order.
const (
	StageTileGen       = "tileGen"
	StageLinkAdjacent  = "linkAdj"
	StageRelaxation    = "generationCycles"
	StageColors        = "setTileColors"
	StageLandRegions   = "findLandRegionsParallel"
	StageOceans        = "indexOceansParallel"
	StageCoasts        = "assignCoastTiles"
	StageTerritories   = "createTerritories"
	StageHarbors       = "connectHarborsParallel"
	StageSpatialIndex  = "buildSpatialIndexParallel"
	StageTotal         = "workerInit"
	StageSerialization = "dataSerialization"
)

// Stages lists every stage that reports START, in execution order.
var Stages = []string{
	StageTileGen, StageLinkAdjacent, StageRelaxation, StageColors,
	StageLandRegions, StageOceans, StageCoasts, StageTerritories,
	StageHarbors, StageSpatialIndex, StageSerialization,
}

// DefaultExpected is reported as the expected duration of a stage with no
// recorded history.
const DefaultExpected = 999 * time.Second

// Event reports stage progress. Value is the expected duration in seconds on
// START and the measured duration on FINISHED. Err is set on ERROR.
type Event struct {
	RunID uuid.UUID `json:"run_id"`
	Stage string    `json:"stage"`
	Phase Phase     `json:"phase"`
	Value float64   `json:"value"`
	Err   string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}
