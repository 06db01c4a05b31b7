package pipeline

import "math"

// Stage identifies one step of the publishing pipeline. Stages execute
// strictly in declaration order; the count is fixed so progress percentages
// stay stable across releases.
type Stage int

const (
	StageResetting Stage = iota
	StagePreparing
	StageEnumerating
	StageNormalizing
	StageManifestBuilding
	StageConcatenating
	StagePublishing
	StageSegmenting
	StageCleaningUp
)

// TotalStages is the fixed number of pipeline stages.
const TotalStages = 9

var stageLabels = map[Stage]string{
	StageResetting:        "Resetting previous output",
	StagePreparing:        "Preparing workspace",
	StageEnumerating:      "Listing source clips",
	StageNormalizing:      "Normalizing clips",
	StageManifestBuilding: "Building concat manifest",
	StageConcatenating:    "Concatenating clips",
	StagePublishing:       "Publishing merged video",
	StageSegmenting:       "Generating HLS stream",
	StageCleaningUp:       "Cleaning up",
}

// Label returns the operator-facing description of the stage.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// ProgressPercent converts a completed-stage count into a 0..100 percentage.
func ProgressPercent(completed int) int {
	if completed <= 0 {
		return 0
	}
	if completed >= TotalStages {
		return 100
	}
	return int(math.Round(100 * float64(completed) / float64(TotalStages)))
}

// Event is emitted after each stage completes.
type Event struct {
	Stage     Stage
	Completed int
	Progress  int
	Label     string
}
