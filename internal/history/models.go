package history

import "time"

// Status represents the lifecycle of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID           string
	Status       Status
	StartedAt    time.Time
	FinishedAt   *time.Time
	BaseModel    string
	OutputDir    string
	SkipDownload bool
	TrainImages  int
	TrainLabels  int
	ValidImages  int
	ValidLabels  int
	WeightsPath  string
	ExportPath   string
	ErrorMessage string
	Datasets     []Dataset
}

// Duration is the wall time of a finished run, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Dataset records what one source contributed to a run.
type Dataset struct {
	Name               string
	TrainImages        int
	TrainLabels        int
	ValidImages        int
	ValidLabels        int
	AnnotationsKept    int
	AnnotationsDropped int
	Skipped            bool
	SkipReason         string
}

// Outcome is written when a run finishes.
type Outcome struct {
	Status      Status
	TrainImages int
	TrainLabels int
	ValidImages int
	ValidLabels int
	WeightsPath string
	ExportPath  string
	Err         error
}
