package models

import (
	"multinoise/pkg/metrics"
)

// Job represents one unit of degradation work: a single noise model
// applied at a single severity level to a single source image.
type Job struct {
	// SourcePath is the path of the clean input image
	SourcePath string

	// ImageName is the base name of the source without extension
	ImageName string

	// Model is the noise model identifier, e.g. "gaussian"
	Model string

	// Level is the severity level, 1..MaxLevel
	Level int

	// MaxLevel is the number of levels generated for this model
	MaxLevel int

	// Seed is the sub-stream seed derived for this job
	Seed uint64

	// OutputPath is where the degraded image will be written
	OutputPath string
}

// Result records the outcome of one job.
type Result struct {
	// Job is the work item this result belongs to
	Job Job

	// Metrics holds the quality comparison between clean and degraded
	// image; nil when the job failed before comparison
	Metrics *metrics.Record

	// Parameter is the physical parameter value the level mapped to
	Parameter float64

	// Duration is the wall time the job took
	DurationMS int64

	// Err holds the failure, if any
	Err error
}

// Report summarizes a whole batch run.
type Report struct {
	// Inputs is the number of source images processed
	Inputs int

	// Succeeded and Failed count individual jobs
	Succeeded int
	Failed    int

	// Results holds every job outcome in deterministic order
	Results []Result
}
