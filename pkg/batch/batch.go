// Package batch runs noise models over a set of source images in
// parallel and collects quality metrics for every generated variant.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"multinoise/internal/models"
	"multinoise/pkg/imageio"
	"multinoise/pkg/imagery"
	"multinoise/pkg/metrics"
	"multinoise/pkg/noise"
)

// Options configures a batch run.
type Options struct {
	// InputPaths are the clean source images
	InputPaths []string

	// OutputDir is the root of the generated dataset; variants land in
	// per-model subdirectories
	OutputDir string

	// Models selects the noise models to apply; empty means all of them
	Models []string

	// Levels is the number of severity levels per model
	Levels int

	// Seed is the base seed; every job derives its own sub-stream
	Seed uint64

	// NumCores is the worker count
	NumCores int

	// Format forces the output extension ("tiff", "png", "jpeg");
	// empty keeps each source's format
	Format string

	// Thumbnails enables PNG previews next to each variant
	Thumbnails bool

	// ThumbnailSize is the longest preview side in pixels
	ThumbnailSize int

	// Verbose prints per-image progress
	Verbose bool
}

// Runner executes batch jobs against a configured noise generator.
type Runner struct {
	gen  *noise.Generator
	opts Options
}

// NewRunner validates the options and returns a runner. Unknown model
// names are rejected up front so a typo fails before any work is done.
func NewRunner(gen *noise.Generator, opts Options) (*Runner, error) {
	if len(opts.InputPaths) == 0 {
		return nil, fmt.Errorf("no input images given")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("no output directory given")
	}
	if opts.Levels < 1 {
		return nil, fmt.Errorf("levels must be at least 1, got %d", opts.Levels)
	}
	if opts.NumCores < 1 {
		opts.NumCores = 1
	}
	if opts.ThumbnailSize < 1 {
		opts.ThumbnailSize = 256
	}
	if len(opts.Models) == 0 {
		opts.Models = gen.Names()
	}
	for _, name := range opts.Models {
		if _, err := gen.Model(name); err != nil {
			return nil, err
		}
	}
	return &Runner{gen: gen, opts: opts}, nil
}

// Run processes every input image through every selected model and
// level. Images are loaded once each; the model/level jobs of one image
// run in parallel across the configured cores. Job seeds are derived
// from the base seed and a global job index, so results are fully
// deterministic regardless of worker scheduling.
func (r *Runner) Run() (*models.Report, error) {
	report := &models.Report{Inputs: len(r.opts.InputPaths)}

	jobIndex := 0
	for n, path := range r.opts.InputPaths {
		if r.opts.Verbose {
			fmt.Printf("Processing image %d/%d: %s\n", n+1, len(r.opts.InputPaths), filepath.Base(path))
		}

		img, meta, err := imageio.Load(path)
		if err != nil {
			// The image's whole job block still consumes indices so
			// seeds stay stable when a bad input is fixed and rerun.
			// The failure counts once, one Result per Failed increment.
			jobIndex += len(r.opts.Models) * r.opts.Levels
			report.Failed++
			report.Results = append(report.Results, models.Result{
				Job: models.Job{SourcePath: path, ImageName: baseName(path)},
				Err: err,
			})
			continue
		}

		jobs := make([]models.Job, 0, len(r.opts.Models)*r.opts.Levels)
		for _, model := range r.opts.Models {
			for level := 1; level <= r.opts.Levels; level++ {
				jobs = append(jobs, models.Job{
					SourcePath: path,
					ImageName:  baseName(path),
					Model:      model,
					Level:      level,
					MaxLevel:   r.opts.Levels,
					Seed:       noise.DeriveSeed(r.opts.Seed, jobIndex),
					OutputPath: r.outputPath(path, model, level),
				})
				jobIndex++
			}
		}

		results, err := r.runJobs(img, meta, jobs)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			if res.Err != nil {
				report.Failed++
			} else {
				report.Succeeded++
			}
		}
		report.Results = append(report.Results, results...)
	}
	return report, nil
}

// runJobs fans one image's jobs across the worker pool.
func (r *Runner) runJobs(img *imagery.Image, meta *imagery.Metadata, jobs []models.Job) ([]models.Result, error) {
	for _, job := range jobs {
		if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0755); err != nil {
			return nil, fmt.Errorf("error creating output directory: %w", err)
		}
	}

	jobChan := make(chan models.Job)
	resultChan := make(chan models.Result)

	var wg sync.WaitGroup
	for c := 0; c < r.opts.NumCores; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				resultChan <- r.runJob(img, meta, job)
			}
		}()
	}
	go func() {
		for _, job := range jobs {
			jobChan <- job
		}
		close(jobChan)
		wg.Wait()
		close(resultChan)
	}()

	results := make([]models.Result, 0, len(jobs))
	for res := range resultChan {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Job.Model != results[j].Job.Model {
			return results[i].Job.Model < results[j].Job.Model
		}
		return results[i].Job.Level < results[j].Job.Level
	})
	return results, nil
}

func (r *Runner) runJob(img *imagery.Image, meta *imagery.Metadata, job models.Job) models.Result {
	start := time.Now()
	res := models.Result{Job: job}

	m, err := r.gen.Model(job.Model)
	if err != nil {
		res.Err = err
		return res
	}
	res.Parameter, err = noise.MapLevel(m.Descriptor(), job.Level, job.MaxLevel)
	if err != nil {
		res.Err = err
		return res
	}

	degraded, err := r.gen.ApplyLevel(img, job.Model, job.Level, job.MaxLevel, job.Seed)
	if err != nil {
		res.Err = fmt.Errorf("%s level %d: %w", job.Model, job.Level, err)
		return res
	}

	rec, err := metrics.Compare(img, degraded)
	if err != nil {
		res.Err = fmt.Errorf("%s level %d metrics: %w", job.Model, job.Level, err)
		return res
	}
	rec.Image = job.ImageName
	rec.Model = job.Model
	rec.Level = job.Level
	res.Metrics = rec

	if err := imageio.Save(degraded, meta, job.OutputPath); err != nil {
		res.Err = fmt.Errorf("saving %s: %w", job.OutputPath, err)
		return res
	}
	if r.opts.Thumbnails {
		thumb := strings.TrimSuffix(job.OutputPath, filepath.Ext(job.OutputPath)) + "_thumb.png"
		if err := imageio.Thumbnail(degraded, r.opts.ThumbnailSize, thumb); err != nil {
			res.Err = fmt.Errorf("thumbnail for %s: %w", job.OutputPath, err)
			return res
		}
	}

	res.DurationMS = time.Since(start).Milliseconds()
	return res
}

// outputPath builds OutputDir/<model>/<base>_<model>_level_NN.<ext>.
func (r *Runner) outputPath(srcPath, model string, level int) string {
	ext := strings.TrimPrefix(filepath.Ext(srcPath), ".")
	if r.opts.Format != "" {
		ext = r.opts.Format
	}
	name := fmt.Sprintf("%s_%s_level_%02d.%s", baseName(srcPath), model, level, ext)
	return filepath.Join(r.opts.OutputDir, model, name)
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
