// Package dataset organizes generated image variants into reproducible
// train/validation/test splits and optionally packages each split into
// a zip archive.
package dataset

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/exp/rand"

	"multinoise/internal/models"
)

// SplitOptions configures the split.
type SplitOptions struct {
	// TrainRatio, ValRatio and TestRatio must sum to 1.0
	TrainRatio float64
	ValRatio   float64
	TestRatio  float64

	// Seed drives the shuffle; the same seed and inputs always produce
	// the same assignment
	Seed uint64

	// Zip packages each split directory into <split>.zip
	Zip bool
}

// Stats summarizes the split outcome, written as split_statistics.json.
type Stats struct {
	Seed   uint64              `json:"seed"`
	Images map[string][]string `json:"images"` // split name -> source image names
	Files  map[string]int      `json:"files"`  // split name -> file count
}

var splitNames = []string{"train", "val", "test"}

// Split assigns every source image to one split and moves all of that
// image's variants into outputDir/<split>/<model>/. Grouping by source
// image keeps every variant of one scene in the same split, so no clean
// content leaks between training and evaluation sets.
func Split(rep *models.Report, outputDir string, opts SplitOptions) (*Stats, error) {
	sum := opts.TrainRatio + opts.ValRatio + opts.TestRatio
	if sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("split ratios must sum to 1.0, got %g", sum)
	}

	// Collect unique source names in deterministic order.
	seen := make(map[string]bool)
	var images []string
	for _, res := range rep.Results {
		if res.Err != nil || res.Job.ImageName == "" {
			continue
		}
		if !seen[res.Job.ImageName] {
			seen[res.Job.ImageName] = true
			images = append(images, res.Job.ImageName)
		}
	}
	sort.Strings(images)
	if len(images) == 0 {
		return nil, fmt.Errorf("no successful results to split")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(images), func(i, j int) {
		images[i], images[j] = images[j], images[i]
	})

	nTrain := int(float64(len(images))*opts.TrainRatio + 0.5)
	nVal := int(float64(len(images))*opts.ValRatio + 0.5)
	if nTrain+nVal > len(images) {
		nVal = len(images) - nTrain
	}

	assignment := make(map[string]string, len(images))
	stats := &Stats{
		Seed:   opts.Seed,
		Images: map[string][]string{"train": {}, "val": {}, "test": {}},
		Files:  map[string]int{},
	}
	for i, name := range images {
		var split string
		switch {
		case i < nTrain:
			split = "train"
		case i < nTrain+nVal:
			split = "val"
		default:
			split = "test"
		}
		assignment[name] = split
		stats.Images[split] = append(stats.Images[split], name)
	}
	for _, split := range splitNames {
		sort.Strings(stats.Images[split])
	}

	// Move every variant into its split directory.
	for _, res := range rep.Results {
		if res.Err != nil || res.Job.OutputPath == "" {
			continue
		}
		split := assignment[res.Job.ImageName]
		dst := filepath.Join(outputDir, split, res.Job.Model, filepath.Base(res.Job.OutputPath))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return nil, fmt.Errorf("error creating split directory: %w", err)
		}
		if err := os.Rename(res.Job.OutputPath, dst); err != nil {
			return nil, fmt.Errorf("error moving %s: %w", res.Job.OutputPath, err)
		}
		stats.Files[split]++
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error marshaling split statistics: %w", err)
	}
	statsPath := filepath.Join(outputDir, "split_statistics.json")
	if err := os.WriteFile(statsPath, data, 0644); err != nil {
		return nil, fmt.Errorf("error writing split statistics: %w", err)
	}

	if opts.Zip {
		for _, split := range splitNames {
			dir := filepath.Join(outputDir, split)
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				continue
			}
			if err := zipDir(dir, filepath.Join(outputDir, split+".zip")); err != nil {
				return nil, fmt.Errorf("error packaging %s split: %w", split, err)
			}
		}
	}
	return stats, nil
}

// zipDir packages a directory tree into a zip archive with paths
// relative to the directory root.
func zipDir(dir, archivePath string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
