package batch

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"multinoise/pkg/imageio"
	"multinoise/pkg/imagery"
	"multinoise/pkg/noise"
)

// TestNewRunnerValidation verifies option validation up front
func TestNewRunnerValidation(t *testing.T) {
	gen := noise.NewGenerator(nil)

	cases := []Options{
		{},
		{InputPaths: []string{"a.tif"}},
		{InputPaths: []string{"a.tif"}, OutputDir: "out"},
		{InputPaths: []string{"a.tif"}, OutputDir: "out", Levels: 3, Models: []string{"gamma_ray"}},
	}
	for i, opts := range cases {
		if _, err := NewRunner(gen, opts); err == nil {
			t.Errorf("Case %d: expected validation error, got nil", i)
		}
	}

	if _, err := NewRunner(gen, Options{
		InputPaths: []string{"a.tif"}, OutputDir: "out", Levels: 3,
	}); err != nil {
		t.Errorf("Expected valid options to pass, got %v", err)
	}
}

// TestRunGeneratesVariants verifies the end-to-end batch flow: variants
// on disk, metrics computed, naming convention honored
func TestRunGeneratesVariants(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeTestImage(t, filepath.Join(dir, "scene.png"))
	outDir := filepath.Join(dir, "out")

	gen := noise.NewGenerator(nil)
	runner, err := NewRunner(gen, Options{
		InputPaths: []string{srcPath},
		OutputDir:  outDir,
		Models:     []string{"gaussian", "motion_blur"},
		Levels:     2,
		Seed:       5,
		NumCores:   2,
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	rep, err := runner.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Inputs != 1 {
		t.Errorf("Expected 1 input, got %d", rep.Inputs)
	}
	if rep.Succeeded != 4 || rep.Failed != 0 {
		t.Errorf("Expected 4 succeeded / 0 failed, got %d / %d", rep.Succeeded, rep.Failed)
	}

	for _, name := range []string{
		"gaussian/scene_gaussian_level_01.png",
		"gaussian/scene_gaussian_level_02.png",
		"motion_blur/scene_motion_blur_level_01.png",
		"motion_blur/scene_motion_blur_level_02.png",
	} {
		path := filepath.Join(outDir, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected output file %s: %v", name, err)
		}
	}

	for _, res := range rep.Results {
		if res.Metrics == nil {
			t.Errorf("Expected metrics for %s level %d", res.Job.Model, res.Job.Level)
			continue
		}
		if res.Metrics.Image != "scene" {
			t.Errorf("Expected metrics image name \"scene\", got %q", res.Metrics.Image)
		}
		if math.IsNaN(res.Metrics.SSIM) {
			t.Errorf("Expected finite SSIM for %s level %d", res.Job.Model, res.Job.Level)
		}
	}
}

// TestRunDeterministicSeeds verifies that two runs with the same base
// seed produce bitwise identical outputs despite parallel workers
func TestRunDeterministicSeeds(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeTestImage(t, filepath.Join(dir, "scene.png"))

	variant := func(outDir string) *imagery.Image {
		gen := noise.NewGenerator(nil)
		runner, err := NewRunner(gen, Options{
			InputPaths: []string{srcPath},
			OutputDir:  outDir,
			Models:     []string{"gaussian"},
			Levels:     2,
			Seed:       42,
			NumCores:   4,
		})
		if err != nil {
			t.Fatalf("NewRunner failed: %v", err)
		}
		if _, err := runner.Run(); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		img, _, err := imageio.Load(filepath.Join(outDir, "gaussian", "scene_gaussian_level_02.png"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return img
	}

	a := variant(filepath.Join(dir, "run_a"))
	b := variant(filepath.Join(dir, "run_b"))
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("Expected identical outputs for the same seed, sample %d differs", i)
		}
	}
}

// TestRunMissingInput verifies a bad input is reported, not fatal, and
// counts as exactly one failure with one matching result record
func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeTestImage(t, filepath.Join(dir, "good.png"))

	gen := noise.NewGenerator(nil)
	runner, err := NewRunner(gen, Options{
		InputPaths: []string{filepath.Join(dir, "missing.png"), srcPath},
		OutputDir:  filepath.Join(dir, "out"),
		Models:     []string{"speckle", "gaussian"},
		Levels:     2,
		NumCores:   1,
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	rep, err := runner.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Succeeded != 4 {
		t.Errorf("Expected 4 succeeded, got %d", rep.Succeeded)
	}
	if rep.Failed != 1 {
		t.Errorf("Expected the load failure to count once, got %d", rep.Failed)
	}
	if len(rep.Results) != rep.Succeeded+rep.Failed {
		t.Errorf("Expected %d result records, got %d", rep.Succeeded+rep.Failed, len(rep.Results))
	}
}

// TestOutputFormatOverride verifies the format option rewrites the
// output extension
func TestOutputFormatOverride(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeTestImage(t, filepath.Join(dir, "scene.png"))
	outDir := filepath.Join(dir, "out")

	gen := noise.NewGenerator(nil)
	runner, err := NewRunner(gen, Options{
		InputPaths: []string{srcPath},
		OutputDir:  outDir,
		Models:     []string{"atmospheric"},
		Levels:     1,
		NumCores:   1,
		Format:     "tiff",
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if _, err := runner.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	path := filepath.Join(outDir, "atmospheric", "scene_atmospheric_level_01.tiff")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected tiff output at %s: %v", path, err)
	}
}

// writeTestImage saves a small structured RGB image for batch tests
func writeTestImage(t *testing.T, path string) string {
	t.Helper()
	img := imagery.New(3, 24, 24, imagery.Uint8)
	for b := 0; b < 3; b++ {
		for y := 0; y < 24; y++ {
			for x := 0; x < 24; x++ {
				img.Set(b, y, x, float32((x*8+y*3+b*40)%256))
			}
		}
	}
	if err := imageio.Save(img, nil, path); err != nil {
		t.Fatalf("Failed to write test image: %v", err)
	}
	return path
}
