package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"multinoise/pkg/batch"
	"multinoise/pkg/config"
	"multinoise/pkg/dataset"
	"multinoise/pkg/noise"
	"multinoise/pkg/report"
)

func main() {
	// Optional .env provides defaults for seed and core count
	_ = godotenv.Load()

	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing clean source images (tiff/png/jpeg)")
	outputDir := flag.String("output", "noisy_dataset", "Output dataset directory")
	configPath := flag.String("config", "multinoise.yaml", "Configuration file (YAML)")
	modelList := flag.String("models", "", "Comma-separated noise models to apply (default: all)")
	levels := flag.Int("levels", 0, "Severity levels per model (default: from config)")
	seed := flag.Uint64("seed", 0, "Base random seed (default: from config or MULTINOISE_SEED)")
	cores := flag.Int("cores", 0, "Number of CPU cores to use (default: from config)")
	split := flag.Bool("split", false, "Split results into train/val/test sets")
	zipSplits := flag.Bool("zip", false, "Package each split into a zip archive")
	listModels := flag.Bool("list-models", false, "List available noise models and exit")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gen := noise.NewGenerator(cfg.ModelOverrides())

	if *listModels {
		for _, name := range gen.Names() {
			m, _ := gen.Model(name)
			d := m.Descriptor()
			fmt.Printf("%-12s %s=%g..%g  %s\n", d.Name, d.ParameterName, d.Range[0], d.Range[1], d.Description)
		}
		return
	}

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Flags override configuration, environment fills remaining gaps
	if *levels > 0 {
		cfg.Processing.DefaultLevels = *levels
	}
	if *seed != 0 {
		cfg.Processing.Seed = *seed
	} else if env := os.Getenv("MULTINOISE_SEED"); env != "" {
		if v, err := strconv.ParseUint(env, 10, 64); err == nil {
			cfg.Processing.Seed = v
		}
	}
	if *cores > 0 {
		cfg.Processing.NumCores = *cores
	}

	inputs, err := collectInputs(*inputDir)
	if err != nil {
		log.Fatalf("Failed to scan input directory: %v", err)
	}
	if len(inputs) == 0 {
		log.Fatalf("No supported images found in %s", *inputDir)
	}

	var modelNames []string
	if *modelList != "" {
		for _, name := range strings.Split(*modelList, ",") {
			modelNames = append(modelNames, strings.TrimSpace(name))
		}
	}

	fmt.Println("================================")
	fmt.Println("MULTINOISE: MULTIBAND IMAGE NOISE SYNTHESIS AND QUALITY METRICS")
	fmt.Println("================================")
	fmt.Printf("Inputs: %d images, %d levels per model, seed %d, %d cores\n",
		len(inputs), cfg.Processing.DefaultLevels, cfg.Processing.Seed, cfg.Processing.NumCores)

	runner, err := batch.NewRunner(gen, batch.Options{
		InputPaths:    inputs,
		OutputDir:     *outputDir,
		Models:        modelNames,
		Levels:        cfg.Processing.DefaultLevels,
		Seed:          cfg.Processing.Seed,
		NumCores:      cfg.Processing.NumCores,
		Format:        cfg.Output.Format,
		Thumbnails:    cfg.Output.Thumbnails,
		ThumbnailSize: cfg.Output.ThumbnailSize,
		Verbose:       cfg.Output.Verbose,
	})
	if err != nil {
		log.Fatalf("Invalid batch options: %v", err)
	}

	fmt.Println("Starting noise synthesis with parallel processing...")
	startTime := time.Now()
	rep, err := runner.Run()
	if err != nil {
		log.Fatalf("Batch run failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nGenerated %d variants (%d failed) in %.2f seconds\n",
		rep.Succeeded, rep.Failed, processingTime.Seconds())

	reportPath := filepath.Join(*outputDir, "processing_report.json")
	if err := report.WriteJSON(rep, reportPath); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
	csvPath := filepath.Join(*outputDir, "metrics.csv")
	if err := report.WriteCSV(rep, csvPath); err != nil {
		log.Fatalf("Failed to write metrics: %v", err)
	}
	fmt.Printf("Processing report saved to: %s\n", reportPath)
	fmt.Printf("Metrics table saved to: %s\n", csvPath)

	if *split {
		stats, err := dataset.Split(rep, *outputDir, dataset.SplitOptions{
			TrainRatio: cfg.Dataset.TrainRatio,
			ValRatio:   cfg.Dataset.ValRatio,
			TestRatio:  cfg.Dataset.TestRatio,
			Seed:       cfg.Processing.Seed,
			Zip:        *zipSplits || cfg.Dataset.Zip,
		})
		if err != nil {
			log.Fatalf("Dataset split failed: %v", err)
		}
		fmt.Printf("\nDataset split: %d train / %d val / %d test images\n",
			len(stats.Images["train"]), len(stats.Images["val"]), len(stats.Images["test"]))
	}
}

// collectInputs gathers supported image files from a directory in
// sorted order.
func collectInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var inputs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff", ".png", ".jpg", ".jpeg":
			inputs = append(inputs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(inputs)
	return inputs, nil
}
