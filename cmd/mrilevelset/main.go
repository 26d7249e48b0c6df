package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"mrilevelset/internal/monitoring"
	"mrilevelset/pkg/config"
	"mrilevelset/pkg/segmentation"
	"mrilevelset/pkg/volume"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing 2D MRI slices (PNG, JPEG or TIFF)")
	configPath := flag.String("config", "mrilevelset.yaml", "YAML configuration file")
	outputDir := flag.String("output", "", "Directory for overlays, masks and plots")
	seed := flag.Int("seed", -1, "Seed slice index (-1 selects the central slice)")
	warmStart := flag.Bool("warm-start", true, "Seed each slice with its neighbour's converged field")
	workers := flag.Int("workers", 0, "Number of slices evolved in parallel without warm start")
	age := flag.Float64("age", 0, "Subject age in years")
	spacing := flag.Float64("spacing", 0, "In-plane pixel spacing in mm")
	orientation := flag.String("orientation", "", "Slice orientation: axial, coronal or sagittal")
	convention := flag.String("convention", "", "Sign of the axis pointing anterior: + or -")
	plots := flag.Bool("plots", false, "Save the convergence plot")
	reslices := flag.Bool("reslices", false, "Save x and y reslices of the mask stack")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Explicit flags override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.Output.Directory = *outputDir
		case "seed":
			cfg.Processing.SeedIndex = *seed
		case "warm-start":
			cfg.Processing.WarmStart = *warmStart
		case "workers":
			cfg.Processing.NumWorkers = *workers
		case "age":
			cfg.Volume.SubjectAge = *age
		case "spacing":
			cfg.Volume.PixelSpacing = *spacing
		case "orientation":
			cfg.Volume.Orientation = *orientation
		case "convention":
			cfg.Volume.Convention = *convention
		case "plots":
			cfg.Output.SavePlots = *plots
		case "reslices":
			cfg.Output.SaveReslices = *reslices
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.Output.Verbose {
		monitoring.SetLogger(nil)
	}

	fmt.Println("================================")
	fmt.Println("MODEL-BASED LEVEL SET SEGMENTATION OF MRI SLICES")
	fmt.Println("================================")

	meta, err := cfg.VolumeMetadata()
	if err != nil {
		log.Fatalf("Invalid volume metadata: %v", err)
	}
	stack, err := volume.LoadDirectory(*inputDir, meta)
	if err != nil {
		log.Fatalf("Failed to load slices: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	seg := segmentation.NewSegmenter(stack, cfg.SegmentationParams(meta.Orientation))

	fmt.Printf("Starting segmentation of %d slices (run %s)...\n", stack.Depth(), seg.RunID())
	startTime := time.Now()
	if err := seg.Process(ctx); err != nil {
		log.Fatalf("Segmentation failed: %v", err)
	}
	processingTime := time.Since(startTime)

	sum := seg.Summary()
	fmt.Printf("\nSegmentation completed in %.2f seconds!\n\n", processingTime.Seconds())
	fmt.Printf("Slices segmented: %d\n", sum.Segmented)
	fmt.Printf("Slices skipped:   %d\n", sum.Skipped)
	fmt.Printf("Slices failed:    %d\n", sum.Failed)
	fmt.Printf("Mean area:        %.1f px (std %.1f)\n", sum.MeanArea, sum.StdDevArea)
	fmt.Printf("Mean iterations:  %.1f\n", sum.MeanIterations)

	fmt.Println("\nPer-slice results:")
	for _, r := range seg.Results() {
		fmt.Printf("  %s\n", describe(r))
	}

	if cfg.Output.Directory != "" {
		fmt.Printf("\nOverlays saved under %s\n", cfg.Output.Directory)
	}
}

func describe(r segmentation.Result) string {
	switch {
	case r.Skipped:
		return fmt.Sprintf("slice %3d: skipped (%v)", r.Index, r.Err)
	case r.Mask == nil:
		return fmt.Sprintf("slice %3d: failed (%v)", r.Index, r.Err)
	}
	state := "converged"
	if !r.Converged {
		state = "iteration limit"
	}
	return fmt.Sprintf("slice %3d: area %6d px, %4d iterations, %s, threshold %.2f, %d px filled",
		r.Index, r.Area, r.Iterations, state, r.ThresholdSelector, r.HoleFill.Filled)
}
