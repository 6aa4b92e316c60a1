// Package main runs the deployment gate against a model manifest and
// prints the decision report. Exits non-zero when promotion is blocked.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"quant-model-lab/internal/deploygate"
	"quant-model-lab/internal/domain"
	"quant-model-lab/internal/features"
)

// Manifest is the JSON document describing one promotion candidate.
type Manifest struct {
	Config           domain.ModelConfig        `json:"config"`
	Metrics          domain.PerformanceMetrics `json:"metrics"`
	ArtifactPath     string                    `json:"artifact_path"`
	ArtifactChecksum string                    `json:"artifact_checksum,omitempty"`
}

func main() {
	manifestPath := flag.String("manifest", "", "Path to the model manifest JSON (required)")
	provided := flag.String("provided", "", "Comma-separated feature names the serving layer supplies (default: built-in registry)")
	reportPath := flag.String("report", "", "Write the Markdown report to this file (default: stdout)")
	jsonOut := flag.Bool("json", false, "Print the decision as JSON instead of Markdown")
	maxSize := flag.Int64("max-size", 0, "Override the artifact size maximum in bytes")
	loadBudget := flag.Duration("load-budget", 0, "Override the model load-time budget")

	flag.Parse()

	logger := log.New(os.Stderr, "[gate] ", log.LstdFlags)

	if *manifestPath == "" {
		logger.Fatal("--manifest is required")
	}

	data, err := os.ReadFile(*manifestPath)
	if err != nil {
		logger.Fatalf("Failed to read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Fatalf("Failed to parse manifest: %v", err)
	}

	providedFeatures := features.NewBuiltinRegistry().Names()
	if *provided != "" {
		providedFeatures = splitCSV(*provided)
	}

	thresholds := deploygate.DefaultThresholds()
	if *maxSize > 0 {
		thresholds.MaxArtifactBytes = *maxSize
	}
	if *loadBudget > 0 {
		thresholds.LoadBudget = *loadBudget
	}

	gate := deploygate.NewGate(&thresholds)
	decision := gate.ValidateForDeployment(context.Background(), deploygate.Input{
		Config:           m.Config,
		Metrics:          m.Metrics,
		ArtifactPath:     m.ArtifactPath,
		ExpectedChecksum: m.ArtifactChecksum,
		ProvidedFeatures: providedFeatures,
		Load:             readFileLoad(m.ArtifactPath),
	})

	var out string
	if *jsonOut {
		b, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			logger.Fatalf("Failed to encode decision: %v", err)
		}
		out = string(b) + "\n"
	} else {
		out = deploygate.RenderMarkdown(decision)
	}

	if *reportPath != "" {
		if err := os.WriteFile(*reportPath, []byte(out), 0o644); err != nil {
			logger.Fatalf("Failed to write report: %v", err)
		}
		logger.Printf("Report written to %s", *reportPath)
	} else {
		fmt.Print(out)
	}

	if !decision.Valid {
		logger.Printf("Model %s rejected: %d errors", m.Config.ModelID, len(decision.Errors))
		os.Exit(1)
	}
	logger.Printf("Model %s cleared for deployment (%d warnings)", m.Config.ModelID, len(decision.Warnings))
}

// readFileLoad stands in for the serving layer's load callback: a full
// sequential read of the artifact.
func readFileLoad(path string) deploygate.LoadFunc {
	return func() error {
		_, err := os.ReadFile(path)
		return err
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
