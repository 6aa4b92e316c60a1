package deploygate

import (
	"fmt"
	"strings"

	"quant-model-lab/internal/idhash"
)

// RenderMarkdown renders a Decision as a Markdown operator report.
func RenderMarkdown(d *Decision) string {
	var sb strings.Builder

	// Decision header
	sb.WriteString("# Deployment Gate Report\n\n")
	verdict := "APPROVED"
	if !d.Valid {
		verdict = "REJECTED"
	}
	sb.WriteString(fmt.Sprintf("## Decision: %s\n\n", verdict))
	sb.WriteString(fmt.Sprintf("Model: %s\n", d.ModelID))
	sb.WriteString(fmt.Sprintf("Version: %s\n", d.ModelVersion))
	sb.WriteString(fmt.Sprintf("Evaluated: %s\n", d.EvaluatedAt.Format("2006-01-02 15:04:05 UTC")))
	if r := d.Results[CheckIntegrity]; r != nil {
		if checksum, ok := r.Fields["sha256"].(string); ok {
			sb.WriteString(fmt.Sprintf("Artifact: %s\n", idhash.ShortArtifactID(checksum)))
		}
	}
	sb.WriteString("\n")

	// Checks table
	sb.WriteString("## Checks\n\n")
	sb.WriteString("| # | Check | Status | Errors | Warnings |\n")
	sb.WriteString("|---|-------|--------|--------|----------|\n")

	checks := []struct {
		name string
		pass bool
	}{
		{CheckConfig, d.ConfigCheck},
		{CheckPerformance, d.PerformanceCheck},
		{CheckSize, d.SizeCheck},
		{CheckIntegrity, d.IntegrityCheck},
		{CheckFeatureCompat, d.FeatureCompatCheck},
		{CheckHyperparams, d.HyperparamCheck},
		{CheckLoadTime, d.LoadTimeCheck},
	}

	passed := 0
	for i, c := range checks {
		status := "PASS"
		if c.pass {
			passed++
		} else {
			status = "FAIL"
		}
		r := d.Results[c.name]
		errCount, warnCount := 0, 0
		if r != nil {
			errCount, warnCount = len(r.Errors), len(r.Warnings)
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %d |\n",
			i+1, c.name, status, errCount, warnCount))
	}
	sb.WriteString(fmt.Sprintf("\nChecks: %d/%d passed\n\n", passed, len(checks)))

	// Errors
	if len(d.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range d.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	// Warnings
	if len(d.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range d.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	if d.Valid {
		sb.WriteString("All checks passed. The model is cleared for deployment.\n")
	} else {
		sb.WriteString("Promotion blocked by:\n")
		for _, c := range checks {
			if !c.pass {
				sb.WriteString(fmt.Sprintf("- %s check failed\n", c.name))
			}
		}
	}

	return sb.String()
}
