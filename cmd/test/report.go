package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
)

type report struct {
	models         []string
	variants       []requestVariant
	resultsByModel map[string]map[variantKind]testResult
	totalRequests  int
	failedCount    int
	skippedCount   int
}

// buildReport aggregates raw test results by model and variant.
func buildReport(models []string, variants []requestVariant, results []testResult) report {
	byModel := make(map[string]map[variantKind]testResult, len(models))
	for _, model := range models {
		byModel[model] = make(map[variantKind]testResult)
	}

	failed, skipped := 0, 0
	for _, res := range results {
		if res.Model == "" {
			continue
		}
		modelMap, ok := byModel[res.Model]
		if !ok {
			modelMap = make(map[variantKind]testResult)
			byModel[res.Model] = modelMap
		}
		modelMap[res.Variant] = res
		switch {
		case res.Skipped:
			skipped++
		case !res.Success:
			failed++
		}
	}

	return report{
		models:         models,
		variants:       variants,
		resultsByModel: byModel,
		totalRequests:  len(results),
		failedCount:    failed,
		skippedCount:   skipped,
	}
}

// renderReport prints the matrix view and summaries to w.
func renderReport(w io.Writer, rep report) {
	if len(rep.models) == 0 || len(rep.variants) == 0 {
		fmt.Fprintln(w, "nothing to report")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Bedrock Regression Matrix ===")
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	header := []string{"Model"}
	for _, v := range rep.variants {
		header = append(header, v.Header)
	}
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	for _, model := range rep.models {
		row := []string{model}
		for _, v := range rep.variants {
			row = append(row, formatMatrixCell(rep.resultsByModel[model][v.Key]))
		}
		table.Append(row)
	}
	table.Render()

	fmt.Fprintln(w)
	passed := rep.totalRequests - rep.failedCount - rep.skippedCount
	fmt.Fprintf(w, "Totals  | Requests: %d | Passed: %d | Failed: %d | Skipped: %d\n",
		rep.totalRequests, passed, rep.failedCount, rep.skippedCount)

	failures, skips := gatherOutcomes(rep)
	if len(failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failures:")
		for _, res := range failures {
			fmt.Fprintf(w, "- %s · %s → %s\n", res.Model, res.Label, shorten(res.ErrorReason, 200))
		}
	}
	if len(skips) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped (unsupported combinations):")
		for _, res := range skips {
			fmt.Fprintf(w, "- %s · %s → %s\n", res.Model, res.Label, shorten(res.ErrorReason, 200))
		}
	}
	fmt.Fprintln(w)
}

func formatMatrixCell(res testResult) string {
	if res.Model == "" {
		return "—"
	}

	duration := res.Duration.Truncate(10 * time.Millisecond)
	switch {
	case res.Success:
		return fmt.Sprintf("PASS %.2fs", duration.Seconds())
	case res.Skipped:
		return "SKIP"
	default:
		reason := res.ErrorReason
		if reason == "" {
			reason = duration.String()
		}
		return "FAIL " + shorten(reason, 32)
	}
}

func gatherOutcomes(rep report) (failures, skips []testResult) {
	for _, model := range rep.models {
		entry := rep.resultsByModel[model]
		for _, variant := range rep.variants {
			res, ok := entry[variant.Key]
			if !ok || res.Model == "" {
				continue
			}
			if res.Skipped {
				skips = append(skips, res)
				continue
			}
			if !res.Success {
				failures = append(failures, res)
			}
		}
	}

	less := func(list []testResult) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].Model == list[j].Model {
				return list[i].Label < list[j].Label
			}
			return list[i].Model < list[j].Model
		}
	}
	sort.Slice(failures, less(failures))
	sort.Slice(skips, less(skips))
	return failures, skips
}
