package summarize

import (
	"encoding/json"
	"fmt"
	"strings"
)

const persona = "You are a data validation assistant that explains reconciliation reports " +
	"between a growth marketing extract and a gold reference extract."

// Prompt renders the summary request. Output is deterministic for a given input.
func Prompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Analyze this validation report and write a professional, actionable summary.\n\n", persona)
	fmt.Fprintf(&b, "VALIDATION RESULTS (%s vs %s, threshold %.2f%%):\n", in.GrowthFile, in.GoldFile, in.Threshold)
	fmt.Fprintf(&b, "- Overall match rate: %.2f%%\n", in.OverallMatchRate)
	fmt.Fprintf(&b, "- Segments passing: %d/%d\n", in.PassingSegments, in.TotalSegments)
	for _, s := range in.Segments {
		fmt.Fprintf(&b, "- %s: %.2f%% (%d/%d rows)\n", s.Name, s.Percent, s.PassingRows, s.TotalRows)
	}
	if len(in.Skipped) > 0 {
		fmt.Fprintf(&b, "- Not compared (unmapped dimensions): %s\n", strings.Join(in.Skipped, ", "))
	}

	b.WriteString("\nROOT CAUSES IDENTIFIED:\n")
	if len(in.Findings) == 0 {
		b.WriteString("- none\n")
	}
	for i, f := range in.Findings {
		fmt.Fprintf(&b, "%d. %s (confidence %.0f%%): %s\n", i+1, f.Kind, f.Confidence*100, f.Description)
		if f.Fix != "" {
			fmt.Fprintf(&b, "   Suggested fix: %s\n", f.Fix)
		}
	}

	b.WriteString(`
Write a summary that:
1. Starts with an EXECUTIVE SUMMARY of two or three sentences on data health
2. Lists KEY FINDINGS, one bullet per root cause with its confidence
3. Gives RECOMMENDED ACTIONS in priority order
4. Ends with NEXT STEPS to investigate

Be specific with numbers and only cite figures that appear above.`)
	return b.String()
}

// Context renders the session digest as indented JSON for question answering.
func Context(in Input) string {
	raw, _ := json.MarshalIndent(in, "", "  ")
	return persona + "\n\nValidation data:\n" + string(raw)
}

// QuestionPrompt renders a follow-up question against the session context.
func QuestionPrompt(question string, in Input) string {
	return Context(in) + "\n\nUser question: " + strings.TrimSpace(question) +
		"\n\nAnswer clearly and concisely from the validation data above. " +
		"Reference exact numbers when the question asks about specific metrics or segments."
}
