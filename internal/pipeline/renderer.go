package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/trustmap/internal/fusion"
	"github.com/ppiankov/trustmap/internal/model"
)

// Renderer writes reports as JSON, Markdown or a terminal summary
type Renderer struct {
	includeFooter bool
	out           io.Writer
}

// NewRenderer creates a renderer printing summaries to out
func NewRenderer(includeFooter bool, out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{includeFooter: includeFooter, out: out}
}

// SetOutput redirects summaries
func (r *Renderer) SetOutput(w io.Writer) {
	r.out = w
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(report)), 0o644)
}

// Markdown renders the report
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Trust report: %s\n\n", report.Subject)
	fmt.Fprintf(&b, "- **Decision:** %s\n", report.Decision)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- **Evaluated:** %s\n\n", model.FormatTimestamp(report.EvaluatedAt))

	b.WriteString("## Fused judgment\n\n")
	if report.Fused == nil {
		b.WriteString("No observation could be mapped, so nothing was fused.\n\n")
	} else {
		f := report.Fused
		b.WriteString("| T | I | F |\n|---|---|---|\n")
		fmt.Fprintf(&b, "| %.4f | %.4f | %.4f |\n\n", f.T(), f.I(), f.F())
		if d := report.Diagnostics; d != nil {
			fmt.Fprintf(&b, "- **Operator:** %s over %d inputs\n", d.Operator, d.Inputs)
			if d.Operator == fusion.CAWAOperatorID {
				fmt.Fprintf(&b, "- **Conflict:** %.4f (shift %.4f)\n", d.Conflict, d.Shift)
				fmt.Fprintf(&b, "- **Naive average:** %s\n", d.Naive)
			}
			fmt.Fprintf(&b, "- **Formula:** `%s`\n", d.Formula)
		}
		last := f.Provenance().Last()
		if id := f.ID(); id != "" {
			fmt.Fprintf(&b, "- **Judgment ID:** `%s`\n", id)
		}
		if seal := last.String(model.KeyConformanceSeal); seal != "" {
			fmt.Fprintf(&b, "- **Conformance seal:** `%s`\n", seal)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Observations\n\n")
	b.WriteString("| # | Mapper | Value | Weight | T | I | F | Error |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for i, o := range report.Observations {
		if o.Judgment != nil {
			fmt.Fprintf(&b, "| %d | %s | %s | %g | %.4f | %.4f | %.4f | |\n",
				i+1, o.Mapper, escapeCell(o.Value), o.Weight, o.Judgment.T(), o.Judgment.I(), o.Judgment.F())
		} else {
			fmt.Fprintf(&b, "| %d | %s | %s | %g | | | | %s |\n",
				i+1, o.Mapper, escapeCell(o.Value), o.Weight, escapeCell(o.Error))
		}
	}
	b.WriteString("\n")

	b.WriteString("## Signals\n\n")
	if len(report.Signals) == 0 {
		b.WriteString("None.\n\n")
	}
	for _, s := range report.Signals {
		fmt.Fprintf(&b, "- **[%s] %s:** %s\n", s.Severity, s.Type, s.Description)
	}
	if len(report.Signals) > 0 {
		b.WriteString("\n")
	}

	if report.Fused != nil {
		b.WriteString("## Provenance\n\n")
		for i, ref := range report.Fused.Provenance().Refs() {
			fmt.Fprintf(&b, "%d. `%s`\n", i+1, ref)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by trustmap. Each judgment is a mapping of the stated observation; the fused result is only as good as the mappers and weights behind it._\n")
	}

	return b.String()
}

// RenderSummary prints a short summary of the report
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Fprintf(r.out, "\n")
	fmt.Fprintf(r.out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(r.out, "  %s\n", report.Subject)
	fmt.Fprintf(r.out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(r.out, "\n")
	fmt.Fprintf(r.out, "  Decision:      %s\n", strings.ToUpper(string(report.Decision)))
	if report.Fused != nil {
		fmt.Fprintf(r.out, "  Fused:         %s\n", report.Fused.Triple())
	}
	if report.Diagnostics != nil {
		fmt.Fprintf(r.out, "  Operator:      %s\n", report.Diagnostics.Operator)
		fmt.Fprintf(r.out, "  Conflict:      %.2f\n", report.Diagnostics.Conflict)
	}

	mapped := 0
	for _, o := range report.Observations {
		if o.Error == "" {
			mapped++
		}
	}
	fmt.Fprintf(r.out, "  Observations:  %d/%d mapped\n", mapped, len(report.Observations))

	if len(report.Signals) > 0 {
		fmt.Fprintf(r.out, "\n  Signals:\n")
		for _, s := range report.Signals {
			fmt.Fprintf(r.out, "    %s %s: %s\n", severityIcon(s.Severity), s.Type, s.Description)
		}
	}
	fmt.Fprintf(r.out, "\n")
}

func severityIcon(s model.SignalSeverity) string {
	switch s {
	case model.SeverityCritical:
		return "✗"
	case model.SeverityWarning:
		return "!"
	default:
		return "·"
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
