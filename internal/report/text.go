package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/apiparity/internal/ir"
)

// Outcome glyphs convey the status without relying on color alone.
const (
	GlyphPass  = "✓"
	GlyphFail  = "✗"
	GlyphError = "!"
	GlyphSkip  = "⏭"
)

// maxViolations caps the violations listed per case in text output.
const maxViolations = 10

type styles struct {
	header  lipgloss.Style
	section lipgloss.Style
	pass    lipgloss.Style
	fail    lipgloss.Style
	errored lipgloss.Style
	skip    lipgloss.Style
	dim     lipgloss.Style
}

// newStyles binds the palette to w, so color is only emitted when w is a
// terminal that supports it.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("51")),
		section: r.NewStyle().Bold(true),
		pass:    r.NewStyle().Foreground(lipgloss.Color("42")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("196")),
		errored: r.NewStyle().Foreground(lipgloss.Color("214")),
		skip:    r.NewStyle().Foreground(lipgloss.Color("240")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (s styles) status(st ir.Status) (string, lipgloss.Style) {
	switch st {
	case ir.StatusPass:
		return GlyphPass, s.pass
	case ir.StatusFail:
		return GlyphFail, s.fail
	case ir.StatusError:
		return GlyphError, s.errored
	}
	return GlyphSkip, s.skip
}

// WriteText renders reports for a terminal. Passing cases are listed
// without messages unless verbose is set.
func WriteText(w io.Writer, verbose bool, reports ...*ir.SuiteReport) error {
	st := newStyles(w)
	var b strings.Builder
	var total ir.Summary

	for i, r := range reports {
		if r == nil {
			continue
		}
		if i > 0 {
			b.WriteString("\n")
		}
		total = total.Add(r.Summary)

		b.WriteString(st.header.Render(fmt.Sprintf("%s suite", r.Suite)))
		b.WriteString(st.dim.Render(fmt.Sprintf("  %s  run %s", r.BaseURL, r.RunID)))
		b.WriteString("\n")
		if r.Source != "" {
			b.WriteString(st.dim.Render("  spec " + r.Source))
			b.WriteString("\n")
		}

		category := ""
		for _, o := range r.Outcomes {
			if o.Category != category {
				category = o.Category
				b.WriteString("  " + st.section.Render(category) + "\n")
			}
			glyph, style := st.status(o.Status)
			name := o.Label
			if name == "" {
				name = o.CaseID
			}
			line := fmt.Sprintf("    %s %s", style.Render(glyph), name)
			if o.Status != ir.StatusPass || verbose {
				if o.Kind != ir.KindNone {
					line += st.dim.Render(" [" + string(o.Kind) + "]")
				}
				if o.Message != "" {
					line += "  " + o.Message
				}
			}
			b.WriteString(line + "\n")

			if o.Status == ir.StatusPass && !verbose {
				continue
			}
			for j, v := range o.Violations {
				if j == maxViolations {
					b.WriteString(st.dim.Render(fmt.Sprintf("        ... %d more", len(o.Violations)-maxViolations)) + "\n")
					break
				}
				b.WriteString("        " + v.String() + "\n")
			}
		}
		b.WriteString("  " + summaryLine(st, r.Summary) + "\n")
	}

	if len(reports) > 1 {
		b.WriteString("\n" + summaryLine(st, total) + "\n")
	}
	verdict := st.pass.Render("PASS")
	if !total.OK() {
		verdict = st.fail.Render("FAIL")
	}
	b.WriteString(verdict + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func summaryLine(st styles, s ir.Summary) string {
	return strings.Join([]string{
		st.pass.Render(fmt.Sprintf("%d passed", s.Passed)),
		st.fail.Render(fmt.Sprintf("%d failed", s.Failed)),
		st.errored.Render(fmt.Sprintf("%d errored", s.Errored)),
		st.skip.Render(fmt.Sprintf("%d skipped", s.Skipped)),
	}, ", ")
}
