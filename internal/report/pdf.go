// Package report renders a finished or in-progress session as a PDF.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/state"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 6.0
)

// WritePDF renders the transcript of st and, when res is non-nil, the
// archetype and outcome texts.
func WritePDF(w io.Writer, sc *scenario.Scenario, st *state.SessionState, res *engine.Results) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(sc.Title, true)
	pdf.SetCreator("archetype-engine", true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	heading := func(text string, size float64) {
		pdf.SetFont(fontFamily, "B", size)
		pdf.MultiCell(0, lineHeight+2, tr(text), "", "L", false)
		pdf.Ln(2)
	}
	body := func(style, text string) {
		pdf.SetFont(fontFamily, style, 11)
		pdf.MultiCell(0, lineHeight, tr(text), "", "L", false)
	}

	heading(sc.Title, 18)
	if sc.Description != "" {
		body("I", sc.Description)
		pdf.Ln(4)
	}

	if res != nil && res.Archetype != nil {
		heading("Your archetype: "+res.Archetype.Name, 15)
		if res.Archetype.Subtitle != "" {
			body("I", res.Archetype.Subtitle)
		}
		body("", res.Archetype.Description)
		pdf.Ln(3)
		body("", "Path: "+strings.Join(res.Path, " > "))
		pdf.Ln(4)

		writeList(heading, body, "Strengths", res.Insights.Strengths)
		writeList(heading, body, "Blind spots", res.Insights.BlindSpots)
		if res.Insights.Pattern != "" {
			body("I", res.Insights.Pattern)
			pdf.Ln(4)
		}
	}

	heading("Transcript", 14)
	for _, e := range st.Transcript(sc) {
		pdf.SetFont(fontFamily, "B", 11)
		pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("%d. %s", e.Turn, e.Question)), "", "L", false)
		body("", e.Response)
		body("I", "Approach: "+e.Classification)
		pdf.Ln(3)
	}

	if res != nil {
		if len(res.Conclusion) > 0 {
			heading("What happened next", 14)
			for _, p := range res.Conclusion {
				body("", p)
				pdf.Ln(2)
			}
		}
		if res.Debrief != "" {
			heading("Debrief", 14)
			body("", res.Debrief)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func writeList(heading func(string, float64), body func(string, string), title string, items []string) {
	if len(items) == 0 {
		return
	}
	heading(title, 13)
	for _, item := range items {
		body("", "- "+item)
	}
	body("", "")
}
