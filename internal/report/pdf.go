package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/xxxsen/readiness/internal/model"
)

const (
	pageWidth   = 190.0
	lineHeight  = 5.0
	labelIndent = 4.0
)

type pdfRenderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// RenderPDF lays the report out as an A4 document using the core fonts.
func RenderPDF(r *model.AssessmentReport) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("report is nil")
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.SetTitle(r.OrganisationName+" AI Readiness Assessment", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  |  page %d", r.ReportID, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	rd := &pdfRenderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	rd.cover(r)
	rd.summary(r)
	rd.dimensions(r)
	rd.useCases(r)
	rd.roadmap(r)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (rd *pdfRenderer) heading(text string, size float64) {
	rd.pdf.Ln(3)
	rd.pdf.SetFont("Helvetica", "B", size)
	rd.pdf.MultiCell(pageWidth, size*0.5, rd.tr(text), "", "L", false)
	rd.pdf.Ln(1)
}

func (rd *pdfRenderer) text(s string) {
	rd.pdf.SetFont("Helvetica", "", 10)
	rd.pdf.MultiCell(pageWidth, lineHeight, rd.tr(s), "", "L", false)
}

func (rd *pdfRenderer) bullets(label string, items []string) {
	if len(items) == 0 {
		return
	}
	rd.pdf.SetFont("Helvetica", "B", 10)
	rd.pdf.CellFormat(pageWidth, lineHeight, rd.tr(label), "", 1, "L", false, 0, "")
	rd.pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		rd.pdf.SetX(rd.pdf.GetX() + labelIndent)
		rd.pdf.MultiCell(pageWidth-labelIndent, lineHeight, rd.tr("- "+item), "", "L", false)
	}
}

func (rd *pdfRenderer) cover(r *model.AssessmentReport) {
	rd.pdf.SetFont("Helvetica", "B", 20)
	rd.pdf.MultiCell(pageWidth, 10, rd.tr(r.OrganisationName), "", "L", false)
	rd.pdf.SetFont("Helvetica", "", 14)
	rd.pdf.CellFormat(pageWidth, 8, "AI Readiness Assessment", "", 1, "L", false, 0, "")
	rd.pdf.Ln(2)
	generated := time.Unix(r.GeneratedAt, 0).UTC().Format("2006-01-02 15:04 MST")
	rd.text(fmt.Sprintf("Report %s, generated %s", r.ReportID, generated))
	rd.text(fmt.Sprintf("Overall score %.1f / 10 (%s)", r.OverallScore, r.OverallMaturity))
	rd.text(fmt.Sprintf("Documents analysed: %d, pages: %d", len(r.Documents), r.TotalPages))
	if r.Partial {
		rd.pdf.SetTextColor(180, 40, 40)
		rd.text("Partial report: some stages did not complete.")
		rd.pdf.SetTextColor(0, 0, 0)
	}
}

func (rd *pdfRenderer) summary(r *model.AssessmentReport) {
	rd.heading("Executive Summary", 14)
	rd.text(r.ExecutiveSummary)
	rd.pdf.Ln(2)
	rd.bullets("Critical blockers", r.CriticalBlockers)
	rd.bullets("Quick wins", r.QuickWins)
	rd.bullets("Notes", r.Notes)
}

func (rd *pdfRenderer) dimensions(r *model.AssessmentReport) {
	rd.heading("Dimension Scores", 14)
	for _, d := range r.Dimensions {
		rd.heading(fmt.Sprintf("%s: %.1f (%s)", d.Dimension, d.Score, d.Maturity), 11)
		rd.scoreBar(d.Score)
		if !d.EvidenceSufficient {
			rd.text("Evidence was insufficient for this dimension; the score is capped.")
		}
		rd.bullets("Strengths", d.Strengths)
		rd.bullets("Gaps", d.Gaps)
		rd.bullets("Recommendations", d.Recommendations)
		rd.bullets("Evidence", d.EvidenceExcerpts)
	}
	if len(r.MissingDimensions) > 0 {
		missing := make([]string, 0, len(r.MissingDimensions))
		for _, d := range r.MissingDimensions {
			missing = append(missing, string(d))
		}
		rd.bullets("Not assessed", missing)
	}
}

func (rd *pdfRenderer) scoreBar(score float64) {
	x, y := rd.pdf.GetX(), rd.pdf.GetY()
	rd.pdf.SetFillColor(225, 225, 225)
	rd.pdf.Rect(x, y, 100, 3, "F")
	rd.pdf.SetFillColor(40, 110, 180)
	rd.pdf.Rect(x, y, 100*score/10, 3, "F")
	rd.pdf.Ln(5)
}

func (rd *pdfRenderer) useCases(r *model.AssessmentReport) {
	rd.heading("Priority Use Cases", 14)
	if len(r.UseCases) == 0 {
		rd.text("No use cases were identified.")
		return
	}
	for _, uc := range r.UseCases {
		rd.heading(fmt.Sprintf("%d. %s [%s]", uc.Rank, uc.Name, uc.Approach), 11)
		rd.text(uc.Description)
		if uc.BusinessProcess != "" {
			rd.text("Business process: " + uc.BusinessProcess)
		}
		rd.text(fmt.Sprintf("ROI %.1f, feasibility %.1f, rank score %.4f", uc.ROI, uc.Feasibility, uc.RankScore))
		rd.bullets("Prerequisites", uc.Prerequisites)
	}
}

func (rd *pdfRenderer) roadmap(r *model.AssessmentReport) {
	rd.heading("Roadmap", 14)
	for _, p := range r.Roadmap {
		rd.heading(fmt.Sprintf("Phase %d: %s (%s)", p.Phase, p.Theme, p.Timeline), 11)
		rd.bullets("Focus areas", p.FocusAreas)
		rd.bullets("Initiatives", p.Initiatives)
		rd.bullets("Success metrics", p.SuccessMetrics)
		if len(p.Dependencies) > 0 {
			rd.text("Depends on: " + strings.Join(p.Dependencies, ", "))
		}
	}
}
