package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/go-pdf/fpdf"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator generates PDF technical reports from project data.
// Greek text is rendered through the cp1253 translator so the built-in
// fonts can be used without embedding a TTF.
type PDFGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	// Content area
	contentWidth float64

	downloader ImageDownloader
}

// NewPDFGenerator creates a new PDF generator with default settings.
func NewPDFGenerator() *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	return &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
		downloader:   NewHTTPImageDownloader(),
	}
}

// Format returns the output format of this generator.
func (g *PDFGenerator) Format() domain.ReportFormat {
	return domain.ReportFormatPDF
}

// Generate creates a PDF report and writes it to the provided writer.
func (g *PDFGenerator) Generate(ctx context.Context, data *domain.ReportData, w io.Writer) (int64, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("greek")

	// Set document metadata
	pdf.SetTitle(tr("Τεχνική Έκθεση - "+data.ProjectTitle), true)
	pdf.SetAuthor(tr(data.EngineerName), true)
	pdf.SetCreator("Adeia", true)

	// Enable automatic page breaks with footer space
	pdf.SetAutoPageBreak(true, 20)

	// Set up footer on each page
	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, tr, data)
	})

	// Generate report sections
	g.addCoverPage(pdf, tr, data)
	if data.Narrative != "" {
		g.addNarrative(pdf, tr, data)
	}
	g.addSummary(pdf, tr, data)
	g.addFindings(ctx, pdf, tr, data)

	// Check for errors during generation
	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	// Write to buffer to count bytes
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Cover Page
// =============================================================================

func (g *PDFGenerator) addCoverPage(pdf *fpdf.Fpdf, tr func(string) string, data *domain.ReportData) {
	pdf.AddPage()

	// Navy header bar
	r, gr, b := HexToRGB(BrandColors.Navy)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 70, "F")

	// Title
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetXY(g.margin, 25)
	pdf.Cell(0, 12, tr("Τεχνική Έκθεση"))

	// Subtitle with project title
	pdf.SetFont("Helvetica", "", 14)
	pdf.SetXY(g.margin, 42)
	pdf.Cell(0, 8, tr(data.ProjectTitle))

	// Reset text color for body content
	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)

	// Project information block
	pdf.SetXY(g.margin, 90)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("ΕΡΓΟ"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	if data.Address != "" {
		pdf.Cell(0, 7, tr(data.Address))
		pdf.Ln(7)
	}
	if data.City != "" || data.PostalCode != "" {
		cityLine := data.City
		if data.PostalCode != "" {
			if cityLine != "" {
				cityLine += " "
			}
			cityLine += data.PostalCode
		}
		pdf.Cell(0, 7, tr(cityLine))
		pdf.Ln(7)
	}
	if data.Authority != "" {
		pdf.Cell(0, 7, tr("Αρμόδια υπηρεσία: "+data.Authority))
		pdf.Ln(7)
	}

	// Permit procedure
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("ΔΙΑΔΙΚΑΣΙΑ"))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, tr(data.PermitType.GreekLabel()))

	// Engineer information
	pdf.Ln(15)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("ΜΗΧΑΝΙΚΟΣ"))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	if data.EngineerName != "" {
		pdf.Cell(0, 7, tr(data.EngineerName))
		pdf.Ln(7)
	}
	if data.EngineerCompany != "" {
		pdf.Cell(0, 7, tr(data.EngineerCompany))
		pdf.Ln(7)
	}
	if data.EngineerRegistry != "" {
		pdf.Cell(0, 7, tr("Α.Μ. ΤΕΕ: "+data.EngineerRegistry))
		pdf.Ln(7)
	}
	if data.EngineerEmail != "" {
		pdf.Cell(0, 7, tr(data.EngineerEmail))
		pdf.Ln(7)
	}
	if data.EngineerPhone != "" {
		pdf.Cell(0, 7, tr(data.EngineerPhone))
		pdf.Ln(7)
	}

	// Date of issue
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("ΗΜΕΡΟΜΗΝΙΑ ΣΥΝΤΑΞΗΣ"))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, FormatDate(data.GeneratedAt))
}

// =============================================================================
// Technical Narrative
// =============================================================================

func (g *PDFGenerator) addNarrative(pdf *fpdf.Fpdf, tr func(string) string, data *domain.ReportData) {
	pdf.AddPage()
	g.addSectionHeader(pdf, tr, "Τεχνική Περιγραφή")

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(g.contentWidth, 6, tr(data.Narrative), "", "L", false)
}

// =============================================================================
// Summary
// =============================================================================

func (g *PDFGenerator) addSummary(pdf *fpdf.Fpdf, tr func(string) string, data *domain.ReportData) {
	pdf.AddPage()
	g.addSectionHeader(pdf, tr, "Σύνοψη Ελέγχου")

	// Finding counts table
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, tr("Ευρήματα ανά σοβαρότητα"))
	pdf.Ln(10)

	counts := data.FindingCountBySeverity()
	total := data.TotalFindings()

	// Table header
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(80, 8, tr("Σοβαρότητα"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, tr("Πλήθος"), "1", 1, "C", true, 0, "")

	// Table rows
	pdf.SetFont("Helvetica", "", 10)
	severities := []domain.FindingSeverity{
		domain.FindingSeverityBlocking,
		domain.FindingSeverityWarning,
		domain.FindingSeverityInfo,
	}

	for _, sev := range severities {
		count := counts[sev]
		if count > 0 || sev != domain.FindingSeverityInfo {
			// Color indicator
			r, gr, b := HexToRGB(SeverityColor(sev))
			pdf.SetFillColor(r, gr, b)
			pdf.CellFormat(5, 8, "", "1", 0, "C", true, 0, "")
			pdf.SetFillColor(255, 255, 255)
			pdf.CellFormat(75, 8, tr(SeverityLabel(sev)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 8, fmt.Sprintf("%d", count), "1", 1, "C", false, 0, "")
		}
	}

	// Total row
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(80, 8, tr("Σύνολο"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%d", total), "1", 1, "C", true, 0, "")

	// Checklist progress (if available)
	if data.HasChecklist() {
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, tr("Πρόοδος Δικαιολογητικών"))
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 7, tr(fmt.Sprintf("Συγκεντρωμένα %d από %d δικαιολογητικά", data.ChecklistDone, data.ChecklistTotal)))
		pdf.Ln(7)
	}

	// Project notes (if available)
	if data.Description != "" {
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, tr("Σημειώσεις Έργου"))
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(g.contentWidth, 6, tr(data.Description), "", "L", false)
	}
}

// =============================================================================
// Findings Section
// =============================================================================

func (g *PDFGenerator) addFindings(ctx context.Context, pdf *fpdf.Fpdf, tr func(string) string, data *domain.ReportData) {
	pdf.AddPage()
	g.addSectionHeader(pdf, tr, "Ευρήματα Ελέγχου Σχεδίων")

	if len(data.Findings) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 10, tr("Δεν εντοπίστηκαν ευρήματα κατά τον έλεγχο των σχεδίων."))
		return
	}

	for i, finding := range data.Findings {
		// Check if we need a new page (leave room for at least basic finding info)
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}

		g.addFinding(ctx, pdf, tr, finding)

		// Add spacing between findings
		if i < len(data.Findings)-1 {
			pdf.Ln(8)
			// Draw separator line
			r, gr, b := HexToRGB(BrandColors.Border)
			pdf.SetDrawColor(r, gr, b)
			pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
			pdf.Ln(8)
		}
	}
}

func (g *PDFGenerator) addFinding(ctx context.Context, pdf *fpdf.Fpdf, tr func(string) string, finding domain.ReportFinding) {
	// Finding header with severity indicator
	r, gr, b := HexToRGB(SeverityColor(finding.Severity))
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin, pdf.GetY(), 4, 8, "F")

	pdf.SetX(g.margin + 8)
	pdf.SetFont("Helvetica", "B", 12)
	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Εύρημα %d: %s", finding.Number, finding.Title)))
	pdf.Ln(10)

	// Severity badge
	pdf.SetX(g.margin + 8)
	pdf.SetFont("Helvetica", "", 10)
	r, gr, b = HexToRGB(SeverityColor(finding.Severity))
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 6, tr("Σοβαρότητα: "+SeverityLabel(finding.Severity)))
	pdf.Ln(8)

	// Reset text color
	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)

	// Source drawing
	if finding.BlueprintFilename != "" {
		pdf.SetFont("Helvetica", "", 9)
		r, gr, b = HexToRGB(BrandColors.TextMuted)
		pdf.SetTextColor(r, gr, b)
		pdf.Cell(0, 5, tr("Σχέδιο: "+finding.BlueprintFilename))
		pdf.Ln(7)
		r, gr, b = HexToRGB(BrandColors.TextDark)
		pdf.SetTextColor(r, gr, b)
	}

	// Description
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(g.contentWidth, 5, tr(finding.Description), "", "L", false)
	pdf.Ln(4)

	// Regulation reference
	if finding.HasReference() {
		pdf.SetFont("Helvetica", "B", 10)
		r, gr, b = HexToRGB(BrandColors.Aegean)
		pdf.SetTextColor(r, gr, b)
		pdf.Cell(0, 6, tr("Κανονιστική αναφορά: "+finding.Reference))
		pdf.Ln(8)
		r, gr, b = HexToRGB(BrandColors.TextDark)
		pdf.SetTextColor(r, gr, b)
	}

	// Drawing thumbnail
	g.addThumbnail(ctx, pdf, finding)
}

// addThumbnail embeds the drawing thumbnail below the finding text. Download
// failures are skipped silently so an expired URL never fails report
// generation.
func (g *PDFGenerator) addThumbnail(ctx context.Context, pdf *fpdf.Fpdf, finding domain.ReportFinding) {
	if finding.ThumbnailURL == "" || g.downloader == nil {
		return
	}

	img, err := g.downloader.Download(ctx, finding.ThumbnailURL)
	if err != nil || img == nil {
		return
	}

	name := fmt.Sprintf("finding-%d", finding.Number)
	opts := fpdf.ImageOptions{ImageType: "JPG", ReadDpi: true}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if pdf.Err() {
		pdf.ClearError()
		return
	}

	if pdf.GetY() > 200 {
		pdf.AddPage()
	}
	pdf.ImageOptions(name, g.margin, pdf.GetY(), 60, 0, true, opts, 0, "")
	pdf.Ln(4)
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFGenerator) addSectionHeader(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	// Draw navy underline
	r, gr, b := HexToRGB(BrandColors.Navy)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.5)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(10)

	// Reset text color
	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFGenerator) addFooter(pdf *fpdf.Fpdf, tr func(string) string, data *domain.ReportData) {
	pdf.SetY(-15)

	// Draw separator line
	r, gr, b := HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY()-3, g.pageWidth-g.margin, pdf.GetY()-3)

	// Footer text
	r, gr, b = HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 8)

	// Left: generation date
	pdf.Cell(0, 10, tr("Συντάχθηκε: "+FormatDateTime(data.GeneratedAt)))

	// Right: page number
	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 10, tr(fmt.Sprintf("Σελίδα %d", pdf.PageNo())), "", 0, "R", false, 0, "")
}
