package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/unidoc/unioffice/color"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/measurement"
)

// =============================================================================
// DOCX Generator
// =============================================================================

// DOCXGenerator generates DOCX technical reports from project data.
// The DOCX rendition exists so engineers can edit the narrative before
// filing; it carries the same sections as the PDF without embedded images.
type DOCXGenerator struct{}

// NewDOCXGenerator creates a new DOCX generator.
func NewDOCXGenerator() *DOCXGenerator {
	return &DOCXGenerator{}
}

// Format returns the output format of this generator.
func (g *DOCXGenerator) Format() domain.ReportFormat {
	return domain.ReportFormatDOCX
}

// Generate creates a DOCX report and writes it to the provided writer.
func (g *DOCXGenerator) Generate(ctx context.Context, data *domain.ReportData, w io.Writer) (int64, error) {
	doc := document.New()
	defer doc.Close()

	// Set document properties
	props := doc.CoreProperties
	props.SetTitle("Τεχνική Έκθεση - " + data.ProjectTitle)
	props.SetAuthor(data.EngineerName)

	// Generate report sections
	g.addCoverSection(doc, data)
	if data.Narrative != "" {
		g.addNarrative(doc, data)
	}
	g.addSummary(doc, data)
	g.addFindings(doc, data)

	// Write to buffer to count bytes
	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return 0, fmt.Errorf("docx save error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Cover Section
// =============================================================================

func (g *DOCXGenerator) addCoverSection(doc *document.Document, data *domain.ReportData) {
	// Main title
	title := doc.AddParagraph()
	titleRun := title.AddRun()
	titleRun.Properties().SetBold(true)
	titleRun.Properties().SetSize(30 * measurement.Point)
	titleRun.Properties().SetColor(color.RGB(30, 58, 95)) // Navy
	titleRun.AddText("Τεχνική Έκθεση")
	title.Properties().SetSpacing(0, 20*measurement.Point)

	// Project title
	subtitle := doc.AddParagraph()
	subtitleRun := subtitle.AddRun()
	subtitleRun.Properties().SetSize(14 * measurement.Point)
	subtitleRun.AddText(data.ProjectTitle)
	subtitle.Properties().SetSpacing(0, 30*measurement.Point)

	// Project information
	g.addLabeledSection(doc, "ΕΡΓΟ", func() {
		if data.Address != "" {
			g.addTextLine(doc, data.Address, false)
		}
		if data.City != "" || data.PostalCode != "" {
			cityLine := data.City
			if data.PostalCode != "" {
				if cityLine != "" {
					cityLine += " "
				}
				cityLine += data.PostalCode
			}
			g.addTextLine(doc, cityLine, false)
		}
		if data.Authority != "" {
			g.addTextLine(doc, "Αρμόδια υπηρεσία: "+data.Authority, false)
		}
	})

	// Permit procedure
	g.addLabeledSection(doc, "ΔΙΑΔΙΚΑΣΙΑ", func() {
		g.addTextLine(doc, data.PermitType.GreekLabel(), false)
	})

	// Engineer information
	g.addLabeledSection(doc, "ΜΗΧΑΝΙΚΟΣ", func() {
		if data.EngineerName != "" {
			g.addTextLine(doc, data.EngineerName, false)
		}
		if data.EngineerCompany != "" {
			g.addTextLine(doc, data.EngineerCompany, false)
		}
		if data.EngineerRegistry != "" {
			g.addTextLine(doc, "Α.Μ. ΤΕΕ: "+data.EngineerRegistry, false)
		}
		if data.EngineerEmail != "" {
			g.addTextLine(doc, data.EngineerEmail, false)
		}
		if data.EngineerPhone != "" {
			g.addTextLine(doc, data.EngineerPhone, false)
		}
	})

	// Date of issue
	g.addLabeledSection(doc, "ΗΜΕΡΟΜΗΝΙΑ ΣΥΝΤΑΞΗΣ", func() {
		g.addTextLine(doc, FormatDate(data.GeneratedAt), false)
	})

	// Page break
	doc.AddParagraph().AddRun().AddPageBreak()
}

// =============================================================================
// Technical Narrative
// =============================================================================

func (g *DOCXGenerator) addNarrative(doc *document.Document, data *domain.ReportData) {
	g.addSectionHeader(doc, "Τεχνική Περιγραφή")
	g.addTextLine(doc, data.Narrative, false)
	doc.AddParagraph().AddRun().AddPageBreak()
}

// =============================================================================
// Summary
// =============================================================================

func (g *DOCXGenerator) addSummary(doc *document.Document, data *domain.ReportData) {
	g.addSectionHeader(doc, "Σύνοψη Ελέγχου")

	// Finding counts
	g.addSubsectionHeader(doc, "Ευρήματα ανά σοβαρότητα")

	counts := data.FindingCountBySeverity()
	total := data.TotalFindings()

	// Create summary table
	table := doc.AddTable()
	table.Properties().SetWidthPercent(60)

	// Header row
	headerRow := table.AddRow()
	g.addTableCell(headerRow, "Σοβαρότητα", true, "")
	g.addTableCell(headerRow, "Πλήθος", true, "")

	// Data rows
	severities := []domain.FindingSeverity{
		domain.FindingSeverityBlocking,
		domain.FindingSeverityWarning,
		domain.FindingSeverityInfo,
	}

	for _, sev := range severities {
		count := counts[sev]
		if count > 0 || sev != domain.FindingSeverityInfo {
			row := table.AddRow()
			g.addTableCell(row, SeverityLabel(sev), false, SeverityColor(sev))
			g.addTableCell(row, fmt.Sprintf("%d", count), false, "")
		}
	}

	// Total row
	totalRow := table.AddRow()
	g.addTableCell(totalRow, "Σύνολο", true, "")
	g.addTableCell(totalRow, fmt.Sprintf("%d", total), true, "")

	doc.AddParagraph() // Spacing

	// Checklist progress
	if data.HasChecklist() {
		g.addSubsectionHeader(doc, "Πρόοδος Δικαιολογητικών")
		g.addTextLine(doc, fmt.Sprintf("Συγκεντρωμένα %d από %d δικαιολογητικά", data.ChecklistDone, data.ChecklistTotal), false)
	}

	// Project notes
	if data.Description != "" {
		g.addSubsectionHeader(doc, "Σημειώσεις Έργου")
		g.addTextLine(doc, data.Description, false)
	}

	doc.AddParagraph().AddRun().AddPageBreak()
}

// =============================================================================
// Findings Section
// =============================================================================

func (g *DOCXGenerator) addFindings(doc *document.Document, data *domain.ReportData) {
	g.addSectionHeader(doc, "Ευρήματα Ελέγχου Σχεδίων")

	if len(data.Findings) == 0 {
		para := doc.AddParagraph()
		run := para.AddRun()
		run.Properties().SetItalic(true)
		run.AddText("Δεν εντοπίστηκαν ευρήματα κατά τον έλεγχο των σχεδίων.")
		return
	}

	for i, finding := range data.Findings {
		g.addFinding(doc, finding)

		if i < len(data.Findings)-1 {
			// Add separator between findings (using spacing)
			sep := doc.AddParagraph()
			sep.Properties().SetSpacing(10*measurement.Point, 10*measurement.Point)
			sepRun := sep.AddRun()
			sepRun.Properties().SetColor(color.LightGray)
			sepRun.AddText("────────────────────────────────────────")
		}
	}
}

func (g *DOCXGenerator) addFinding(doc *document.Document, finding domain.ReportFinding) {
	// Finding header
	header := doc.AddParagraph()
	headerRun := header.AddRun()
	headerRun.Properties().SetBold(true)
	headerRun.Properties().SetSize(14 * measurement.Point)
	headerRun.AddText(fmt.Sprintf("Εύρημα %d: %s", finding.Number, finding.Title))

	// Severity
	severity := doc.AddParagraph()
	sevLabel := severity.AddRun()
	sevLabel.AddText("Σοβαρότητα: ")
	sevValue := severity.AddRun()
	sevValue.Properties().SetBold(true)
	r, g_, b := HexToRGB(SeverityColor(finding.Severity))
	sevValue.Properties().SetColor(color.RGB(uint8(r), uint8(g_), uint8(b)))
	sevValue.AddText(SeverityLabel(finding.Severity))

	// Source drawing
	if finding.BlueprintFilename != "" {
		src := doc.AddParagraph()
		srcRun := src.AddRun()
		srcRun.Properties().SetColor(color.Gray)
		srcRun.AddText("Σχέδιο: " + finding.BlueprintFilename)
	}

	// Description
	desc := doc.AddParagraph()
	desc.AddRun().AddText(finding.Description)

	// Regulation reference
	if finding.HasReference() {
		ref := doc.AddParagraph()
		refRun := ref.AddRun()
		refRun.Properties().SetBold(true)
		refRun.Properties().SetColor(color.RGB(14, 116, 144)) // Aegean
		refRun.AddText("Κανονιστική αναφορά: " + finding.Reference)
	}

	doc.AddParagraph() // Spacing
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *DOCXGenerator) addSectionHeader(doc *document.Document, title string) {
	para := doc.AddParagraph()
	run := para.AddRun()
	run.Properties().SetBold(true)
	run.Properties().SetSize(18 * measurement.Point)
	run.Properties().SetColor(color.RGB(30, 58, 95)) // Navy
	run.AddText(title)
	para.Properties().SetSpacing(0, 12*measurement.Point)

	// Add underline effect with a second paragraph
	underline := doc.AddParagraph()
	underlineRun := underline.AddRun()
	underlineRun.Properties().SetColor(color.RGB(30, 58, 95))
	underlineRun.AddText("══════════════════════════════════════════════════")
	underline.Properties().SetSpacing(0, 12*measurement.Point)
}

func (g *DOCXGenerator) addSubsectionHeader(doc *document.Document, title string) {
	para := doc.AddParagraph()
	run := para.AddRun()
	run.Properties().SetBold(true)
	run.Properties().SetSize(12 * measurement.Point)
	run.AddText(title)
	para.Properties().SetSpacing(12*measurement.Point, 6*measurement.Point)
}

func (g *DOCXGenerator) addLabeledSection(doc *document.Document, label string, content func()) {
	// Label
	labelPara := doc.AddParagraph()
	labelRun := labelPara.AddRun()
	labelRun.Properties().SetBold(true)
	labelRun.Properties().SetSize(10 * measurement.Point)
	labelRun.Properties().SetColor(color.Gray)
	labelRun.AddText(label)
	labelPara.Properties().SetSpacing(12*measurement.Point, 4*measurement.Point)

	// Content
	content()
}

func (g *DOCXGenerator) addTextLine(doc *document.Document, text string, italic bool) {
	para := doc.AddParagraph()
	run := para.AddRun()
	if italic {
		run.Properties().SetItalic(true)
	}
	run.AddText(text)
}

func (g *DOCXGenerator) addTableCell(row document.Row, text string, bold bool, colorHex string) {
	cell := row.AddCell()
	para := cell.AddParagraph()
	run := para.AddRun()
	if bold {
		run.Properties().SetBold(true)
	}
	if colorHex != "" {
		r, g_, b := HexToRGB(colorHex)
		run.Properties().SetColor(color.RGB(uint8(r), uint8(g_), uint8(b)))
	}
	run.AddText(text)
}
