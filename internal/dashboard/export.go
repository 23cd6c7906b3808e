package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Production"

// ExportSummaryExcel writes the production summary, area utilization and
// active order progress as a spreadsheet.
func ExportSummaryExcel(w io.Writer, summary *ProductionSummary, areas []*AreaUtilizationRow, progress []*OrderProgressRow) error {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", exportSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2E7D32"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	row := 1
	setRow := func(cells ...interface{}) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetSheetRow(exportSheet, cell, &cells)
		row++
	}
	setHeader := func(cells ...interface{}) {
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(cells), row)
		f.SetCellStyle(exportSheet, start, end, headerStyle)
		setRow(cells...)
	}

	setHeader("Production Summary", "Generated "+summary.GeneratedAt.Format("2006-01-02 15:04"))
	setRow("Planning orders", summary.PlanningOrders)
	setRow("Active orders", summary.ActiveOrders)
	setRow("Completed orders", summary.CompletedOrders)
	setRow("Cancelled orders", summary.CancelledOrders)
	setRow("Active batches", summary.ActiveBatches)
	setRow("Plants in production", summary.PlantsInProduction)
	setRow("Overdue activities", summary.OverdueActivities)
	setRow("Avg mortality rate", fmt.Sprintf("%.1f%%", summary.AvgMortalityRate))
	row++

	setHeader("Area", "Type", "Occupancy", "Capacity", "Utilization", "Active batches")
	for _, a := range areas {
		capacity := "unbounded"
		utilization := ""
		if a.MaxCapacity != nil {
			capacity = strconv.Itoa(*a.MaxCapacity)
		}
		if a.UtilizationPct != nil {
			utilization = fmt.Sprintf("%.1f%%", *a.UtilizationPct)
		}
		setRow(a.Name, a.AreaType, a.CurrentOccupancy, capacity, utilization, a.ActiveBatches)
	}
	row++

	setHeader("Order", "Priority", "Phase", "Progress", "Requested", "Current", "Planned end")
	for _, p := range progress {
		phase := ""
		if p.CurrentPhase != nil {
			phase = *p.CurrentPhase
		}
		setRow(p.OrderNumber, p.Priority, phase,
			fmt.Sprintf("%d%%", p.CompletionPct),
			p.RequestedQty, p.CurrentQty,
			p.PlannedEndDate.Format("2006-01-02"))
	}

	f.SetColWidth(exportSheet, "A", "A", 24)
	f.SetColWidth(exportSheet, "B", "G", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

// ExportSummaryPDF renders the production summary as a one-page PDF.
func ExportSummaryPDF(w io.Writer, summary *ProductionSummary, areas []*AreaUtilizationRow) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Production Summary")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, "Generated "+summary.GeneratedAt.Format(time.RFC1123))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	metrics := []struct {
		label string
		value string
	}{
		{"Planning orders", strconv.Itoa(summary.PlanningOrders)},
		{"Active orders", strconv.Itoa(summary.ActiveOrders)},
		{"Completed orders", strconv.Itoa(summary.CompletedOrders)},
		{"Active batches", strconv.Itoa(summary.ActiveBatches)},
		{"Plants in production", strconv.Itoa(summary.PlantsInProduction)},
		{"Overdue activities", strconv.Itoa(summary.OverdueActivities)},
		{"Avg mortality rate", fmt.Sprintf("%.1f%%", summary.AvgMortalityRate)},
	}
	for _, m := range metrics {
		pdf.CellFormat(70, 7, m.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, m.value, "", 1, "R", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(46, 125, 50)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(60, 8, "Area", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Occupancy", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Capacity", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	fill := false
	pdf.SetFillColor(242, 242, 242)
	for _, a := range areas {
		capacity := "-"
		if a.MaxCapacity != nil {
			capacity = strconv.Itoa(*a.MaxCapacity)
		}
		pdf.CellFormat(60, 7, a.Name, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(35, 7, a.AreaType, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(30, 7, strconv.Itoa(a.CurrentOccupancy), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(30, 7, capacity, "1", 1, "R", fill, 0, "")
		fill = !fill
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
