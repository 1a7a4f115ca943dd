package export

import (
	"fmt"
	"io"
	"time"

	"consultdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Consultations"

// ContentType is the MIME type of the workbook written by WriteConsultations.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []string{
	"ID", "Created", "Name", "Email", "Account email", "Type", "Date", "Time",
	"Contact", "Address", "Status", "Paid", "Message",
}

// FileName returns the download name for an export generated at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("consultations_%s.xlsx", now.Format("2006-01-02"))
}

// WriteConsultations renders consultations as a single-sheet workbook.
func WriteConsultations(w io.Writer, list []*models.Consultation) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	pendingStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
	})
	for i, c := range list {
		row := i + 2
		values := []interface{}{
			c.ID,
			formatCreated(c.CreatedAt),
			c.FullName,
			c.Email,
			c.UserEmail,
			models.ConsultationTypeLabel(c.ConsultationType),
			c.Date,
			c.Time,
			c.Contact,
			c.Address,
			models.StatusLabel(c.Status),
			yesNo(c.HasPaid),
			c.DetailedMessage,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if c.Status == models.StatusPending {
			end, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, start, end, pendingStyle)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "L", 18)
	_ = f.SetColWidth(sheetName, "M", "M", 50)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.TimestampLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
