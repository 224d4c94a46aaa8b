package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"appointly/internal/booking"
	"appointly/internal/domain"
	"appointly/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Бронирования"

var headers = []string{
	"ID", "Тип", "Дата", "Время", "Длительность, мин", "Сотрудники",
	"Клиенты", "Услуга", "Повтор", "Участники", "Заметки", "Создал",
}

// Labeler resolves directory names for a booking.
type Labeler interface {
	Labels(ctx context.Context, booking models.ConfirmedBooking) domain.BookingLabels
}

// Exporter renders stored bookings into an XLSX workbook.
type Exporter struct {
	labels Labeler
	dir    string
	logger *zerolog.Logger
}

func NewExporter(labels Labeler, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{labels: labels, dir: dir, logger: logger}
}

// Write renders the workbook for the period into w.
func (e *Exporter) Write(ctx context.Context, w io.Writer, from, to time.Time, bookings []models.StoredBooking) error {
	f, err := e.build(ctx, from, to, bookings)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save stores the workbook in the export directory and returns its path.
func (e *Exporter) Save(ctx context.Context, from, to time.Time, bookings []models.StoredBooking) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := e.build(ctx, from, to, bookings)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(e.dir, FileName(from, to))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel file created")
	return filePath, nil
}

// FileName is the attachment name of a period export.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

func (e *Exporter) build(ctx context.Context, from, to time.Time, bookings []models.StoredBooking) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s", from.Format("02.01.2006"), to.Format("02.01.2006")))
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	if style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err == nil {
		_ = f.SetCellStyle(sheetName, "A1", "A1", style)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	styles := make(map[models.Variant]int)
	for i := range bookings {
		row := i + 3
		if err := e.writeRow(ctx, f, row, &bookings[i]); err != nil {
			f.Close()
			return nil, err
		}

		v := bookings[i].Variant
		if _, ok := styles[v]; !ok {
			styles[v], _ = rowStyle(f, v)
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(headers), row)
		_ = f.SetCellStyle(sheetName, first, last, styles[v])
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "E", 14)
	_ = f.SetColWidth(sheetName, "F", lastCol, 25)
	return f, nil
}

func (e *Exporter) writeRow(ctx context.Context, f *excelize.File, row int, b *models.StoredBooking) error {
	var labels domain.BookingLabels
	if e.labels != nil {
		labels = e.labels.Labels(ctx, b.ConfirmedBooking)
	}

	values := []interface{}{
		b.ID,
		variantTitle(b.Variant),
		formatDate(b.StartDate),
		fmt.Sprintf("%02d:%02d", b.StartHour, b.StartMinute),
		b.DurationMinutes,
		strings.Join(labels.Employees, ", "),
		strings.Join(labels.Clients, ", "),
		labels.Service,
		recurrenceText(b.Recurrence),
		attendeesText(b.Attendees),
		b.Notes,
		b.CreatedBy,
	}

	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func rowStyle(f *excelize.File, v models.Variant) (int, error) {
	color := "#FFFFFF"
	switch v {
	case models.VariantSeries:
		color = "#E2EFDA"
	case models.VariantMeeting:
		color = "#FFEB9C"
	case models.VariantTask:
		color = "#F2F2F2"
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

func variantTitle(v models.Variant) string {
	switch v {
	case models.VariantOneTime:
		return "Разовая"
	case models.VariantSeries:
		return "Серия"
	case models.VariantMeeting:
		return "Встреча"
	case models.VariantTask:
		return "Задача"
	default:
		return string(v)
	}
}

// formatDate переводит YYYY-MM-DD в DD.MM.YYYY
func formatDate(raw string) string {
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return raw
	}
	return d.Format("02.01.2006")
}

func recurrenceText(r *models.RecurrenceSpec) string {
	if r == nil {
		return ""
	}
	if n, ok := r.Count(); ok {
		return fmt.Sprintf("%s, %d раз", r.Frequency, n)
	}
	if until, ok := r.Until(); ok {
		return fmt.Sprintf("%s до %s", r.Frequency, until.Format("02.01.2006"))
	}
	return string(r.Frequency)
}

func attendeesText(attendees []models.Attendee) string {
	if len(attendees) == 0 {
		return ""
	}
	s := booking.Summary(attendees)
	return fmt.Sprintf("✅ %d / ❌ %d / ⏳ %d",
		s[models.AttendeeAccepted], s[models.AttendeeDeclined], s[models.AttendeePending])
}
