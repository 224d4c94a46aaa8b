package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"appointly/internal/domain"
	"appointly/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const lastColumn = "K"

var header = []interface{}{
	"ID", "Variant", "Start", "Duration (min)", "Employees", "Clients", "Service", "Notes", "Recurrence", "Created By", "Created At",
}

// SheetsService mirrors stored bookings into one sheet of a spreadsheet,
// one row per booking keyed by the booking id in column A.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string

	cacheMu  sync.RWMutex
	rowCache map[int64]int
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*SheetsService, error) {
	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID, sheetName), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string) *SheetsService {
	if sheetName == "" {
		sheetName = "Bookings"
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rowCache:      make(map[int64]int),
	}
}

func (s *SheetsService) rng(cells string) string {
	return s.sheetName + "!" + cells
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	if _, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A1")).Context(ctx).Do(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// WriteHeader overwrites the first row with column titles.
func (s *SheetsService) WriteHeader(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng("A1:"+lastColumn+"1"), &sheets.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// WarmUpCache reads column A and remembers the row of every booking id.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	rows := make(map[int64]int)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id := cellID(row[0]); id > 0 {
			rows[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = rows
	s.cacheMu.Unlock()
	return nil
}

// AppendBooking writes the booking row. A booking already mirrored is
// rewritten in place, so a retried task never duplicates a row.
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.StoredBooking, labels domain.BookingLabels) error {
	if booking == nil || booking.ID == 0 {
		return errors.New("booking id is required")
	}
	values := &sheets.ValueRange{Values: [][]interface{}{bookingRow(booking, labels)}}

	if row, ok := s.cachedRow(booking.ID); ok {
		cells := fmt.Sprintf("A%d:%s%d", row, lastColumn, row)
		_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng(cells), values).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rng("A:A"), values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row, ok := parseRow(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(booking.ID, row)
		}
	}
	return nil
}

func (s *SheetsService) cachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func bookingRow(b *models.StoredBooking, labels domain.BookingLabels) []interface{} {
	recurrence := ""
	if b.Recurrence != nil {
		recurrence = string(b.Recurrence.Frequency)
		if until, ok := b.Recurrence.Until(); ok {
			recurrence += " until " + until.Format(models.DateLayout)
		} else if n, ok := b.Recurrence.Count(); ok {
			recurrence += fmt.Sprintf(" x%d", n)
		}
	}
	return []interface{}{
		b.ID,
		string(b.Variant),
		b.Timestamp,
		b.DurationMinutes,
		strings.Join(labels.Employees, ", "),
		strings.Join(labels.Clients, ", "),
		labels.Service,
		b.Notes,
		recurrence,
		b.CreatedBy,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

var rowPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

// parseRow extracts the first row number from a range like "Bookings!A10:K10".
func parseRow(a1 string) (int, bool) {
	m := rowPattern.FindStringSubmatch(a1)
	if m == nil {
		return 0, false
	}
	row, err := strconv.Atoi(m[1])
	return row, err == nil
}

func cellID(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		id, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return id
	default:
		return 0
	}
}
