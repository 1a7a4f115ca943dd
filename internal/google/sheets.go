package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"consultdesk/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	sheetName = "Consultations"
	lastCol   = "N"
)

// ErrRowNotFound is returned when a consultation has no row in the mirror.
var ErrRowNotFound = errors.New("consultation row not found")

var sheetHeaders = []interface{}{
	"ID", "User ID", "Name", "Email", "Type", "Date", "Time", "Contact",
	"Address", "Status", "Paid", "Message", "Created At", "Updated At",
}

// SheetsService mirrors consultations into a spreadsheet, one row per booking
// keyed by the id in column A.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

// NewSheetsService authenticates with a service-account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
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

	return newWithService(srv, spreadsheetID), nil
}

func newWithService(srv *sheets.Service, spreadsheetID string) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
	}
}

// TestConnection reads the header cell.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// WarmUpCache rebuilds the id to row index from column A.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if id := cellID(row); id != "" && i > 0 {
			cache[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

// RefreshCache re-reads the row index every interval until ctx is done.
func (s *SheetsService) RefreshCache(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			_ = s.WarmUpCache(refreshCtx)
			cancel()
		}
	}
}

// AppendConsultation adds a row at the end of the sheet.
func (s *SheetsService) AppendConsultation(ctx context.Context, c *models.Consultation) error {
	valueRange := &sheets.ValueRange{Values: [][]interface{}{consultationRowValues(c)}}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, sheetName+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row := rowFromRange(resp.Updates.UpdatedRange); row > 0 {
			s.setCachedRow(c.ID, row)
		}
	}
	return nil
}

// UpsertConsultation rewrites the consultation's row or appends a new one.
func (s *SheetsService) UpsertConsultation(ctx context.Context, c *models.Consultation) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("consultation is required")
	}

	rowIdx, err := s.FindConsultationRow(ctx, c.ID)
	if errors.Is(err, ErrRowNotFound) {
		return s.AppendConsultation(ctx, c)
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", sheetName, rowIdx, lastCol, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{consultationRowValues(c)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// DeleteConsultationRow clears the consultation's row. A missing row is not
// an error.
func (s *SheetsService) DeleteConsultationRow(ctx context.Context, consultationID string) error {
	rowIdx, err := s.FindConsultationRow(ctx, consultationID)
	if errors.Is(err, ErrRowNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", sheetName, rowIdx, lastCol, rowIdx)
	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, rangeData, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		s.deleteCachedRow(consultationID)
	}
	return err
}

// FindConsultationRow returns the 1-based row holding consultationID.
func (s *SheetsService) FindConsultationRow(ctx context.Context, consultationID string) (int, error) {
	if consultationID == "" {
		return 0, fmt.Errorf("consultation id is required")
	}
	if row, ok := s.getCachedRow(consultationID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if cellID(row) == consultationID {
			s.setCachedRow(consultationID, i+1)
			return i + 1, nil
		}
	}
	return 0, ErrRowNotFound
}

// ReplaceConsultationsSheet rewrites the whole sheet from list.
func (s *SheetsService) ReplaceConsultationsSheet(ctx context.Context, list []*models.Consultation) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, sheetName+"!A1:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear consultations sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(list)+1)
	values = append(values, sheetHeaders)
	for _, c := range list {
		values = append(values, consultationRowValues(c))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, sheetName+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write consultations sheet: %w", err)
	}

	cache := make(map[string]int, len(list))
	for i, c := range list {
		cache[c.ID] = i + 2
	}
	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

// ClearCache drops the row index.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCachedRow(id string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

func consultationRowValues(c *models.Consultation) []interface{} {
	return []interface{}{
		c.ID,
		c.UserID,
		c.FullName,
		c.Email,
		models.ConsultationTypeLabel(c.ConsultationType),
		c.Date,
		c.Time,
		c.Contact,
		c.Address,
		models.StatusLabel(c.Status),
		c.HasPaid,
		c.DetailedMessage,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.TimestampLayout)
}

func cellID(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	v, ok := row[0].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// rowFromRange extracts the first row number from "Sheet!A10:N10".
func rowFromRange(a1 string) int {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return row
}
