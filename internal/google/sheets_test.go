package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"consultdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const testSpreadsheet = "consultations_sid"

func setupMockServer(t *testing.T) (*http.ServeMux, *SheetsService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return mux, newWithService(srv, testSpreadsheet)
}

func encode(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func sampleConsultation(id string) *models.Consultation {
	return &models.Consultation{
		ID:               id,
		UserID:           "u-1",
		FullName:         "Asha Rao",
		ConsultationType: models.TypeAstrology,
		Date:             "2024-06-01",
		Time:             "10:00 AM",
		Status:           models.StatusPending,
		CreatedAt:        time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestTestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A1", func(w http.ResponseWriter, r *http.Request) {
		encode(w, sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	assert.NoError(t, s.TestConnection(context.Background()))
}

func TestWarmUpCache(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A:A", func(w http.ResponseWriter, r *http.Request) {
		encode(w, sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"c-1"}, {}, {"c-3"}}})
	})

	require.NoError(t, s.WarmUpCache(context.Background()))
	row, ok := s.getCachedRow("c-1")
	assert.True(t, ok)
	assert.Equal(t, 2, row)
	row, _ = s.getCachedRow("c-3")
	assert.Equal(t, 4, row)
	_, ok = s.getCachedRow("ID")
	assert.False(t, ok, "header row is not an id")
}

func TestUpsertConsultation_Append(t *testing.T) {
	mux, s := setupMockServer(t)
	ctx := context.Background()

	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A:A", func(w http.ResponseWriter, r *http.Request) {
		encode(w, sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	var appended sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&appended))
		encode(w, sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Consultations!A10:N10"},
		})
	})

	require.NoError(t, s.UpsertConsultation(ctx, sampleConsultation("c-9")))
	require.Len(t, appended.Values, 1)
	assert.Equal(t, "c-9", appended.Values[0][0])
	assert.Equal(t, "Vedic Astrology", appended.Values[0][4])

	row, ok := s.getCachedRow("c-9")
	assert.True(t, ok)
	assert.Equal(t, 10, row)
}

func TestUpsertConsultation_Update(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("c-1", 2)

	called := false
	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A2:N2", func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPut, r.Method)
		encode(w, sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.UpsertConsultation(context.Background(), sampleConsultation("c-1")))
	assert.True(t, called)
	assert.Error(t, s.UpsertConsultation(context.Background(), nil))
}

func TestDeleteConsultationRow(t *testing.T) {
	mux, s := setupMockServer(t)
	ctx := context.Background()
	s.setCachedRow("c-3", 3)

	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A3:N3:clear", func(w http.ResponseWriter, r *http.Request) {
		encode(w, sheets.ClearValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A:A", func(w http.ResponseWriter, r *http.Request) {
		encode(w, sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})

	require.NoError(t, s.DeleteConsultationRow(ctx, "c-3"))
	_, ok := s.getCachedRow("c-3")
	assert.False(t, ok)

	assert.NoError(t, s.DeleteConsultationRow(ctx, "never-mirrored"))
}

func TestFindConsultationRow(t *testing.T) {
	mux, s := setupMockServer(t)
	ctx := context.Background()
	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A:A", func(w http.ResponseWriter, r *http.Request) {
		encode(w, sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"c-1"}, {"c-2"}}})
	})

	row, err := s.FindConsultationRow(ctx, "c-2")
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	_, err = s.FindConsultationRow(ctx, "c-404")
	assert.ErrorIs(t, err, ErrRowNotFound)

	_, err = s.FindConsultationRow(ctx, "")
	assert.Error(t, err)
}

func TestReplaceConsultationsSheet(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("stale", 7)

	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A1:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		encode(w, sheets.ClearValuesResponse{})
	})
	var written sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/"+testSpreadsheet+"/values/Consultations!A1", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&written))
		encode(w, sheets.UpdateValuesResponse{})
	})

	list := []*models.Consultation{sampleConsultation("c-1"), sampleConsultation("c-2")}
	require.NoError(t, s.ReplaceConsultationsSheet(context.Background(), list))
	assert.Len(t, written.Values, 3)
	assert.Equal(t, "ID", written.Values[0][0])

	row, _ := s.getCachedRow("c-2")
	assert.Equal(t, 3, row)
	_, ok := s.getCachedRow("stale")
	assert.False(t, ok)
}

func TestRowFromRange(t *testing.T) {
	assert.Equal(t, 10, rowFromRange("Consultations!A10:N10"))
	assert.Equal(t, 2, rowFromRange("A2"))
	assert.Equal(t, 0, rowFromRange("Consultations!A:A"))
}

func TestNewSheetsService_BadCredentials(t *testing.T) {
	ctx := context.Background()
	_, err := NewSheetsService(ctx, filepath.Join(t.TempDir(), "missing.json"), testSpreadsheet)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"nonsense"}`), 0o600))
	_, err = NewSheetsService(ctx, path, testSpreadsheet)
	assert.Error(t, err)
}
