package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/auth"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/services"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/sheets/memory"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Repository) {
	t.Helper()
	return newTestServerWithSource(t, nil)
}

func newTestServerWithSource(t *testing.T, source services.InvoiceSource) (*Server, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewSQLite(filepath.Join(t.TempDir(), "wplan.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	authenticator := auth.New(repo, true, "demo")
	planning := services.NewPlanningService(importer.New(repo), nil)
	dashboard := services.NewDashboardService(repo)

	srv := NewServer(":0", repo, authenticator, planning, dashboard, source, 10<<20)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, repo
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, target, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, r)
	return w
}

func buildWorkbookUpload(t *testing.T, rows [][]any) (*bytes.Buffer, string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			if err := f.SetCellValue("Sheet1", name, cell); err != nil {
				t.Fatalf("SetCellValue: %v", err)
			}
		}
	}
	wb, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "rechnungen.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(wb.Bytes()); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func createTherapyType(t *testing.T, srv *Server, name string, cents int64) core.TherapyType {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/therapy-types", map[string]any{
		"name":                    name,
		"price_per_session_cents": cents,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create therapy type status = %d, body %s", w.Code, w.Body)
	}
	var created core.TherapyType
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode therapy type: %v", err)
	}
	return created
}

func TestTherapyTypeEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createTherapyType(t, srv, "Psychotherapie", 8000)
	if created.ID == "" || created.Name != "Psychotherapie" {
		t.Fatalf("created = %+v", created)
	}

	w := doJSON(t, srv, http.MethodGet, "/api/therapy-types", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var types []core.TherapyType
	if err := json.Unmarshal(w.Body.Bytes(), &types); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(types) != 1 {
		t.Fatalf("list returned %d types, want 1", len(types))
	}

	w = doJSON(t, srv, http.MethodPost, "/api/therapy-types", map[string]any{"name": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", w.Code)
	}

	w = doJSON(t, srv, http.MethodDelete, "/api/therapy-types/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
	w = doJSON(t, srv, http.MethodDelete, "/api/therapy-types/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", w.Code)
	}
}

func TestImportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	createTherapyType(t, srv, "Psychotherapie", 8000)

	body, contentType := buildWorkbookUpload(t, [][]any{
		{"Datum", "Leistung", "Anzahl", "Betrag"},
		{"15.01.2025", "Psychotherapie", 3, "240,00"},
		{"20.01.2025", "Psychotherapie", 2, ""},
		{"05.02.2025", "Unbekannte Leistung", 1, ""},
	})

	r := httptest.NewRequest(http.MethodPost, "/api/import", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", w.Code, w.Body)
	}
	var result importer.ImportResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Success {
		t.Errorf("result.Success = false, errors %+v", result.Errors)
	}
	if result.ImportedCount != 2 || result.SkippedCount != 1 {
		t.Errorf("imported/skipped = %d/%d, want 2/1", result.ImportedCount, result.SkippedCount)
	}
	if len(result.MissingTherapyTypes) != 1 || result.MissingTherapyTypes[0] != "Unbekannte Leistung" {
		t.Errorf("MissingTherapyTypes = %v", result.MissingTherapyTypes)
	}

	// imported actuals are visible through the plans endpoint
	lw := doJSON(t, srv, http.MethodGet, "/api/plans?year=2025", nil)
	if lw.Code != http.StatusOK {
		t.Fatalf("plans status = %d", lw.Code)
	}
	var plans []core.MonthlyPlan
	if err := json.Unmarshal(lw.Body.Bytes(), &plans); err != nil {
		t.Fatalf("decode plans: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("plans = %+v, want one aggregated January plan", plans)
	}
	if plans[0].ActualSessions != 5 || plans[0].Revenue.Cents != 40000 {
		t.Errorf("plan = %+v, want 5 sessions at 40000 cents", plans[0])
	}
}

func TestImportEndpointRejectsBadUploads(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("not multipart", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("plain"))
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("file", "rechnungen.csv")
		fmt.Fprint(part, "Datum;Leistung")
		mw.Close()

		r := httptest.NewRequest(http.MethodPost, "/api/import", &body)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", w.Code)
		}
	})

	t.Run("wrong declared content type", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {`form-data; name="file"; filename="rechnungen.xlsx"`},
			"Content-Type":        {"text/html"},
		})
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		fmt.Fprint(part, "<html></html>")
		mw.Close()

		r := httptest.NewRequest(http.MethodPost, "/api/import", &body)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", w.Code)
		}
	})

	t.Run("xlsx name but not a zip", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("file", "rechnungen.xlsx")
		fmt.Fprint(part, "Datum;Leistung;Anzahl;Betrag")
		mw.Close()

		r := httptest.NewRequest(http.MethodPost, "/api/import", &body)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", w.Code)
		}
	})

	t.Run("wrong template", func(t *testing.T) {
		body, contentType := buildWorkbookUpload(t, [][]any{
			{"Foo", "Bar"},
			{"1", "2"},
		})
		r := httptest.NewRequest(http.MethodPost, "/api/import", body)
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestImportSheetEndpoint(t *testing.T) {
	source, err := memory.NewFromGrid([][]string{
		{"Datum", "Leistung", "Anzahl", "Betrag"},
		{"15.01.2025", "Psychotherapie", "3", "240,00"},
		{"20.01.2025", "Unbekannte Leistung", "1", "80,00"},
	}, importer.DefaultColumnMapping())
	if err != nil {
		t.Fatalf("NewFromGrid() error = %v", err)
	}

	srv, _ := newTestServerWithSource(t, source)
	createTherapyType(t, srv, "Psychotherapie", 8000)

	w := doJSON(t, srv, http.MethodPost, "/api/import/sheet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sheet import status = %d, body %s", w.Code, w.Body)
	}
	var result importer.ImportResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Success || result.ImportedCount != 1 || result.SkippedCount != 1 {
		t.Fatalf("result = %+v, want 1 imported, 1 skipped", result)
	}
	if len(result.MissingTherapyTypes) != 1 || result.MissingTherapyTypes[0] != "Unbekannte Leistung" {
		t.Errorf("missing therapy types = %v", result.MissingTherapyTypes)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/plans?year=2025", nil)
	var plans []core.MonthlyPlan
	if err := json.Unmarshal(w.Body.Bytes(), &plans); err != nil {
		t.Fatalf("decode plans: %v", err)
	}
	if len(plans) != 1 || plans[0].ActualSessions != 3 || plans[0].Revenue.Cents != 24000 {
		t.Errorf("plans after sheet import = %+v", plans)
	}
}

func TestImportSheetEndpointUnconfigured(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/import/sheet", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status without a configured sheet = %d, want 503", w.Code)
	}
}

func TestPlanAndExpenseEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createTherapyType(t, srv, "Logopädie", 6500)

	w := doJSON(t, srv, http.MethodPut, "/api/plans", map[string]any{
		"therapy_type_id":  created.ID,
		"month":            "2025-03",
		"planned_sessions": 20,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("upsert plan status = %d, body %s", w.Code, w.Body)
	}

	w = doJSON(t, srv, http.MethodPut, "/api/plans", map[string]any{
		"therapy_type_id":  created.ID,
		"month":            "March 2025",
		"planned_sessions": 20,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d, want 400", w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"month":        "2025-03",
		"category":     "Miete",
		"description":  "Praxisräume",
		"amount_cents": 120000,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d, body %s", w.Code, w.Body)
	}
	var expense core.Expense
	if err := json.Unmarshal(w.Body.Bytes(), &expense); err != nil {
		t.Fatalf("decode expense: %v", err)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/expenses?year=2025", nil)
	var expenses []core.Expense
	if err := json.Unmarshal(w.Body.Bytes(), &expenses); err != nil {
		t.Fatalf("decode expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Category != "Miete" {
		t.Errorf("expenses = %+v", expenses)
	}

	w = doJSON(t, srv, http.MethodDelete, "/api/expenses/"+expense.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete expense status = %d, want 204", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/dashboard?year=2025", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", w.Code)
	}
	var dashboard map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &dashboard); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if months, ok := dashboard["months"].([]any); !ok || len(months) != 12 {
		t.Errorf("dashboard months = %v", dashboard["months"])
	}

	w = doJSON(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=3", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &dashboard); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if months, ok := dashboard["months"].([]any); !ok || len(months) != 1 {
		t.Errorf("dashboard months with month filter = %v", dashboard["months"])
	}
}

func TestDashboardCacheInvalidation(t *testing.T) {
	srv, _ := newTestServer(t)

	// Prime the cache with an empty year.
	w := doJSON(t, srv, http.MethodGet, "/api/dashboard?year=2025", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"month":        "2025-06",
		"category":     "Fortbildung",
		"amount_cents": 50000,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d, body %s", w.Code, w.Body)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/dashboard?year=2025", nil)
	var dashboard struct {
		TotalExpensesCents int64 `json:"total_expenses_cents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &dashboard); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dashboard.TotalExpensesCents != 50000 {
		t.Errorf("total_expenses_cents after mutation = %d, want 50000", dashboard.TotalExpensesCents)
	}
}

func TestUnauthorizedWithoutDemoMode(t *testing.T) {
	repo, err := storage.NewSQLite(filepath.Join(t.TempDir(), "wplan.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", repo, auth.New(repo, false, ""),
		services.NewPlanningService(importer.New(repo), nil),
		services.NewDashboardService(repo), nil, 10<<20)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	w := doJSON(t, srv, http.MethodGet, "/api/therapy-types", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", w.Code)
	}

	token, err := repo.CreateSession(context.Background(), "user-1", time.Hour)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/api/therapy-types", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rw, r)
	if rw.Code != http.StatusOK {
		t.Errorf("status with token = %d, want 200", rw.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, target := range []string{"/healthz", "/readyz"} {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", target, w.Code)
		}
	}
}
