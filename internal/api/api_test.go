package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/RishiKendai/textguard/internal/config"
	"github.com/RishiKendai/textguard/internal/ingest"
	"github.com/RishiKendai/textguard/internal/models"
	"github.com/RishiKendai/textguard/internal/plagiarism"
	"github.com/RishiKendai/textguard/internal/repository"
	"github.com/RishiKendai/textguard/internal/vault"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "textguard"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryDocuments struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func (m *memoryDocuments) InsertDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return repository.ErrDuplicate
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *memoryDocuments) GetDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, repository.ErrNotFound)
	}
	return doc, nil
}

func (m *memoryDocuments) ListDocuments(_ context.Context) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]*models.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *memoryDocuments) CountDocuments(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.docs)), nil
}

func (m *memoryDocuments) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

type memoryReports struct {
	mu      sync.Mutex
	records map[string]*models.ReportRecord
}

func (m *memoryReports) InsertReport(_ context.Context, record *models.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.RunID] = record
	return nil
}

func (m *memoryReports) GetReport(_ context.Context, runID string) (*models.ReportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[runID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *memoryReports) ListReports(_ context.Context, limit int64) ([]*models.ReportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]*models.ReportRecord, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}
	if int64(len(records)) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *memoryReports) CompleteReport(_ context.Context, runID string, report *plagiarism.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[runID]
	if !ok {
		return repository.ErrNotFound
	}
	record.Status = models.ReportCompleted
	record.Report = report
	return nil
}

func (m *memoryReports) UpdateReportStatus(_ context.Context, runID, status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[runID]
	if !ok {
		return repository.ErrNotFound
	}
	record.Status = status
	record.Error = errMsg
	return nil
}

func (m *memoryReports) status(runID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record, ok := m.records[runID]; ok {
		return record.Status
	}
	return ""
}

type memoryStatus struct {
	mu    sync.Mutex
	steps map[string]models.Step
}

func (m *memoryStatus) UpdateStatus(_ context.Context, runID string, step models.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[runID] = step
	return nil
}

func (m *memoryStatus) GetStatus(_ context.Context, runID string) (models.Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if step, ok := m.steps[runID]; ok {
		return step, nil
	}
	return models.StepIdle, nil
}

type testServer struct {
	router    *gin.Engine
	documents *memoryDocuments
	reports   *memoryReports
	status    *memoryStatus
}

func newTestServer(t *testing.T, rps float64) *testServer {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:            testSecret,
		JWTIssuer:            testIssuer,
		RateLimitRPS:         rps,
		MaxConcurrentCompute: 2,
		ComputationTimeout:   time.Minute,
		MaxUploadBytes:       1 << 20,
		Engine:               plagiarism.DefaultOptions(),
	}

	cipher, err := vault.NewCipher([]byte("this_is_a_32_byte_key_for_test!!"))
	require.NoError(t, err)

	docs := &memoryDocuments{docs: map[string]*models.Document{}}
	reports := &memoryReports{records: map[string]*models.ReportRecord{}}
	status := &memoryStatus{steps: map[string]models.Step{}}

	handler := NewHandler(
		cfg,
		docs,
		reports,
		status,
		ingest.NewService(cipher, docs, cfg.MaxUploadBytes),
		repository.NewDocumentLoader(docs, cipher),
		plagiarism.NewComparator(cfg.Engine, nil),
	)
	limiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	return &testServer{
		router:    SetupRoutes(cfg, handler, limiter),
		documents: docs,
		reports:   reports,
		status:    status,
	}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validToken(t *testing.T) string {
	return signToken(t, testSecret, jwt.MapClaims{
		"iss": testIssuer,
		"sub": "instructor-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
}

func (s *testServer) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return s.do(t, http.MethodPost, "/api/v1/documents", body, mw.FormDataContentType())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 10)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])
}

func TestJWTAuth(t *testing.T) {
	s := newTestServer(t, 100)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"iss": testIssuer}), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"iss": "someone-else"}), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"iss": testIssuer, "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized},
		{"valid", "Bearer " + validToken(t), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", decode[ErrorResponse](t, w).Code)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 0.5)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/documents", nil, "").Code)

	w := s.do(t, http.MethodGet, "/api/v1/documents", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode[ErrorResponse](t, w).Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.GetLimiter("a")
	rl.GetLimiter("b")

	assert.Equal(t, 0, rl.Cleanup(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, rl.Cleanup(time.Millisecond))
}

func TestUploadDocuments(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.upload(t, map[string]string{
		"student1.txt": "Hello world\nFoo bar",
		"slides.pdf":   "%PDF-1.4",
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.UploadResponse](t, w)
	assert.Equal(t, 1, resp.TotalUploaded)
	require.Len(t, resp.UploadedFiles, 1)
	assert.Equal(t, "student1.txt", resp.UploadedFiles[0].Filename)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "slides.pdf")

	count, _ := s.documents.CountDocuments(context.Background())
	assert.Equal(t, int64(1), count)
}

func TestUploadWithoutValidFiles(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.upload(t, map[string]string{"notes.md": "# notes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/documents", bytes.NewBufferString("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteDocument(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.upload(t, map[string]string{"a.txt": "alpha"})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[models.UploadResponse](t, w).UploadedFiles[0].ID

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/v1/documents/"+id, nil, "").Code)

	w = s.do(t, http.MethodDelete, "/api/v1/documents/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestDownloadDocument(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.upload(t, map[string]string{"essay one.txt": "Hello world\nFoo bar"})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[models.UploadResponse](t, w).UploadedFiles[0].ID

	w = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/content", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello world\nFoo bar", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "essay_one.txt")

	w = s.do(t, http.MethodGet, "/api/v1/documents/missing/content", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", decode[ErrorResponse](t, w).Code)

	require.NoError(t, s.documents.InsertDocument(context.Background(), &models.Document{
		ID:         "corrupt",
		Filename:   "corrupt.txt",
		Ciphertext: []byte("stored without encryption"),
	}))
	w = s.do(t, http.MethodGet, "/api/v1/documents/corrupt/content", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DECRYPT_FAILED", decode[ErrorResponse](t, w).Code)
}

func TestCreateReportRequiresTwoDocuments(t *testing.T) {
	s := newTestServer(t, 100)
	s.upload(t, map[string]string{"a.txt": "alpha"})

	w := s.do(t, http.MethodPost, "/api/v1/reports", bytes.NewBufferString(`{"method":"word_based"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INSUFFICIENT_DOCUMENTS", decode[ErrorResponse](t, w).Code)

	w = s.do(t, http.MethodPost, "/api/v1/reports", bytes.NewBufferString(`{"documentIds":["x","x"]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/reports", bytes.NewBufferString(`{"method":`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[ErrorResponse](t, w).Code)
}

func TestCreateReportRunsComparison(t *testing.T) {
	s := newTestServer(t, 100)
	require.Equal(t, http.StatusOK, s.upload(t, map[string]string{
		"a.txt": "Hello world\nFoo bar",
		"b.txt": "Hello world\nBaz qux",
	}).Code)

	w := s.do(t, http.MethodPost, "/api/v1/reports", bytes.NewBufferString(`{"method":"line_based"}`), "application/json")
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decode[models.ComputeResponse](t, w)
	assert.Equal(t, models.StepInitiated, resp.Step)
	require.NotEmpty(t, resp.RunID)

	assert.Eventually(t, func() bool {
		return s.reports.status(resp.RunID) == models.ReportCompleted
	}, 5*time.Second, 10*time.Millisecond)

	w = s.do(t, http.MethodGet, "/api/v1/reports/"+resp.RunID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	record := decode[models.ReportRecord](t, w)
	require.NotNil(t, record.Report)
	assert.Equal(t, plagiarism.MethodLineBased, record.Report.Method)
	require.Len(t, record.Report.Comparisons, 1)
	assert.Equal(t, 50.0, record.Report.Comparisons[0].SimilarityPercentage)
	assert.Equal(t, plagiarism.StatusMedium, record.Report.Comparisons[0].Status)

	assert.Eventually(t, func() bool {
		var status models.StatusResponse
		w := s.do(t, http.MethodGet, "/api/v1/reports/"+resp.RunID+"/status", nil, "")
		return json.Unmarshal(w.Body.Bytes(), &status) == nil && status.Step == models.StepCompleted
	}, 5*time.Second, 10*time.Millisecond)

	w = s.do(t, http.MethodGet, "/api/v1/reports", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]interface{}](t, w)["total"])
}

func TestCreateReportRecordsFailure(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.do(t, http.MethodPost, "/api/v1/reports", bytes.NewBufferString(`{"documentIds":["missing-1","missing-2"]}`), "application/json")
	require.Equal(t, http.StatusAccepted, w.Code)
	runID := decode[models.ComputeResponse](t, w).RunID

	assert.Eventually(t, func() bool {
		return s.reports.status(runID) == models.ReportFailed
	}, 5*time.Second, 10*time.Millisecond)

	record, err := s.reports.GetReport(context.Background(), runID)
	require.NoError(t, err)
	assert.Contains(t, record.Error, "at least 2 readable documents")

	assert.Eventually(t, func() bool {
		step, _ := s.status.GetStatus(context.Background(), runID)
		return step == models.StepFailed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestReportStatusFallsBackToRecord(t *testing.T) {
	s := newTestServer(t, 100)
	require.NoError(t, s.reports.InsertReport(context.Background(), &models.ReportRecord{
		RunID:  "run-old",
		Status: models.ReportCompleted,
	}))

	w := s.do(t, http.MethodGet, "/api/v1/reports/run-old/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StepCompleted, decode[models.StatusResponse](t, w).Step)

	w = s.do(t, http.MethodGet, "/api/v1/reports/run-unknown/status", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "REPORT_NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestListReportsRejectsBadLimit(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.do(t, http.MethodGet, "/api/v1/reports?limit=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LIMIT", decode[ErrorResponse](t, w).Code)
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, uniqueIDs([]string{"a", "", "b", "a"}))
	assert.Empty(t, uniqueIDs(nil))
}
