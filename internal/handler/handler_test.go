package handler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readiness/internal/middleware"
	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/pkg/apikey"
	appErr "github.com/xxxsen/readiness/internal/pkg/errors"
	"github.com/xxxsen/readiness/internal/service"
)

type fakeAssessments struct {
	created  []service.CreateRequest
	createFn func(req service.CreateRequest) (string, error)
	status   map[string]*service.StatusView
	reports  map[string]*model.AssessmentReport
	cancel   error
	evicted  []string
}

func (f *fakeAssessments) CreateSession(_ context.Context, req service.CreateRequest) (string, error) {
	f.created = append(f.created, req)
	if f.createFn != nil {
		return f.createFn(req)
	}
	return "sess-1", nil
}

func (f *fakeAssessments) GetStatus(_ context.Context, id string) (*service.StatusView, error) {
	if v, ok := f.status[id]; ok {
		return v, nil
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeAssessments) GetReport(_ context.Context, id string) (*model.AssessmentReport, error) {
	if r, ok := f.reports[id]; ok {
		return r, nil
	}
	if _, ok := f.status[id]; ok {
		return nil, fmt.Errorf("%w: session %s is scoring", appErr.ErrNotReady, id)
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeAssessments) Cancel(_ context.Context, id string) error {
	return f.cancel
}

func (f *fakeAssessments) Evict(_ context.Context, id string) error {
	f.evicted = append(f.evicted, id)
	return nil
}

func newTestRouter(fake *fakeAssessments, keys ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), RouterDeps{
		Assessments: NewAssessmentHandler(fake, 1024),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		APIKeys: apikey.NewVerifier(keys, nil),
	})
	return r
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeAssessments{}, "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestUpload(t *testing.T) {
	fake := &fakeAssessments{}
	r := newTestRouter(fake)
	body, ct := multipartBody(t, map[string]string{
		formOrgName: "Acme",
		formContext: "retail bank",
	}, map[string]string{"strategy.txt": "we plan to adopt ai"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessment/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sess-1")
	require.Len(t, fake.created, 1)
	require.Equal(t, "Acme", fake.created[0].OrganisationName)
	require.Equal(t, "retail bank", fake.created[0].Context)
	require.Len(t, fake.created[0].Files, 1)
	require.Equal(t, "strategy.txt", fake.created[0].Files[0].Name)
	require.Equal(t, "we plan to adopt ai", string(fake.created[0].Files[0].Data))
}

func TestUploadRejections(t *testing.T) {
	fake := &fakeAssessments{createFn: func(req service.CreateRequest) (string, error) {
		return "", fmt.Errorf("%w: unsupported file type: %s", appErr.ErrInvalid, req.Files[0].Name)
	}}
	r := newTestRouter(fake)

	body, ct := multipartBody(t, nil, map[string]string{"image.png": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessment/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unsupported file type: image.png")

	body, ct = multipartBody(t, nil, nil)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/assessment/upload", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	big := string(bytes.Repeat([]byte("a"), 2048))
	body, ct = multipartBody(t, nil, map[string]string{"big.txt": big})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/assessment/upload", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Len(t, fake.created, 1)
}

func TestAPIKeyRequired(t *testing.T) {
	fake := &fakeAssessments{status: map[string]*service.StatusView{
		"s1": {SessionID: "s1", Status: model.StatusScoring, ProgressPct: 60},
	}}
	r := newTestRouter(fake, "secret")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessment/s1", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessment/s1", nil)
	req.Header.Set(middleware.HeaderAPIKey, "secret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "progress_pct")
}

func TestStatusAndReport(t *testing.T) {
	fake := &fakeAssessments{
		status: map[string]*service.StatusView{
			"running": {SessionID: "running", Status: model.StatusScoring},
			"done":    {SessionID: "done", Status: model.StatusComplete},
		},
		reports: map[string]*model.AssessmentReport{
			"done": {ReportID: "RPT-ABCDEF12", OrganisationName: "Acme", OverallMaturity: model.MaturityDeveloping},
		},
	}
	r := newTestRouter(fake)

	cases := []struct {
		path string
		want int
	}{
		{"/api/v1/assessment/missing", http.StatusNotFound},
		{"/api/v1/assessment/missing/json", http.StatusNotFound},
		{"/api/v1/assessment/running/json", http.StatusConflict},
		{"/api/v1/assessment/done/json", http.StatusOK},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.Equal(t, tc.want, rec.Code, tc.path)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessment/done/pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "RPT-ABCDEF12.pdf")
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestCancelAndDelete(t *testing.T) {
	fake := &fakeAssessments{cancel: fmt.Errorf("%w: session s1 is complete", appErr.ErrConflict)}
	r := newTestRouter(fake)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/assessment/s1/cancel", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	fake.cancel = nil
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/assessment/s1/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/assessment/s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"s1"}, fake.evicted)
}

func TestMetricsRoute(t *testing.T) {
	r := newTestRouter(&fakeAssessments{}, "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "# metrics")
}

func TestFormatUploadLimit(t *testing.T) {
	require.Equal(t, "0MB", formatUploadLimit(0))
	require.Equal(t, "1MB", formatUploadLimit(10))
	require.Equal(t, "20MB", formatUploadLimit(20*1024*1024))
}
