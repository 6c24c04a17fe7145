package api

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-extractor/internal/core/ocr"
	"recipe-extractor/internal/core/pipeline"
	"recipe-extractor/internal/core/queue"
	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/pkg/metrics"
)

type fakeEngine struct{ name string }

func (f fakeEngine) Name() string     { return f.name }
func (f fakeEngine) Available() error { return nil }
func (f fakeEngine) Recognize(context.Context, []string, string) (string, error) {
	return "", nil
}

// fakeRunner 讀取上傳的第一個檔案作為標題
type fakeRunner struct {
	docs chan pipeline.Document
	err  error
}

func (f *fakeRunner) Run(_ context.Context, doc pipeline.Document) pipeline.Result {
	f.docs <- doc
	if f.err != nil {
		return pipeline.Result{Status: pipeline.StatusError, Error: f.err.Error(), Err: f.err}
	}
	r := recipe.New()
	r.Title = doc.Text
	if len(doc.Paths) > 0 {
		data, err := os.ReadFile(doc.Paths[0])
		if err != nil {
			return pipeline.Result{Status: pipeline.StatusError, Err: err}
		}
		r.Title = string(data)
		r.SourceFiles = doc.Paths
	}
	return pipeline.Result{OK: true, Status: pipeline.StatusOK, Recipe: r, Missing: []string{}}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Version = "test"
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Server.UploadDir = ""
	cfg.OCR.Language = "ita"
	cfg.RateLimit.Requests = 100
	cfg.RateLimit.Window = time.Minute
	cfg.DedupWindow = time.Second
	return cfg
}

type testServer struct {
	handler http.Handler
	runner  *fakeRunner
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func newTestServer(t *testing.T, cfg *config.Config, runErr error) *testServer {
	t.Helper()
	common.UseLogger(zap.NewNop())

	runner := &fakeRunner{docs: make(chan pipeline.Document, 10), err: runErr}
	q := queue.NewManager(queue.Config{Workers: 1, MaxSize: 4}, runner, nil)
	q.Start()
	t.Cleanup(q.Close)

	reg := ocr.NewRegistry()
	reg.Register(fakeEngine{name: "tesseract"})
	reg.SetDefault("tesseract")

	promReg := prometheus.NewRegistry()
	router, err := SetupRouter(cfg, Deps{
		Queue:    q,
		Registry: reg,
		Metrics:  metrics.New(promReg),
		Gatherer: promReg,
	})
	require.NoError(t, err)
	return &testServer{handler: router, runner: runner}
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), v))
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status  string        `json:"status"`
		Version string        `json:"version"`
		Queue   *queue.Status `json:"queue"`
	}
	decode(t, w, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	require.NotNil(t, health.Queue)
	assert.True(t, health.Queue.Running)

	w = s.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recipe_")
}

func TestOCREnginesAndQueueStatus(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/ocr/engines", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var engines struct {
		Engines []ocr.EngineInfo `json:"engines"`
	}
	decode(t, w, &engines)
	require.Len(t, engines.Engines, 1)
	assert.Equal(t, "tesseract", engines.Engines[0].Name)
	assert.True(t, engines.Engines[0].Default)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/queue/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var st queue.Status
	decode(t, w, &st)
	assert.Equal(t, 1, st.Workers)
	assert.Equal(t, 4, st.MaxQueueSize)
}

func TestAnalyzeUpload(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := multipartRequest(t,
		map[string]string{"lang": "eng", "no_ai": "true"},
		map[string]string{"../torta di zucca.txt": "Torta di zucca"},
	)
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res pipeline.Result
	decode(t, w, &res)
	assert.True(t, res.OK)
	require.NotNil(t, res.Recipe)
	assert.Equal(t, "Torta di zucca", res.Recipe.Title)
	assert.Equal(t, []string{"torta di zucca.txt"}, res.Recipe.SourceFiles)

	doc := <-s.runner.docs
	assert.Equal(t, "eng", doc.Lang)
	assert.True(t, doc.NoAI)
	assert.Equal(t, "torta di zucca.txt", doc.Name)
	assert.NotEmpty(t, doc.RunID)
	require.Len(t, doc.Paths, 1)
	_, err := os.Stat(doc.Paths[0])
	assert.True(t, os.IsNotExist(err), "uploads are removed after the run")
}

func TestAnalyzeText(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(multipartRequest(t, map[string]string{"text": "Pesto alla genovese"}, nil))
	require.Equal(t, http.StatusOK, w.Code)

	doc := <-s.runner.docs
	assert.Equal(t, "Pesto alla genovese", doc.Text)
	assert.Equal(t, "ita", doc.Lang)
	assert.Empty(t, doc.Paths)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   int
	}{
		{"no source", map[string]string{"lang": "ita"}, http.StatusBadRequest},
		{"bad flag", map[string]string{"text": "x", "no_ai": "forse"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(), nil)
			w := s.do(multipartRequest(t, tt.fields, nil))
			assert.Equal(t, tt.want, w.Code)

			var resp common.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, common.ErrCodeInvalidRequest, resp.Code)
		})
	}

	s := newTestServer(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/analyze", bytes.NewBufferString(`{"text":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, s.do(req).Code)
}

func TestAnalyzePipelineFailure(t *testing.T) {
	s := newTestServer(t, testConfig(), common.ErrEmptyText.Wrap(errors.New("0 chars")))

	w := s.do(multipartRequest(t, nil, map[string]string{"vuoto.txt": " "}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var res pipeline.Result
	decode(t, w, &res)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "no text extracted")
}

func TestDeduplication(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	// 相同 boundary 與內容才會得到相同的請求體
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.SetBoundary("fixed-boundary"))
	require.NoError(t, mw.WriteField("text", "Ragù"))
	require.NoError(t, mw.Close())
	payload := buf.Bytes()

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/analyze", bytes.NewReader(payload))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return s.do(req).Code
	}
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Requests = 2
	s := newTestServer(t, cfg, nil)

	get := func() *httptest.ResponseRecorder {
		return s.do(httptest.NewRequest(http.MethodGet, "/api/v1/queue/status", nil))
	}
	assert.Equal(t, http.StatusOK, get().Code)
	assert.Equal(t, http.StatusOK, get().Code)
	w := get()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 健康檢查不受限流
	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/live", nil)).Code)
}

func TestBodySizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 64
	s := newTestServer(t, cfg, nil)

	req := multipartRequest(t, nil, map[string]string{"grande.txt": string(bytes.Repeat([]byte("a"), 512))})
	w := s.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var resp common.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, common.ErrCodeFileTooLarge, resp.Code)
}

func TestSetupRouterRequiresDeps(t *testing.T) {
	_, err := SetupRouter(testConfig(), Deps{})
	assert.Error(t, err)
}
