package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/dubsync/internal/job"
	"github.com/maauso/dubsync/internal/media"
	"github.com/maauso/dubsync/internal/timeline"
)

// mockMedia implements every media collaborator of job.SyncService.
type mockMedia struct {
	mock.Mock
}

func (m *mockMedia) Probe(ctx context.Context, path string) (media.Info, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(media.Info), args.Error(1)
}

func (m *mockMedia) ExtractPCM(ctx context.Context, src, dst string) error {
	args := m.Called(ctx, src, dst)
	return args.Error(0)
}

func (m *mockMedia) DetectSilence(ctx context.Context, path string, opts media.SilenceOpts) ([]timeline.Silence, error) {
	args := m.Called(ctx, path, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]timeline.Silence), args.Error(1)
}

func (m *mockMedia) Render(ctx context.Context, manifestPath, output string, opts media.RenderOpts) error {
	args := m.Called(ctx, manifestPath, output, opts)
	return args.Error(0)
}

func (m *mockMedia) expectSuccess(release <-chan struct{}) {
	extract := m.On("ExtractPCM", mock.Anything, mock.Anything, mock.Anything)
	if release != nil {
		extract.Run(func(mock.Arguments) { <-release })
	}
	extract.Return(nil)
	m.On("Probe", mock.Anything, mock.Anything).Return(media.Info{Duration: 10, Channels: 6, Codec: "eac3"}, nil)
	m.On("DetectSilence", mock.Anything, mock.Anything, mock.Anything).
		Return([]timeline.Silence{{Start: 2, End: 3}}, nil)
	m.On("Render", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestHandlers returns handlers over a real SyncService with mocked media
// and a working directory containing master.mkv and dub.mkv.
func newTestHandlers(t *testing.T) (*Handlers, *mockMedia, string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"master.mkv", "dub.mkv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("audio"), 0600))
	}

	m := &mockMedia{}
	logger := testLogger()
	svc := job.NewSyncService(job.NewMemoryRepository(), m, m, m, m, nil, logger, job.WithWorkDir(dir))
	return NewHandlers(svc, logger), m, dir
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func waitForProgress(t *testing.T, h *Handlers, want int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.Progress(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
		var resp ProgressResponse
		return json.NewDecoder(rec.Body).Decode(&resp) == nil && resp.Progress >= want
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestAnalyze_Success(t *testing.T) {
	h, m, dir := newTestHandlers(t)
	m.On("Probe", mock.Anything, filepath.Join(dir, "master.mkv")).
		Return(media.Info{Duration: 5400.25, Channels: 6, Codec: "eac3"}, nil)

	rec := postJSON(t, h.Analyze, "/analyze", AnalyzeRequest{Path: "master.mkv", WorkingDir: dir})

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp AnalyzeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, AnalyzeResponse{Duration: 5400.25, Channels: 6, Codec: "eac3"}, resp)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		setup    func(m *mockMedia)
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing path",
			body:     map[string]string{"working_dir": "."},
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "file not found",
			body:     AnalyzeRequest{Path: "nope.mkv"},
			wantCode: http.StatusNotFound,
			wantErr:  "FILE_NOT_FOUND",
		},
		{
			name: "probe failure",
			body: AnalyzeRequest{Path: "dub.mkv"},
			setup: func(m *mockMedia) {
				m.On("Probe", mock.Anything, mock.Anything).
					Return(media.Info{}, fmt.Errorf("%w: invalid data", media.ErrProbe))
			},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "PROBE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m, _ := newTestHandlers(t)
			if tt.setup != nil {
				tt.setup(m)
			}

			rec := postJSON(t, h.Analyze, "/analyze", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantErr, resp.Code)
		})
	}
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{invalid json"))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "INVALID_JSON", resp.Code)
}

func TestStartSync_Success(t *testing.T) {
	h, m, _ := newTestHandlers(t)
	m.expectSuccess(nil)

	rec := postJSON(t, h.StartSync, "/start-sync", StartSyncRequest{MasterName: "master.mkv", DubName: "dub.mkv"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp StartSyncResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusStarted, resp.Status)
	assert.NotEmpty(t, resp.JobID)

	waitForProgress(t, h, 100)
	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.Logs(rec, httptest.NewRequest(http.MethodGet, "/logs", nil))
		var lines []string
		if json.NewDecoder(rec.Body).Decode(&lines) != nil || len(lines) == 0 {
			return false
		}
		return lines[len(lines)-1] == "Process completed."
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartSync_AlreadyRunning(t *testing.T) {
	h, m, _ := newTestHandlers(t)
	release := make(chan struct{})
	m.expectSuccess(release)

	body := StartSyncRequest{MasterName: "master.mkv", DubName: "dub.mkv"}
	first := postJSON(t, h.StartSync, "/start-sync", body)
	require.Equal(t, http.StatusAccepted, first.Code)

	second := postJSON(t, h.StartSync, "/start-sync", body)
	assert.Equal(t, http.StatusOK, second.Code)
	var resp StartSyncResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&resp))
	assert.Equal(t, StatusAlreadyRunning, resp.Status)
	assert.Empty(t, resp.JobID)

	close(release)
	waitForProgress(t, h, 100)
}

func TestStartSync_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body any
		code string
	}{
		{"missing dub", map[string]string{"master_name": "master.mkv"}, "VALIDATION_ERROR"},
		{"same file twice", StartSyncRequest{MasterName: "a.mkv", DubName: "a.mkv"}, "VALIDATION_ERROR"},
		{"push without S3", StartSyncRequest{MasterName: "master.mkv", DubName: "dub.mkv", PushToS3: true}, "S3_NOT_CONFIGURED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHandlers(t)

			rec := postJSON(t, h.StartSync, "/start-sync", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestLogsAndProgress_NoJob(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Logs(rec, httptest.NewRequest(http.MethodGet, "/logs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Progress(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"progress":0}`, rec.Body.String())
}

func TestCurrentJob(t *testing.T) {
	h, m, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.CurrentJob(rec, httptest.NewRequest(http.MethodGet, "/jobs/current", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	m.expectSuccess(nil)
	postJSON(t, h.StartSync, "/start-sync", StartSyncRequest{MasterName: "master.mkv", DubName: "dub.mkv"})
	waitForProgress(t, h, 100)

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.CurrentJob(rec, httptest.NewRequest(http.MethodGet, "/jobs/current", nil))
		var resp JobResponse
		return json.NewDecoder(rec.Body).Decode(&resp) == nil && resp.State == string(job.StateDone)
	}, 5*time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	h.CurrentJob(rec, httptest.NewRequest(http.MethodGet, "/jobs/current", nil))
	var resp JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 100, resp.Progress)
	assert.Empty(t, resp.Stage)
	require.NotNil(t, resp.MasterInfo)
	assert.Equal(t, 6, resp.MasterInfo.Channels)
	assert.NotNil(t, resp.CompletedAt)
	assert.Equal(t, []SegmentResponse{
		{Source: "dub", In: 0, Out: 2},
		{Source: "master", In: 2, Out: 3},
		{Source: "dub", In: 3, Out: 10},
	}, resp.Segments)
}

func TestGetJob_Failed(t *testing.T) {
	h, m, _ := newTestHandlers(t)
	m.On("ExtractPCM", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: exit status 1", media.ErrExtract))

	start := postJSON(t, h.StartSync, "/start-sync", StartSyncRequest{MasterName: "master.mkv", DubName: "dub.mkv"})
	var started StartSyncResponse
	require.NoError(t, json.NewDecoder(start.Body).Decode(&started))
	waitForProgress(t, h, 100)

	var resp JobResponse
	assert.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/jobs/"+started.JobID, nil)
		req.SetPathValue("id", started.JobID)
		rec := httptest.NewRecorder()
		h.GetJob(rec, req)
		return rec.Code == http.StatusOK && json.NewDecoder(rec.Body).Decode(&resp) == nil && resp.State == string(job.StateFailed)
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, string(job.StageExtractMaster), resp.Stage)
	assert.Contains(t, resp.Error, "exit status 1")
	assert.Equal(t, 100, resp.Progress)
	assert.Empty(t, resp.Segments)
}

func TestGetJob_NotFound(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	rec := httptest.NewRecorder()

	h.GetJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "JOB_NOT_FOUND", resp.Code)
}

func TestGetJob_MissingID(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/", nil)
	rec := httptest.NewRecorder()

	h.GetJob(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Integration(t *testing.T) {
	h, m, _ := newTestHandlers(t)
	m.expectSuccess(nil)
	router := NewRouter(h, testLogger(), DefaultConfig())

	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(server.URL+"/start-sync", "application/json",
		strings.NewReader(`{"master_name":"master.mkv","dub_name":"dub.mkv"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	waitForProgress(t, h, 100)

	resp, err = http.Get(server.URL + "/jobs")
	require.NoError(t, err)
	var list JobListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Len(t, list.Jobs, 1)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dubsync_stage_duration_seconds")

	resp, err = http.Get(server.URL + "/start-sync")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSMiddleware(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	cfg := Config{AllowedOrigins: []string{"https://example.com"}}
	router := NewRouter(h, testLogger(), cfg)

	// Test with allowed origin
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	// Test with disallowed origin
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Test OPTIONS preflight
	req = httptest.NewRequest(http.MethodOptions, "/start-sync", nil)
	req.Header.Set("Origin", "https://example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	// Create a handler that panics
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := RecoveryMiddleware(testLogger())(panicHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	// Should not panic
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
}
