package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/config"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/api/handler"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/dto"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/render"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/service"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/metrics"
)

type stubService struct{}

func (stubService) ParseRoster(io.Reader, string) ([]attendance.RosterEntry, error) { return nil, nil }
func (stubService) Generate(context.Context, *service.GenerateInput) (*service.GenerateResult, error) {
	return nil, service.ErrGenerationTimeout
}
func (stubService) Preview(context.Context, *service.GenerateInput) (*dto.PreviewResponse, error) {
	return &dto.PreviewResponse{Seed: "1"}, nil
}
func (stubService) Download(context.Context, string) (*render.Artifact, error) {
	return nil, service.ErrJobNotFound
}
func (stubService) ListRuns(context.Context, *dto.RunListRequest) ([]dto.RunResponse, int64, error) {
	return nil, 0, service.ErrHistoryDisabled
}
func (stubService) GetRun(context.Context, string) (*dto.RunResponse, error) {
	return nil, service.ErrRunNotFound
}

func testConfig(keys ...string) *config.Config {
	cfg := &config.Config{}
	cfg.Server.BodyLimitMB = 1
	cfg.Auth.APIKeys = keys
	cfg.Auth.Header = "X-API-Key"
	cfg.Feature.MetricsEnabled = true
	return cfg
}

func setup(cfg *config.Config) http.Handler {
	h := &handler.Handler{Attendance: handler.NewAttendanceHandler(stubService{}, "")}
	return Setup(cfg, h, nil, metrics.New(), zap.NewNop())
}

func TestRoutes(t *testing.T) {
	r := setup(testConfig())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/v1/attendance/jobs/x/download", http.StatusNotFound},
		{"GET", "/api/v1/attendance/runs", http.StatusNotFound},
		{"GET", "/api/v1/attendance/runs/x", http.StatusNotFound},
		{"GET", "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Feature.MetricsEnabled = false
	r := setup(cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	r := setup(testConfig("k-0123456789abcdef"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/attendance/runs", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	// 健康检查不需要 Key
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/attendance/runs", nil)
	req.Header.Set("X-API-Key", "k-0123456789abcdef")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected history-disabled 404, got %d", w.Code)
	}
}
