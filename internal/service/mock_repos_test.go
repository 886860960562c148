package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/model"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/render"
)

// ── Mock GenerationRunRepository ──

type mockRunRepo struct {
	runs      map[string]*model.GenerationRun
	createErr error
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[string]*model.GenerationRun)}
}

func (m *mockRunRepo) Create(_ context.Context, run *model.GenerationRun) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.runs[run.RunID] = run
	return nil
}

func (m *mockRunRepo) GetByID(_ context.Context, id string) (*model.GenerationRun, error) {
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRunRepo) List(_ context.Context, batchID string, offset, limit int) ([]model.GenerationRun, int64, error) {
	var result []model.GenerationRun
	for _, r := range m.runs {
		if batchID == "" || r.BatchID == batchID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RunID < result[j].RunID })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// ── Mock ArtifactStore ──

type failingStore struct{}

func (failingStore) Save(context.Context, string, *render.Artifact, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Load(context.Context, string) (*render.Artifact, error) {
	return nil, errors.New("connection refused")
}

// ── Mock Renderer ──

type stubRenderer struct {
	format render.Format
	err    error
}

func (r stubRenderer) Format() render.Format { return r.format }

func (r stubRenderer) Render(_ context.Context, report *attendance.Report) (*render.Artifact, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &render.Artifact{
		Format:      r.format,
		Filename:    render.BaseName(report.Config) + "." + string(r.format),
		ContentType: "application/octet-stream",
		Data:        []byte(string(r.format) + ":" + report.Config.BatchID),
	}, nil
}
