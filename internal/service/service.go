package service

import (
	"go.uber.org/zap"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/config"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/repository"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Generation GenerationService
}

// NewService 创建 Service 聚合
// repo 为 nil 或未开启 feature.history_enabled 时不记录生成历史
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	store ArtifactStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Service, error) {
	var runs repository.GenerationRunRepository
	if repo != nil && cfg.Feature.HistoryEnabled {
		runs = repo.GenerationRun
	}

	gen, err := NewGenerationService(cfg, store, runs, m, logger)
	if err != nil {
		return nil, err
	}
	return &Service{Generation: gen}, nil
}
