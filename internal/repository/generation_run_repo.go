package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/model"
)

// GenerationRunRepository 生成记录数据访问接口
type GenerationRunRepository interface {
	Create(ctx context.Context, run *model.GenerationRun) error
	GetByID(ctx context.Context, id string) (*model.GenerationRun, error)
	List(ctx context.Context, batchID string, offset, limit int) ([]model.GenerationRun, int64, error)
}

// generationRunRepo GenerationRunRepository 的 GORM 实现
type generationRunRepo struct {
	db *gorm.DB
}

// NewGenerationRunRepo 创建 GenerationRunRepository 实例
func NewGenerationRunRepo(db *gorm.DB) GenerationRunRepository {
	return &generationRunRepo{db: db}
}

func (r *generationRunRepo) Create(ctx context.Context, run *model.GenerationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *generationRunRepo) GetByID(ctx context.Context, id string) (*model.GenerationRun, error) {
	var run model.GenerationRun
	err := r.db.WithContext(ctx).
		Where("run_id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List 按创建时间倒序分页；batchID 为空时不过滤
func (r *generationRunRepo) List(ctx context.Context, batchID string, offset, limit int) ([]model.GenerationRun, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.GenerationRun{})
	if batchID != "" {
		query = query.Where("batch_id = ?", batchID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []model.GenerationRun
	err := query.
		Order("created_at DESC").
		Order("run_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	return runs, total, err
}
