//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/model"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/repository"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=attendance password=attendance_password dbname=attendance_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 走与生产一致的内嵌 SQL 迁移
	if err := database.RunMigrations(testDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// ═══════════════════════════════════════════════════════════
// GenerationRun
// ═══════════════════════════════════════════════════════════

func TestIntegration_GenerationRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGenerationRunRepo(testDB)

	batch := fmt.Sprintf("IT-%d", time.Now().UnixNano())
	run := newRun(int(time.Now().UnixNano()%1_000_000_000_000), batch, time.Now())
	run.Status = model.RunStatusPartial
	run.FailedFormats = "pdf"

	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	t.Cleanup(func() {
		testDB.Where("run_id = ?", run.RunID).Delete(&model.GenerationRun{})
	})

	got, err := repo.GetByID(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.Status != model.RunStatusPartial || got.FailedFormats != "pdf" {
		t.Errorf("读回的记录不一致: %+v", got)
	}
	if !got.PeriodStart.Equal(run.PeriodStart) {
		t.Errorf("DATE 列往返后应保持日期: %v", got.PeriodStart)
	}

	runs, total, err := repo.List(ctx, batch, 0, 10)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 1 || len(runs) != 1 {
		t.Errorf("期望 1 条，实际 total=%d len=%d", total, len(runs))
	}
}
