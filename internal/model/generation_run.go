package model

import "time"

// 生成任务状态
const (
	RunStatusSuccess = "success" // 全部格式渲染成功
	RunStatusPartial = "partial" // 部分格式失败
	RunStatusFailed  = "failed"  // 校验失败或全部格式失败
)

// GenerationRun 一次考勤日历生成记录（只记录参数与结果摘要，不保存产物）
type GenerationRun struct {
	RunID          string    `gorm:"type:uuid;primaryKey"            json:"run_id"`
	BatchID        string    `gorm:"type:varchar(100);not null;index" json:"batch_id"`
	DepartmentName string    `gorm:"type:varchar(200);not null"       json:"department_name"`
	CompanyName    string    `gorm:"type:varchar(200);not null"       json:"company_name"`
	PeriodStart    time.Time `gorm:"type:date;not null"               json:"period_start"`
	PeriodEnd      time.Time `gorm:"type:date;not null"               json:"period_end"`
	RosterSize     int       `gorm:"not null;default:0"               json:"roster_size"`
	MonthCount     int       `gorm:"not null;default:0"               json:"month_count"`
	Seed           string    `gorm:"type:varchar(20);not null"        json:"seed"`
	Formats        string    `gorm:"type:varchar(100);not null"       json:"formats"`
	FailedFormats  string    `gorm:"type:varchar(100);not null"       json:"failed_formats"`
	Status         string    `gorm:"type:varchar(20);not null"        json:"status"`
	ErrorMessage   string    `gorm:"type:text;not null"               json:"error_message,omitempty"`
	DurationMs     int64     `gorm:"not null;default:0"               json:"duration_ms"`
	BaseModel
}

// TableName 指定表名
func (GenerationRun) TableName() string { return "generation_runs" }
