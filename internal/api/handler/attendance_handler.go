package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/dto"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/roster"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/service"
	pkgerrors "github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/errors"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/response"
)

// rosterField 名单文件的表单字段名
const rosterField = "student_file"

// AttendanceHandler 考勤日历模块 Handler
type AttendanceHandler struct {
	svc     service.GenerationService
	baseURL string
}

// NewAttendanceHandler 创建 AttendanceHandler 实例
//
// baseURL 用于拼接下载地址，为空时返回相对路径。
func NewAttendanceHandler(svc service.GenerationService, baseURL string) *AttendanceHandler {
	return &AttendanceHandler{svc: svc, baseURL: strings.TrimRight(baseURL, "/")}
}

// Generate 生成考勤日历
// POST /api/v1/attendance/generate
//
// multipart/form-data：
//   - 名单模式: student_file 上传 .xlsx / .xls / .csv
//   - 单人模式: emp_code + emp_name
func (h *AttendanceHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBind(&req); err != nil {
		handleBindError(c, err)
		return
	}

	entries, ok := h.readRoster(c, &req)
	if !ok {
		return
	}

	res, err := h.svc.Generate(c.Request.Context(), &service.GenerateInput{
		BatchID:        req.BatchID,
		DepartmentName: req.DeptName,
		CompanyName:    req.CompanyName,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Roster:         entries,
		Seed:           req.Seed,
		Formats:        req.Formats,
	})
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.Created(c, service.ToGenerateResponse(res, h.downloadURL(res.JobID)))
}

// readRoster 取上传名单，无文件时回退到单人模式；ok=false 时已写入响应
func (h *AttendanceHandler) readRoster(c *gin.Context, req *dto.GenerateRequest) ([]attendance.RosterEntry, bool) {
	file, header, err := c.Request.FormFile(rosterField)
	if err == nil {
		defer file.Close()
		entries, err := h.svc.ParseRoster(file, header.Filename)
		if err != nil {
			handleAttendanceError(c, err)
			return nil, false
		}
		return entries, true
	}

	if isBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, pkgerrors.CodeBodyTooLarge, "")
		return nil, false
	}

	code, name := strings.TrimSpace(req.EmpCode), strings.TrimSpace(req.EmpName)
	if code == "" && name == "" {
		handleAttendanceError(c, &attendance.ValidationError{
			Field:  "roster",
			Reason: "请上传名单文件或填写 emp_code / emp_name",
		})
		return nil, false
	}
	return []attendance.RosterEntry{{Code: code, Name: name}}, true
}

func (h *AttendanceHandler) downloadURL(jobID string) string {
	return h.baseURL + "/api/v1/attendance/jobs/" + jobID + "/download"
}

// Preview 预览合成结果（不渲染、不保存）
// POST /api/v1/attendance/preview
func (h *AttendanceHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	entries := make([]attendance.RosterEntry, 0, len(req.Roster))
	for _, e := range req.Roster {
		entries = append(entries, attendance.RosterEntry{
			Code: strings.TrimSpace(e.Code),
			Name: strings.TrimSpace(e.Name),
		})
	}

	resp, err := h.svc.Preview(c.Request.Context(), &service.GenerateInput{
		BatchID:        req.BatchID,
		DepartmentName: req.DeptName,
		CompanyName:    req.CompanyName,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Roster:         entries,
		Seed:           req.Seed,
	})
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, resp)
}

// Download 下载打包结果
// GET /api/v1/attendance/jobs/:id/download
func (h *AttendanceHandler) Download(c *gin.Context) {
	art, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.Attachment(c, art.Filename, art.ContentType, art.Data)
}

// ListRuns 生成历史
// GET /api/v1/attendance/runs
func (h *AttendanceHandler) ListRuns(c *gin.Context) {
	var req dto.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.svc.ListRuns(c.Request.Context(), &req)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetRun 单条生成记录
// GET /api/v1/attendance/runs/:id
func (h *AttendanceHandler) GetRun(c *gin.Context) {
	resp, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAttendanceError(c, err)
		return
	}
	response.OK(c, resp)
}

// ── 错误映射 ──

// isBodyTooLarge multipart 解析可能以 %v 包装 MaxBytesError，退化为匹配错误文本
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func handleBindError(c *gin.Context, err error) {
	if isBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, pkgerrors.CodeBodyTooLarge, "")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, pkgerrors.CodeBadRequest, "", err.Error())
}

func handleAttendanceError(c *gin.Context, err error) {
	var ve *attendance.ValidationError

	switch {
	case errors.As(err, &ve):
		response.ErrorWithDetails(c, http.StatusBadRequest, pkgerrors.CodeInvalidInput, "",
			[]dto.FieldError{{Field: ve.Field, Reason: ve.Reason}})
	case errors.Is(err, attendance.ErrInvalidInput):
		response.ErrorWithDetails(c, http.StatusBadRequest, pkgerrors.CodeInvalidInput, "", err.Error())
	case errors.Is(err, roster.ErrRosterEmpty),
		errors.Is(err, roster.ErrRosterBadHeader),
		errors.Is(err, roster.ErrRosterTooLarge),
		errors.Is(err, roster.ErrRosterUnsupported),
		errors.Is(err, roster.ErrRosterUnreadable),
		errors.Is(err, service.ErrRosterOverLimit):
		response.ErrorWithDetails(c, http.StatusBadRequest, pkgerrors.CodeRosterInvalid, "", err.Error())
	case isBodyTooLarge(err):
		response.Error(c, http.StatusRequestEntityTooLarge, pkgerrors.CodeBodyTooLarge, "")
	case errors.Is(err, service.ErrJobNotFound):
		response.NotFound(c, pkgerrors.CodeJobNotFound, "")
	case errors.Is(err, service.ErrRunNotFound):
		response.NotFound(c, pkgerrors.CodeRunNotFound, "")
	case errors.Is(err, service.ErrHistoryDisabled):
		response.NotFound(c, pkgerrors.CodeHistoryDisabled, "")
	case errors.Is(err, service.ErrAllRenderersFailed):
		response.ErrorWithDetails(c, http.StatusInternalServerError, pkgerrors.CodeRenderFailed, "", err.Error())
	case errors.Is(err, service.ErrGenerationTimeout):
		response.Error(c, http.StatusGatewayTimeout, pkgerrors.CodeTimeout, "")
	default:
		response.InternalError(c)
	}
}
