package dto

// ── 考勤日历请求 ──

// GenerateRequest 生成请求（multipart 表单；名单文件字段为 student_file）
// 必填项由业务层校验，以便返回字段级错误
type GenerateRequest struct {
	BatchID     string  `form:"batch_id"     binding:"max=100"`
	DeptName    string  `form:"dept_name"    binding:"max=200"`
	CompanyName string  `form:"company_name" binding:"max=200"`
	StartDate   string  `form:"start_date"`
	EndDate     string  `form:"end_date"`
	EmpCode     string  `form:"emp_code"     binding:"max=50"`
	EmpName     string  `form:"emp_name"     binding:"max=100"`
	Seed        *uint64 `form:"seed"`
	Formats     string  `form:"formats"`
}

// RosterEntryRequest 名单条目
type RosterEntryRequest struct {
	Code string `json:"code" binding:"max=50"`
	Name string `json:"name" binding:"max=100"`
}

// PreviewRequest 预览请求（JSON，名单内联）
type PreviewRequest struct {
	BatchID     string               `json:"batch_id"     binding:"max=100"`
	DeptName    string               `json:"dept_name"    binding:"max=200"`
	CompanyName string               `json:"company_name" binding:"max=200"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	Roster      []RosterEntryRequest `json:"roster"       binding:"max=5000,dive"`
	Seed        *uint64              `json:"seed"`
}

// RunListRequest 生成历史查询
type RunListRequest struct {
	PaginationRequest
	BatchID string `form:"batch_id"`
}

// ── 考勤日历响应 ──

// ArtifactResponse 单个产物
type ArtifactResponse struct {
	Format   string `json:"format"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// RenderFailureResponse 渲染失败的格式
type RenderFailureResponse struct {
	Format string `json:"format"`
	Error  string `json:"error"`
}

// GenerateResponse 生成结果摘要
type GenerateResponse struct {
	JobID       string                  `json:"job_id"`
	Seed        string                  `json:"seed"` // 字符串避免 JS 精度丢失
	Archive     string                  `json:"archive"`
	DownloadURL string                  `json:"download_url"`
	ExpiresAt   string                  `json:"expires_at,omitempty"`
	RosterSize  int                     `json:"roster_size"`
	Months      []string                `json:"months"`
	Artifacts   []ArtifactResponse      `json:"artifacts"`
	Failed      []RenderFailureResponse `json:"failed,omitempty"`
}

// SummaryResponse 月度汇总
type SummaryResponse struct {
	Present       int    `json:"present"`
	Absent        int    `json:"absent"`
	WeeklyOff     int    `json:"weekly_off"`
	Holiday       int    `json:"holiday"`
	Leave         int    `json:"leave"`
	OutOfRange    int    `json:"out_of_range"`
	TotalWorked   string `json:"total_worked"`
	TotalOvertime string `json:"total_overtime"`
}

// DayResponse 单日记录（时间均为 HH:MM 或 ---）
type DayResponse struct {
	Day       int    `json:"day"`
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	WeeklyOff bool   `json:"weekly_off"`
	In        string `json:"in"`
	Out       string `json:"out"`
	Work      string `json:"work"`
	Break     string `json:"break"`
	OT        string `json:"ot"`
	Status    string `json:"status"`
}

// MonthBlockResponse 一人一月的考勤块
type MonthBlockResponse struct {
	Label       string          `json:"label"`
	EmpCode     string          `json:"emp_code"`
	EmpName     string          `json:"emp_name"`
	WindowStart string          `json:"window_start,omitempty"`
	WindowEnd   string          `json:"window_end,omitempty"`
	Summary     SummaryResponse `json:"summary"`
	Days        []DayResponse   `json:"days"`
}

// PreviewResponse 预览结果
type PreviewResponse struct {
	Seed   string               `json:"seed"`
	Blocks []MonthBlockResponse `json:"blocks"`
}

// RunResponse 生成历史记录
type RunResponse struct {
	RunID          string `json:"run_id"`
	BatchID        string `json:"batch_id"`
	DepartmentName string `json:"department_name"`
	CompanyName    string `json:"company_name"`
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
	RosterSize     int    `json:"roster_size"`
	MonthCount     int    `json:"month_count"`
	Seed           string `json:"seed"`
	Formats        string `json:"formats"`
	FailedFormats  string `json:"failed_formats,omitempty"`
	Status         string `json:"status"`
	ErrorMessage   string `json:"error_message,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
	CreatedAt      string `json:"created_at"`
}
