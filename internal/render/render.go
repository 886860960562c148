package render

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
)

// Format 输出格式
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatICS  Format = "ics"
)

// AllFormats 默认输出的全部格式
var AllFormats = []Format{FormatXLSX, FormatPDF, FormatDOCX, FormatICS}

var (
	ErrUnknownFormat = errors.New("未知的输出格式")
	ErrEmptyReport   = errors.New("报表无数据")
)

// Artifact 一个渲染产物
type Artifact struct {
	Format      Format
	Filename    string
	ContentType string
	Data        []byte
}

// Renderer 报表渲染器：只读消费 Report，同一输入输出一致
type Renderer interface {
	Format() Format
	Render(ctx context.Context, report *attendance.Report) (*Artifact, error)
}

// RenderError 单个渲染器失败
type RenderError struct {
	Format Format
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("渲染 %s 失败: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// New 按格式创建渲染器
func New(format Format) (Renderer, error) {
	switch format {
	case FormatXLSX:
		return NewExcelRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	case FormatDOCX:
		return NewDocxRenderer(), nil
	case FormatICS:
		return NewICSRenderer(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ParseFormats 解析逗号分隔的格式列表；空串表示全部格式
func ParseFormats(list string) ([]Format, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return append([]Format(nil), AllFormats...), nil
	}
	seen := make(map[Format]bool)
	var formats []Format
	for _, part := range strings.Split(list, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" || seen[f] {
			continue
		}
		if _, err := New(f); err != nil {
			return nil, err
		}
		seen[f] = true
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: 格式列表为空", ErrUnknownFormat)
	}
	return formats, nil
}

// Result 批量渲染结果
type Result struct {
	Artifacts []*Artifact
	Errors    []*RenderError
}

// RenderAll 依次执行全部渲染器；单个渲染器失败不影响其余格式
func RenderAll(ctx context.Context, report *attendance.Report, renderers ...Renderer) *Result {
	res := &Result{}
	for _, r := range renderers {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, &RenderError{Format: r.Format(), Err: err})
			continue
		}
		art, err := safeRender(ctx, r, report)
		if err != nil {
			res.Errors = append(res.Errors, &RenderError{Format: r.Format(), Err: err})
			continue
		}
		res.Artifacts = append(res.Artifacts, art)
	}
	return res
}

// safeRender 将渲染库内部 panic 转成错误
func safeRender(ctx context.Context, r Renderer, report *attendance.Report) (art *Artifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			art, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	if report == nil || len(report.Months) == 0 {
		return nil, ErrEmptyReport
	}
	return r.Render(ctx, report)
}

// ── 公共辅助 ──

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// BaseName 由批次号生成产物文件名前缀
func BaseName(cfg attendance.ReportConfig) string {
	batch := strings.Trim(unsafeFileChars.ReplaceAllString(cfg.BatchID, "_"), "_")
	if batch == "" {
		return "attendance_calendar"
	}
	return "attendance_calendar_" + batch
}

// dayRows 表格行：标签 + 每日取值
var dayRows = []struct {
	Label string
	Value func(attendance.DayRecord) string
}{
	{"IN", attendance.DayRecord.ClockIn},
	{"OUT", attendance.DayRecord.ClockOut},
	{"WORK", attendance.DayRecord.Worked},
	{"BREAK", attendance.DayRecord.Break},
	{"OT", attendance.DayRecord.Overtime},
	{"Status", func(d attendance.DayRecord) string { return d.Status.Code() }},
}

// headerLines 考勤块头部文本（PDF / Word 共用）
func headerLines(cfg attendance.ReportConfig, b attendance.MonthBlock) []string {
	s := b.Summary
	return []string{
		fmt.Sprintf("Dept. Name: %s    CompName: %s    Report Month: %s", cfg.DepartmentName, cfg.CompanyName, b.Label),
		fmt.Sprintf("Empcode: %s    Name: %s", b.Entry.Code, b.Entry.Name),
		fmt.Sprintf("Present: %d  Absent: %d  WO: %d  HL: %d  LV: %d  Tot. Work+OT: %s  Total OT: %s",
			s.Present, s.Absent, s.WeeklyOff, s.Holiday, s.Leave, s.TotalWorked(), s.TotalOvertime()),
	}
}
