package render

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
)

// ExcelRenderer 工作簿渲染：每月一个 Sheet，每人一个「表头 + 日历表」块
type ExcelRenderer struct{}

// NewExcelRenderer 创建 ExcelRenderer
func NewExcelRenderer() *ExcelRenderer { return &ExcelRenderer{} }

func (r *ExcelRenderer) Format() Format { return FormatXLSX }

// 每个考勤块占用的行数：4 行表头 + 日期行 + 星期行 + 6 行数据 + 1 行空行
const excelBlockRows = 13

type excelStyles struct {
	header  int
	dayHead int
	label   int
	cell    int
	present int
	absent  int
	holiday int
}

func (r *ExcelRenderer) Render(ctx context.Context, report *attendance.Report) (*Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newExcelStyles(f)
	if err != nil {
		return nil, err
	}

	for i, group := range report.Months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheet := group.Label()
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return nil, fmt.Errorf("创建工作表 %s 失败: %w", sheet, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}

		if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
			return nil, err
		}
		lastCol, _ := excelize.ColumnNumberToName(1 + group.DaysIn())
		if err := f.SetColWidth(sheet, "B", lastCol, 7); err != nil {
			return nil, err
		}

		for j, block := range group.Blocks {
			if err := writeExcelBlock(f, sheet, 1+j*excelBlockRows, report.Config, block, styles); err != nil {
				return nil, fmt.Errorf("写入 %s / %s 失败: %w", sheet, block.Entry.Code, err)
			}
		}
	}
	// 删除默认 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	// 文档属性时间固定为周期起点，同一输入产出相同字节
	stamp := report.Config.PeriodStart.UTC().Format(time.RFC3339)
	if err := f.SetDocProps(&excelize.DocProperties{
		Creator:        "smart-attendance-calendar-generator",
		LastModifiedBy: "smart-attendance-calendar-generator",
		Title:          "Attendance Calendar " + report.Config.BatchID,
		Created:        stamp,
		Modified:       stamp,
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("写入 Excel 失败: %w", err)
	}
	return &Artifact{
		Format:      FormatXLSX,
		Filename:    BaseName(report.Config) + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

func newExcelStyles(f *excelize.File) (*excelStyles, error) {
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	border := []excelize.Border{
		{Type: "left", Color: "#000000", Style: 1},
		{Type: "right", Color: "#000000", Style: 1},
		{Type: "top", Color: "#000000", Style: 1},
		{Type: "bottom", Color: "#000000", Style: 1},
	}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}

	s := &excelStyles{}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.header, &excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: center}},
		{&s.dayHead, &excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: center, Border: border, Fill: fill("#D9D9D9")}},
		{&s.label, &excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: center, Border: border}},
		{&s.cell, &excelize.Style{Alignment: center, Border: border}},
		{&s.present, &excelize.Style{Alignment: center, Border: border, Fill: fill("#C6EFCE")}},
		{&s.absent, &excelize.Style{Alignment: center, Border: border, Fill: fill("#FFC7CE")}},
		{&s.holiday, &excelize.Style{Alignment: center, Border: border, Fill: fill("#FFEB9C")}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("创建单元格样式失败: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}

func writeExcelBlock(f *excelize.File, sheet string, top int, cfg attendance.ReportConfig, b attendance.MonthBlock, st *excelStyles) error {
	s := b.Summary
	header := [][]interface{}{
		{"Dept. Name", cfg.DepartmentName, "", "CompName", cfg.CompanyName, "", "Report Month", b.Label},
		{"Empcode", b.Entry.Code, "Name", b.Entry.Name, "Present", s.Present, "Absent", s.Absent},
		{"WO", s.WeeklyOff, "HL", s.Holiday, "LV", s.Leave, "Tot. Work+OT", s.TotalWorked()},
		{"", "", "", "", "", "", "Total OT", s.TotalOvertime()},
	}
	for i, row := range header {
		if err := setRow(f, sheet, top+i, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, cellName(1, top), cellName(8, top+3), st.header); err != nil {
		return err
	}

	n := len(b.Days)
	dayRow := make([]interface{}, 0, n+1)
	weekdayRow := make([]interface{}, 0, n+1)
	dayRow = append(dayRow, "")
	weekdayRow = append(weekdayRow, "")
	for _, d := range b.Days {
		dayRow = append(dayRow, d.Day)
		weekdayRow = append(weekdayRow, attendance.ShortWeekday(d.Weekday))
	}
	if err := setRow(f, sheet, top+4, dayRow); err != nil {
		return err
	}
	if err := setRow(f, sheet, top+5, weekdayRow); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellName(1, top+4), cellName(n+1, top+5), st.dayHead); err != nil {
		return err
	}

	for i, dr := range dayRows {
		row := top + 6 + i
		values := make([]interface{}, 0, n+1)
		values = append(values, dr.Label)
		for _, d := range b.Days {
			values = append(values, dr.Value(d))
		}
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), st.label); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(2, row), cellName(n+1, row), st.cell); err != nil {
			return err
		}
	}

	// 状态行着色
	statusRow := top + 6 + len(dayRows) - 1
	for _, d := range b.Days {
		style := 0
		switch d.Status {
		case attendance.StatusPresent:
			style = st.present
		case attendance.StatusAbsent:
			style = st.absent
		case attendance.StatusHoliday:
			style = st.holiday
		}
		if style == 0 {
			continue
		}
		c := cellName(d.Day+1, statusRow)
		if err := f.SetCellStyle(sheet, c, c, style); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	return f.SetSheetRow(sheet, cellName(1, row), &values)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
