package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
)

// ── 名单导入错误 ──

const maxRosterRows = 5000

var (
	ErrRosterEmpty       = errors.New("名单文件无有效数据行（第一行为表头）")
	ErrRosterBadHeader   = errors.New("名单至少需要两列：第一列工号，第二列姓名")
	ErrRosterTooLarge    = fmt.Errorf("名单行数超过上限 %d 行", maxRosterRows)
	ErrRosterUnsupported = errors.New("不支持的名单文件格式（支持 .xlsx / .xls / .csv）")
	ErrRosterUnreadable  = errors.New("无法读取名单文件")
)

// Parse 解析上传的名单文件，按文件扩展名选择解析器
//
// 第一行视为表头：能识别出工号/姓名列时按列名取值，否则取第一、二列。
// 空行与缺少工号或姓名的行被跳过。
func Parse(r io.Reader, filename string) ([]attendance.RosterEntry, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, err
	}
	return entriesFromRows(rows)
}

func readRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRosterUnreadable, err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return readXLSX(data)
	case ".xls":
		return readXLS(data)
	case ".csv":
		return readCSV(data)
	default:
		return nil, ErrRosterUnsupported
	}
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRosterUnreadable, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrRosterEmpty
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表失败: %v", ErrRosterUnreadable, err)
	}
	return rows, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// 旧版 xls 解析器在损坏文件上可能 panic
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("%w: %v", ErrRosterUnreadable, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRosterUnreadable, err)
	}
	if wb == nil {
		return nil, fmt.Errorf("%w: 缺少 Workbook 流", ErrRosterUnreadable)
	}

	// 与 xlsx 一致只读第一个工作表，行数上限交给 entriesFromRows
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrRosterEmpty
	}
	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		rows = append(rows, xlsRow(sheet, i))
	}
	return rows, nil
}

// xlsScanCols 行记录缺失时 LastCol 为 0，至少扫描这么多列
const xlsScanCols = 32

// xlsRow 读取一行并去掉尾部空单元格；文件中不存在的行返回 nil
func xlsRow(sheet *xls.WorkSheet, i int) (cells []string) {
	// 不存在的行在 Row 内部空指针 panic
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := sheet.Row(i)
	n := row.LastCol()
	if n < xlsScanCols {
		n = xlsScanCols
	}
	cells = make([]string, n)
	last := -1
	for j := 0; j < n; j++ {
		cells[j] = row.Col(j)
		if cells[j] != "" {
			last = j
		}
	}
	return cells[:last+1]
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRosterUnreadable, err)
	}
	return rows, nil
}

// entriesFromRows 表头 + 数据行 → 名单
func entriesFromRows(rows [][]string) ([]attendance.RosterEntry, error) {
	if len(rows) == 0 {
		return nil, ErrRosterEmpty
	}
	header := rows[0]
	if countNonEmpty(header) < 2 && !anyRowHasTwoColumns(rows[1:]) {
		return nil, ErrRosterBadHeader
	}

	codeIdx, nameIdx := headerIndex(header)

	var entries []attendance.RosterEntry
	for _, row := range rows[1:] {
		code := cellValue(row, codeIdx)
		name := cellValue(row, nameIdx)
		if code == "" || name == "" {
			continue
		}
		entries = append(entries, attendance.RosterEntry{Code: code, Name: name})
		if len(entries) > maxRosterRows {
			return nil, ErrRosterTooLarge
		}
	}

	if len(entries) == 0 {
		return nil, ErrRosterEmpty
	}
	return entries, nil
}

// headerIndex 识别工号/姓名列；无法识别时退回第一、二列
func headerIndex(header []string) (codeIdx, nameIdx int) {
	codeIdx, nameIdx = -1, -1
	for i, h := range header {
		switch normalizeHeader(h) {
		case "empcode", "emp code", "employee code", "code", "student id", "studentid", "student_id", "roll no", "id":
			if codeIdx < 0 {
				codeIdx = i
			}
		case "name", "emp name", "employee name", "student name", "full name":
			if nameIdx < 0 {
				nameIdx = i
			}
		}
	}
	if codeIdx < 0 || nameIdx < 0 || codeIdx == nameIdx {
		return 0, 1
	}
	return codeIdx, nameIdx
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, ".")
	return strings.Join(strings.Fields(h), " ")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func countNonEmpty(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func anyRowHasTwoColumns(rows [][]string) bool {
	for _, r := range rows {
		if countNonEmpty(r) >= 2 {
			return true
		}
	}
	return false
}
