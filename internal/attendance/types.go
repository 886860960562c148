package attendance

import (
	"fmt"
	"time"
)

// Sentinel 非出勤字段的占位文本
const Sentinel = "---"

// ── 基础数据 ──

// RosterEntry 名单中的一个人（工号 + 姓名）
type RosterEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ReportConfig 单次生成的报表参数，生成期间不可变
type ReportConfig struct {
	BatchID        string
	DepartmentName string
	CompanyName    string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// Status 单日考勤状态
type Status int

const (
	StatusOutOfRange Status = iota
	StatusPresent
	StatusAbsent
	StatusHoliday
)

// Code 报表中使用的状态缩写
func (s Status) Code() string {
	switch s {
	case StatusPresent:
		return "P"
	case StatusAbsent:
		return "A"
	case StatusHoliday:
		return "HL"
	default:
		return Sentinel
	}
}

func (s Status) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusAbsent:
		return "absent"
	case StatusHoliday:
		return "holiday"
	default:
		return "out_of_range"
	}
}

// ShortWeekday 星期缩写（Mon..Sun）
func ShortWeekday(wd time.Weekday) string {
	return wd.String()[:3]
}

// DayRecord 某月某天的考勤记录
//
// 时间以「当天零点起的分钟数」保存，ClockIn/ClockOut 为 -1 表示无打卡。
type DayRecord struct {
	Day             int
	Date            time.Time
	Weekday         time.Weekday
	WeeklyOff       bool
	Status          Status
	ClockInMinute   int
	ClockOutMinute  int
	WorkedMinutes   int
	BreakMinutes    int
	OvertimeMinutes int
}

// Candidate 是否参与出勤/缺勤分配
func (d DayRecord) Candidate() bool {
	return d.Status == StatusPresent || d.Status == StatusAbsent
}

// ClockIn 上班打卡 "HH:MM"，无打卡时为占位符
func (d DayRecord) ClockIn() string { return clockText(d.ClockInMinute) }

// ClockOut 下班打卡 "HH:MM"，无打卡时为占位符
func (d DayRecord) ClockOut() string { return clockText(d.ClockOutMinute) }

// Worked 工作时长
func (d DayRecord) Worked() string { return d.durationText(d.WorkedMinutes) }

// Break 休息时长
func (d DayRecord) Break() string { return d.durationText(d.BreakMinutes) }

// Overtime 加班时长
func (d DayRecord) Overtime() string { return d.durationText(d.OvertimeMinutes) }

func (d DayRecord) durationText(minutes int) string {
	if !d.Candidate() {
		return Sentinel
	}
	return FormatHHMM(minutes)
}

func clockText(minute int) string {
	if minute < 0 {
		return Sentinel
	}
	return FormatHHMM(minute)
}

// FormatHHMM 将分钟数格式化为 "HH:MM"（小时不封顶）
func FormatHHMM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MonthSummary 单月汇总
type MonthSummary struct {
	Present         int
	Absent          int
	WeeklyOff       int
	Holiday         int
	Leave           int
	OutOfRange      int
	WorkedMinutes   int
	OvertimeMinutes int
}

// TotalWorked 汇总工作时长 "HH:MM"
func (s MonthSummary) TotalWorked() string { return FormatHHMM(s.WorkedMinutes) }

// TotalOvertime 汇总加班时长 "HH:MM"
func (s MonthSummary) TotalOvertime() string { return FormatHHMM(s.OvertimeMinutes) }

// MonthBlock 一个人在一个月的完整考勤表
type MonthBlock struct {
	Label       string
	Entry       RosterEntry
	Year        int
	Month       time.Month
	WindowStart time.Time
	WindowEnd   time.Time
	Days        []DayRecord
	Summary     MonthSummary
}

// YearMonth 日历月
type YearMonth struct {
	Year  int
	Month time.Month
}

// Label 形如 "September-2025"
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%s-%d", ym.Month, ym.Year)
}

// DaysIn 当月天数
func (ym YearMonth) DaysIn() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthGroup 同一个月的全部名单考勤块（按名单顺序）
type MonthGroup struct {
	YearMonth
	Blocks []MonthBlock
}

// Report 一次生成的全部结果
type Report struct {
	Config ReportConfig
	Roster []RosterEntry
	Months []MonthGroup
}

// Block 按 (工号, 月份) 查找考勤块
func (r *Report) Block(code string, year int, month time.Month) (*MonthBlock, bool) {
	for i := range r.Months {
		g := &r.Months[i]
		if g.Year != year || g.Month != month {
			continue
		}
		for j := range g.Blocks {
			if g.Blocks[j].Entry.Code == code {
				return &g.Blocks[j], true
			}
		}
	}
	return nil, false
}

// BlockCount 考勤块总数
func (r *Report) BlockCount() int {
	n := 0
	for _, g := range r.Months {
		n += len(g.Blocks)
	}
	return n
}
