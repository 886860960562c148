package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OvertimeFunc 由当天工作分钟数计算加班分钟数
type OvertimeFunc func(workedMinutes int) int

// OvertimeAll 全部工作时长计为加班（与原报表口径一致）
func OvertimeAll(worked int) int { return worked }

// OvertimeNone 不计加班
func OvertimeNone(int) int { return 0 }

// OvertimeBeyond 超出标准工时的部分计为加班
func OvertimeBeyond(standardMinutes int) OvertimeFunc {
	return func(worked int) int {
		if worked <= standardMinutes {
			return 0
		}
		return worked - standardMinutes
	}
}

// ParseOvertimeMode 解析加班口径配置：all | none | beyond:<分钟>
func ParseOvertimeMode(mode string) (OvertimeFunc, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch {
	case mode == "" || mode == "all":
		return OvertimeAll, nil
	case mode == "none":
		return OvertimeNone, nil
	case strings.HasPrefix(mode, "beyond:"):
		n, err := strconv.Atoi(strings.TrimPrefix(mode, "beyond:"))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: 加班口径 %q 的分钟数无效", ErrInvalidPolicy, mode)
		}
		return OvertimeBeyond(n), nil
	default:
		return nil, fmt.Errorf("%w: 未知加班口径 %q", ErrInvalidPolicy, mode)
	}
}

// Policy 考勤合成策略
type Policy struct {
	ClockInHour    int
	ClockInMinMin  int
	ClockInMinMax  int
	ClockOutHour   int
	ClockOutMinMin int
	ClockOutMinMax int
	AbsentMin      int
	AbsentMax      int
	BreakMinutes   int
	WeeklyOff      time.Weekday
	Holidays       []time.Time
	Overtime       OvertimeFunc
}

// DefaultPolicy 默认策略：09:05-09:40 上班，14:00-14:45 下班，每月缺勤 2~4 天，周日休息
func DefaultPolicy() Policy {
	return Policy{
		ClockInHour:    9,
		ClockInMinMin:  5,
		ClockInMinMax:  40,
		ClockOutHour:   14,
		ClockOutMinMin: 0,
		ClockOutMinMax: 45,
		AbsentMin:      2,
		AbsentMax:      4,
		WeeklyOff:      time.Sunday,
		Overtime:       OvertimeAll,
	}
}

// Validate 校验策略；保证最早下班时间不早于最晚上班时间
func (p Policy) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidPolicy}, args...)...)
	}
	if p.ClockInHour < 0 || p.ClockInHour > 23 || p.ClockOutHour < 0 || p.ClockOutHour > 23 {
		return bad("打卡小时必须在 0-23 之间")
	}
	if p.ClockInMinMin < 0 || p.ClockInMinMax > 59 || p.ClockInMinMin > p.ClockInMinMax {
		return bad("上班分钟范围 [%d,%d] 无效", p.ClockInMinMin, p.ClockInMinMax)
	}
	if p.ClockOutMinMin < 0 || p.ClockOutMinMax > 59 || p.ClockOutMinMin > p.ClockOutMinMax {
		return bad("下班分钟范围 [%d,%d] 无效", p.ClockOutMinMin, p.ClockOutMinMax)
	}
	if p.ClockOutHour*60+p.ClockOutMinMin <= p.ClockInHour*60+p.ClockInMinMax {
		return bad("最早下班时间必须晚于最晚上班时间")
	}
	if p.AbsentMin < 0 || p.AbsentMin > p.AbsentMax {
		return bad("缺勤天数范围 [%d,%d] 无效", p.AbsentMin, p.AbsentMax)
	}
	if p.BreakMinutes < 0 {
		return bad("休息时长不能为负数")
	}
	if p.WeeklyOff < time.Sunday || p.WeeklyOff > time.Saturday {
		return bad("每周休息日无效")
	}
	return nil
}

func (p Policy) isHoliday(date time.Time) bool {
	for _, h := range p.Holidays {
		if h.Year() == date.Year() && h.Month() == date.Month() && h.Day() == date.Day() {
			return true
		}
	}
	return false
}

// ParseWeekday 解析星期名（sunday / sun，大小写不敏感）
func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if name == full || name == full[:3] {
			return wd, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: 未知星期 %q", ErrInvalidPolicy, name)
}
