package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Rand 可注入的随机源；math/rand/v2 的 *rand.Rand 直接满足
type Rand interface {
	// IntN 返回 [0, n) 内的均匀随机整数，n > 0
	IntN(n int) int
}

// Synthesizer 考勤合成器
//
// 非并发安全：随机源按请求创建，一次生成独占一个 Synthesizer。
type Synthesizer struct {
	policy Policy
	rnd    Rand
}

// NewSynthesizer 创建合成器；policy 无效时返回 ErrInvalidPolicy
func NewSynthesizer(policy Policy, rnd Rand) (*Synthesizer, error) {
	if rnd == nil {
		return nil, fmt.Errorf("%w: 随机源不能为空", ErrInvalidPolicy)
	}
	if policy.Overtime == nil {
		policy.Overtime = OvertimeAll
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Synthesizer{policy: policy, rnd: rnd}, nil
}

// Policy 返回当前策略副本
func (s *Synthesizer) Policy() Policy { return s.policy }

// between 返回 [lo, hi] 内的均匀随机整数
func (s *Synthesizer) between(lo, hi int) int {
	return lo + s.rnd.IntN(hi-lo+1)
}

// ════════════════════════════════════════════════════════════
// Month — 单人单月考勤合成
// ════════════════════════════════════════════════════════════
//
//  1. 有效窗口 = 当月 ∩ [PeriodStart, PeriodEnd]
//  2. 窗口内且非每周休息日（且非节假日）的日期为候选日
//  3. 从候选日中无放回抽取 [AbsentMin, AbsentMax] 天记为缺勤（不足时取全部）
//  4. 其余候选日合成打卡时间，工作时长 = 下班 - 上班
//  5. 汇总

func (s *Synthesizer) Month(entry RosterEntry, cfg ReportConfig, year int, month time.Month) (MonthBlock, error) {
	if err := validateEntry(0, entry); err != nil {
		return MonthBlock{}, err
	}
	if err := validatePeriod(cfg); err != nil {
		return MonthBlock{}, err
	}

	ym := YearMonth{Year: year, Month: month}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month, ym.DaysIn(), 0, 0, 0, 0, time.UTC)

	windowStart := maxTime(first, truncateDay(cfg.PeriodStart))
	windowEnd := minTime(last, truncateDay(cfg.PeriodEnd))

	block := MonthBlock{
		Label: ym.Label(),
		Entry: entry,
		Year:  year,
		Month: month,
		Days:  make([]DayRecord, 0, ym.DaysIn()),
	}
	if !windowEnd.Before(windowStart) {
		block.WindowStart, block.WindowEnd = windowStart, windowEnd
	}

	var candidates []int
	for d := 1; d <= ym.DaysIn(); d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		rec := DayRecord{
			Day:            d,
			Date:           date,
			Weekday:        date.Weekday(),
			WeeklyOff:      date.Weekday() == s.policy.WeeklyOff,
			Status:         StatusOutOfRange,
			ClockInMinute:  -1,
			ClockOutMinute: -1,
		}
		inWindow := !date.Before(windowStart) && !date.After(windowEnd)
		switch {
		case !inWindow || rec.WeeklyOff:
		case s.policy.isHoliday(date):
			rec.Status = StatusHoliday
		default:
			candidates = append(candidates, d-1)
		}
		block.Days = append(block.Days, rec)
	}

	absent := s.pickAbsences(candidates)
	for _, idx := range candidates {
		rec := &block.Days[idx]
		if absent[idx] {
			rec.Status = StatusAbsent
			continue
		}
		s.fillPresent(rec)
	}

	block.Summary = summarize(block.Days)
	return block, nil
}

// pickAbsences 无放回抽样；候选池不足时截断到候选数，空池返回空集
func (s *Synthesizer) pickAbsences(candidates []int) map[int]bool {
	picked := make(map[int]bool)
	n := s.between(s.policy.AbsentMin, s.policy.AbsentMax)
	if n > len(candidates) {
		n = len(candidates)
	}
	if n == 0 {
		return picked
	}

	pool := append([]int(nil), candidates...)
	for i := 0; i < n; i++ {
		j := i + s.rnd.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		picked[pool[i]] = true
	}
	return picked
}

func (s *Synthesizer) fillPresent(rec *DayRecord) {
	p := s.policy
	in := p.ClockInHour*60 + s.between(p.ClockInMinMin, p.ClockInMinMax)
	out := p.ClockOutHour*60 + s.between(p.ClockOutMinMin, p.ClockOutMinMax)
	worked := out - in

	rec.Status = StatusPresent
	rec.ClockInMinute = in
	rec.ClockOutMinute = out
	rec.WorkedMinutes = worked
	rec.BreakMinutes = p.BreakMinutes
	rec.OvertimeMinutes = p.Overtime(worked)
}

func summarize(days []DayRecord) MonthSummary {
	var sum MonthSummary
	for _, d := range days {
		if d.WeeklyOff {
			sum.WeeklyOff++
		}
		switch d.Status {
		case StatusPresent:
			sum.Present++
			sum.WorkedMinutes += d.WorkedMinutes
			sum.OvertimeMinutes += d.OvertimeMinutes
		case StatusAbsent:
			sum.Absent++
		case StatusHoliday:
			sum.Holiday++
		default:
			if !d.WeeklyOff {
				sum.OutOfRange++
			}
		}
	}
	return sum
}

// ════════════════════════════════════════════════════════════
// Generate — 多月驱动
// ════════════════════════════════════════════════════════════

// Generate 按月份顺序、名单顺序生成全部考勤块
func (s *Synthesizer) Generate(ctx context.Context, roster []RosterEntry, cfg ReportConfig) (*Report, error) {
	if err := ValidateRequest(roster, cfg); err != nil {
		return nil, err
	}
	months, err := Months(cfg.PeriodStart, cfg.PeriodEnd)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Config: cfg,
		Roster: append([]RosterEntry(nil), roster...),
		Months: make([]MonthGroup, 0, len(months)),
	}
	for _, ym := range months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		group := MonthGroup{YearMonth: ym, Blocks: make([]MonthBlock, 0, len(roster))}
		for _, entry := range roster {
			block, err := s.Month(entry, cfg, ym.Year, ym.Month)
			if err != nil {
				return nil, err
			}
			group.Blocks = append(group.Blocks, block)
		}
		report.Months = append(report.Months, group)
	}
	return report, nil
}

// ValidateRequest 校验名单与报表参数
func ValidateRequest(roster []RosterEntry, cfg ReportConfig) error {
	if strings.TrimSpace(cfg.BatchID) == "" {
		return invalid("batch_id", "不能为空")
	}
	if strings.TrimSpace(cfg.DepartmentName) == "" {
		return invalid("department_name", "不能为空")
	}
	if strings.TrimSpace(cfg.CompanyName) == "" {
		return invalid("company_name", "不能为空")
	}
	if err := validatePeriod(cfg); err != nil {
		return err
	}
	if len(roster) == 0 {
		return invalid("roster", "名单为空")
	}

	seen := make(map[string]int, len(roster))
	for i, entry := range roster {
		if err := validateEntry(i+1, entry); err != nil {
			return err
		}
		if prev, ok := seen[entry.Code]; ok {
			return invalid("roster", "第 %d 行工号 %q 与第 %d 行重复", i+1, entry.Code, prev)
		}
		seen[entry.Code] = i + 1
	}
	return nil
}

func validatePeriod(cfg ReportConfig) error {
	_, err := Months(cfg.PeriodStart, cfg.PeriodEnd)
	return err
}

func validateEntry(row int, entry RosterEntry) error {
	field := "roster"
	if row > 0 {
		field = fmt.Sprintf("roster[%d]", row)
	}
	if strings.TrimSpace(entry.Code) == "" {
		return invalid(field, "工号不能为空")
	}
	if strings.TrimSpace(entry.Name) == "" {
		return invalid(field, "姓名不能为空")
	}
	return nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
