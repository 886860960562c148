package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zeroRand 总是返回 0：区间取下界、抽样取候选池前 n 个
type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig(start, end time.Time) ReportConfig {
	return ReportConfig{
		BatchID:        "B-01",
		DepartmentName: "Computer Science",
		CompanyName:    "Acme Institute",
		PeriodStart:    start,
		PeriodEnd:      end,
	}
}

func newTestSynth(t *testing.T, policy Policy, rnd Rand) *Synthesizer {
	t.Helper()
	s, err := NewSynthesizer(policy, rnd)
	require.NoError(t, err)
	return s
}

var asha = RosterEntry{Code: "E1", Name: "Asha"}

// ── Months ──

func TestMonths(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []YearMonth
	}{
		{"同月", date(2025, 9, 12), date(2025, 9, 20), []YearMonth{{2025, time.September}}},
		{"同一天", date(2025, 9, 14), date(2025, 9, 14), []YearMonth{{2025, time.September}}},
		{"跨三个月", date(2025, 9, 30), date(2025, 11, 1), []YearMonth{
			{2025, time.September}, {2025, time.October}, {2025, time.November},
		}},
		{"跨年", date(2024, 12, 31), date(2025, 1, 1), []YearMonth{
			{2024, time.December}, {2025, time.January},
		}},
		{"月末起始", date(2025, 1, 31), date(2025, 3, 1), []YearMonth{
			{2025, time.January}, {2025, time.February}, {2025, time.March},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Months(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonths_InvertedRange(t *testing.T) {
	_, err := Months(date(2025, 9, 20), date(2025, 9, 12))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "period", ve.Field)
}

func TestYearMonth_LabelAndDays(t *testing.T) {
	assert.Equal(t, "September-2025", YearMonth{2025, time.September}.Label())
	assert.Equal(t, 29, YearMonth{2024, time.February}.DaysIn())
	assert.Equal(t, 28, YearMonth{2025, time.February}.DaysIn())
	assert.Equal(t, 31, YearMonth{2025, time.December}.DaysIn())
}

// ── ParseDate ──

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2025-09-12", "12-09-2025", " 2025/09/12 ", "12/09/2025"} {
		got, err := ParseDate("start_date", in)
		require.NoError(t, err, in)
		assert.Equal(t, date(2025, 9, 12), got, in)
	}

	_, err := ParseDate("start_date", "YYYY-MM-DD")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseDate("end_date", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFormatHHMM(t *testing.T) {
	assert.Equal(t, "00:00", FormatHHMM(0))
	assert.Equal(t, "04:55", FormatHHMM(295))
	assert.Equal(t, "29:30", FormatHHMM(1770))
	assert.Equal(t, "00:00", FormatHHMM(-5))
}

// ── Month ──

func TestSynthesizer_Month_September2025(t *testing.T) {
	s := newTestSynth(t, DefaultPolicy(), NewSeededRand(42))
	cfg := testConfig(date(2025, 9, 12), date(2025, 9, 20))

	report, err := s.Generate(context.Background(), []RosterEntry{asha}, cfg)
	require.NoError(t, err)
	require.Len(t, report.Months, 1)
	require.Len(t, report.Months[0].Blocks, 1)

	block := report.Months[0].Blocks[0]
	assert.Equal(t, "September-2025", block.Label)
	assert.Equal(t, date(2025, 9, 12), block.WindowStart)
	assert.Equal(t, date(2025, 9, 20), block.WindowEnd)
	require.Len(t, block.Days, 30)

	// 2025-09-14 与 2025-09-21 为周日，窗口内候选日为 12,13,15..20
	candidates := 0
	for _, d := range block.Days {
		if d.Candidate() {
			candidates++
			assert.True(t, d.Day >= 12 && d.Day <= 20 && d.Day != 14, "day %d", d.Day)
		}
	}
	assert.Equal(t, 8, candidates)
	assert.True(t, block.Days[13].WeeklyOff)
	assert.Equal(t, StatusOutOfRange, block.Days[13].Status)
	assert.Equal(t, time.Sunday, block.Days[20].Weekday)

	sum := block.Summary
	assert.Equal(t, 8, sum.Present+sum.Absent)
	assert.GreaterOrEqual(t, sum.Absent, 2)
	assert.LessOrEqual(t, sum.Absent, 4)
	assert.Equal(t, 4, sum.WeeklyOff)
	assert.Equal(t, 18, sum.OutOfRange)
	assert.Equal(t, 0, sum.Holiday)
	assert.Equal(t, 0, sum.Leave)
}

func TestSynthesizer_Month_ExactOutputWithFixedRand(t *testing.T) {
	s := newTestSynth(t, DefaultPolicy(), zeroRand{})
	cfg := testConfig(date(2025, 9, 12), date(2025, 9, 20))

	block, err := s.Month(asha, cfg, 2025, time.September)
	require.NoError(t, err)

	// 抽样取候选池前两个：12、13 缺勤
	assert.Equal(t, StatusAbsent, block.Days[11].Status)
	assert.Equal(t, StatusAbsent, block.Days[12].Status)
	for day := 15; day <= 20; day++ {
		d := block.Days[day-1]
		assert.Equal(t, StatusPresent, d.Status, "day %d", day)
		assert.Equal(t, "09:05", d.ClockIn())
		assert.Equal(t, "14:00", d.ClockOut())
		assert.Equal(t, "04:55", d.Worked())
		assert.Equal(t, "00:00", d.Break())
		assert.Equal(t, "04:55", d.Overtime())
	}
	assert.Equal(t, 6, block.Summary.Present)
	assert.Equal(t, 2, block.Summary.Absent)
	assert.Equal(t, "29:30", block.Summary.TotalWorked())
	assert.Equal(t, "29:30", block.Summary.TotalOvertime())

	absent := block.Days[11]
	assert.Equal(t, Sentinel, absent.ClockIn())
	assert.Equal(t, Sentinel, absent.ClockOut())
	assert.Equal(t, "00:00", absent.Worked())
	assert.Equal(t, "00:00", absent.Overtime())
	assert.Equal(t, "A", absent.Status.Code())

	outside := block.Days[0]
	assert.Equal(t, Sentinel, outside.ClockIn())
	assert.Equal(t, Sentinel, outside.Worked())
	assert.Equal(t, Sentinel, outside.Status.Code())
}

func TestSynthesizer_Month_NoCandidates(t *testing.T) {
	s := newTestSynth(t, DefaultPolicy(), NewSeededRand(7))
	// 区间只包含一个周日
	cfg := testConfig(date(2025, 9, 14), date(2025, 9, 14))

	block, err := s.Month(asha, cfg, 2025, time.September)
	require.NoError(t, err)
	assert.Equal(t, 0, block.Summary.Present)
	assert.Equal(t, 0, block.Summary.Absent)
	assert.Equal(t, 4, block.Summary.WeeklyOff)
	assert.Equal(t, 26, block.Summary.OutOfRange)
	assert.Equal(t, "00:00", block.Summary.TotalWorked())
}

func TestSynthesizer_Month_OutsidePeriod(t *testing.T) {
	s := newTestSynth(t, DefaultPolicy(), NewSeededRand(7))
	cfg := testConfig(date(2025, 9, 1), date(2025, 9, 30))

	block, err := s.Month(asha, cfg, 2025, time.October)
	require.NoError(t, err)
	assert.True(t, block.WindowStart.IsZero())
	assert.Equal(t, 0, block.Summary.Present+block.Summary.Absent)
	assert.Len(t, block.Days, 31)
}

func TestSynthesizer_Month_Holiday(t *testing.T) {
	policy := DefaultPolicy()
	policy.Holidays = []time.Time{date(2025, 9, 15)}
	s := newTestSynth(t, policy, NewSeededRand(3))
	cfg := testConfig(date(2025, 9, 12), date(2025, 9, 20))

	block, err := s.Month(asha, cfg, 2025, time.September)
	require.NoError(t, err)
	assert.Equal(t, StatusHoliday, block.Days[14].Status)
	assert.Equal(t, "HL", block.Days[14].Status.Code())
	assert.Equal(t, Sentinel, block.Days[14].ClockIn())
	assert.Equal(t, 1, block.Summary.Holiday)
	assert.Equal(t, 7, block.Summary.Present+block.Summary.Absent)
}

func TestSynthesizer_Month_OvertimeBeyondStandard(t *testing.T) {
	policy := DefaultPolicy()
	mode, err := ParseOvertimeMode("beyond:300")
	require.NoError(t, err)
	policy.Overtime = mode
	s := newTestSynth(t, policy, NewSeededRand(11))

	block, err := s.Month(asha, testConfig(date(2025, 3, 1), date(2025, 3, 31)), 2025, time.March)
	require.NoError(t, err)
	for _, d := range block.Days {
		if d.Status != StatusPresent {
			continue
		}
		want := d.WorkedMinutes - 300
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, d.OvertimeMinutes, "day %d", d.Day)
	}
}

// ── 性质测试 ──

func TestSynthesizer_Properties(t *testing.T) {
	cfg := testConfig(date(2024, 1, 17), date(2025, 3, 9))
	roster := []RosterEntry{asha, {Code: "E2", Name: "Ravi"}, {Code: "E3", Name: "Meera"}}

	for seed := uint64(0); seed < 20; seed++ {
		s := newTestSynth(t, DefaultPolicy(), NewSeededRand(seed))
		report, err := s.Generate(context.Background(), roster, cfg)
		require.NoError(t, err)
		require.Len(t, report.Months, 15)

		for _, group := range report.Months {
			require.Len(t, group.Blocks, len(roster))
			for i, block := range group.Blocks {
				assert.Equal(t, roster[i], block.Entry)
				assert.Len(t, block.Days, group.DaysIn())

				eligible := 0
				for _, d := range block.Days {
					inWindow := !d.Date.Before(cfg.PeriodStart) && !d.Date.After(cfg.PeriodEnd)
					if inWindow && d.Weekday != time.Sunday {
						eligible++
					}
					switch d.Status {
					case StatusAbsent:
						assert.Equal(t, Sentinel, d.ClockIn())
						assert.Equal(t, Sentinel, d.ClockOut())
						assert.Zero(t, d.WorkedMinutes)
						assert.Zero(t, d.OvertimeMinutes)
					case StatusPresent:
						assert.NotEqual(t, Sentinel, d.ClockIn())
						assert.NotEqual(t, Sentinel, d.ClockOut())
						assert.Greater(t, d.WorkedMinutes, 0)
						assert.Equal(t, d.WorkedMinutes, d.OvertimeMinutes)
					default:
						assert.False(t, inWindow && d.Weekday != time.Sunday)
					}
				}

				sum := block.Summary
				assert.Equal(t, eligible, sum.Present+sum.Absent)
				assert.Equal(t, group.DaysIn(), sum.OutOfRange+sum.WeeklyOff+sum.Holiday+sum.Present+sum.Absent)
				if eligible >= 2 {
					assert.GreaterOrEqual(t, sum.Absent, 2)
				}
				assert.LessOrEqual(t, sum.Absent, 4)
			}
		}
	}
}

func TestSynthesizer_Deterministic(t *testing.T) {
	cfg := testConfig(date(2025, 1, 10), date(2025, 6, 5))
	roster := []RosterEntry{asha, {Code: "E2", Name: "Ravi"}}

	run := func() *Report {
		s := newTestSynth(t, DefaultPolicy(), NewSeededRand(2025))
		r, err := s.Generate(context.Background(), roster, cfg)
		require.NoError(t, err)
		return r
	}
	assert.Equal(t, run(), run())
}

func TestReport_Block(t *testing.T) {
	s := newTestSynth(t, DefaultPolicy(), NewSeededRand(1))
	roster := []RosterEntry{asha, {Code: "E2", Name: "Ravi"}}
	report, err := s.Generate(context.Background(), roster, testConfig(date(2025, 8, 20), date(2025, 9, 5)))
	require.NoError(t, err)
	assert.Equal(t, 4, report.BlockCount())

	b, ok := report.Block("E2", 2025, time.September)
	require.True(t, ok)
	assert.Equal(t, "Ravi", b.Entry.Name)

	_, ok = report.Block("E9", 2025, time.September)
	assert.False(t, ok)
}

// ── 校验 ──

func TestGenerate_Validation(t *testing.T) {
	s := newTestSynth(t, DefaultPolicy(), NewSeededRand(1))
	good := testConfig(date(2025, 9, 1), date(2025, 9, 30))

	tests := []struct {
		name   string
		roster []RosterEntry
		cfg    ReportConfig
		field  string
	}{
		{"空名单", nil, good, "roster"},
		{"缺少工号", []RosterEntry{{Name: "Asha"}}, good, "roster[1]"},
		{"缺少姓名", []RosterEntry{asha, {Code: "E2"}}, good, "roster[2]"},
		{"工号重复", []RosterEntry{asha, {Code: "E1", Name: "Dup"}}, good, "roster"},
		{"缺少批次", []RosterEntry{asha}, func() ReportConfig { c := good; c.BatchID = " "; return c }(), "batch_id"},
		{"缺少部门", []RosterEntry{asha}, func() ReportConfig { c := good; c.DepartmentName = ""; return c }(), "department_name"},
		{"缺少公司", []RosterEntry{asha}, func() ReportConfig { c := good; c.CompanyName = ""; return c }(), "company_name"},
		{"日期倒置", []RosterEntry{asha}, testConfig(date(2025, 9, 30), date(2025, 9, 1)), "period"},
		{"日期为空", []RosterEntry{asha}, testConfig(time.Time{}, date(2025, 9, 1)), "period"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Generate(context.Background(), tt.roster, tt.cfg)
			require.ErrorIs(t, err, ErrInvalidInput)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestGenerate_ContextCanceled(t *testing.T) {
	s := newTestSynth(t, DefaultPolicy(), NewSeededRand(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Generate(ctx, []RosterEntry{asha}, testConfig(date(2025, 1, 1), date(2025, 2, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSynthesizer_InvalidPolicy(t *testing.T) {
	bad := DefaultPolicy()
	bad.AbsentMin, bad.AbsentMax = 5, 3
	_, err := NewSynthesizer(bad, NewSeededRand(1))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	bad = DefaultPolicy()
	bad.ClockOutHour = 9
	_, err = NewSynthesizer(bad, NewSeededRand(1))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = NewSynthesizer(DefaultPolicy(), nil)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestParseOvertimeModeAndWeekday(t *testing.T) {
	f, err := ParseOvertimeMode("")
	require.NoError(t, err)
	assert.Equal(t, 300, f(300))

	f, err = ParseOvertimeMode("none")
	require.NoError(t, err)
	assert.Equal(t, 0, f(300))

	_, err = ParseOvertimeMode("beyond:x")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	_, err = ParseOvertimeMode("double")
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	wd, err := ParseWeekday("Sun")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, wd)
	wd, err = ParseWeekday("friday")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, wd)
	_, err = ParseWeekday("someday")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
