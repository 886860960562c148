package render

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
)

// ICSRenderer iCalendar 日历：出勤日为「上班—下班」事件，缺勤日为全天事件
type ICSRenderer struct {
	loc *time.Location
}

// NewICSRenderer 创建 ICSRenderer，打卡时间按 UTC 解释
func NewICSRenderer() *ICSRenderer { return &ICSRenderer{loc: time.UTC} }

// WithLocation 打卡时间所在时区
func (r *ICSRenderer) WithLocation(loc *time.Location) *ICSRenderer {
	if loc != nil {
		r.loc = loc
	}
	return r
}

func (r *ICSRenderer) Format() Format { return FormatICS }

func (r *ICSRenderer) Render(ctx context.Context, report *attendance.Report) (*Artifact, error) {
	cfg := report.Config

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//smart-attendance-calendar-generator//attendance//EN")
	cal.SetXWRCalName(fmt.Sprintf("Attendance %s - %s", cfg.BatchID, cfg.CompanyName))

	// DTSTAMP 固定为区间起点，保证同一输入输出一致
	stamp := cfg.PeriodStart

	for _, group := range report.Months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, block := range group.Blocks {
			for _, d := range block.Days {
				switch d.Status {
				case attendance.StatusPresent:
					evt := cal.AddEvent(eventUID(cfg, block.Entry, d))
					evt.SetDtStampTime(stamp)
					evt.SetStartAt(r.at(d.Date, d.ClockInMinute))
					evt.SetEndAt(r.at(d.Date, d.ClockOutMinute))
					evt.SetSummary(fmt.Sprintf("%s %s - Present", block.Entry.Code, block.Entry.Name))
					evt.SetDescription(fmt.Sprintf("IN %s OUT %s WORK %s OT %s", d.ClockIn(), d.ClockOut(), d.Worked(), d.Overtime()))
					evt.SetLocation(cfg.DepartmentName)
				case attendance.StatusAbsent:
					evt := cal.AddEvent(eventUID(cfg, block.Entry, d))
					evt.SetDtStampTime(stamp)
					evt.SetAllDayStartAt(d.Date)
					evt.SetAllDayEndAt(d.Date.AddDate(0, 0, 1))
					evt.SetSummary(fmt.Sprintf("%s %s - Absent", block.Entry.Code, block.Entry.Name))
				}
			}
		}
	}

	return &Artifact{
		Format:      FormatICS,
		Filename:    BaseName(cfg) + ".ics",
		ContentType: "text/calendar; charset=utf-8",
		Data:        []byte(cal.Serialize()),
	}, nil
}

func (r *ICSRenderer) at(day time.Time, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, r.loc)
}

// eventUID 基于名称的 UUID（v5），同一批次、人员、日期始终得到同一 UID
func eventUID(cfg attendance.ReportConfig, e attendance.RosterEntry, d attendance.DayRecord) string {
	name := fmt.Sprintf("%s/%s/%s", cfg.BatchID, e.Code, d.Date.Format("2006-01-02"))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@attendance"
}
