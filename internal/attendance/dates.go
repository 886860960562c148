package attendance

import (
	"strings"
	"time"
)

// 接受的日期格式：HTML date 输入 (2006-01-02) 与旧表单的日-月-年 (02-01-2006)
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
	"02/01/2006",
}

// ParseDate 将外部传入的日期字符串规范化为 UTC 零点
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, invalid(field, "不能为空")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid(field, "日期格式无效 %q（应为 YYYY-MM-DD 或 DD-MM-YYYY）", value)
}

// truncateDay 去掉时分秒，统一到 UTC 日历日
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Months 返回区间覆盖的所有日历月（首尾不足整月也包含）
func Months(start, end time.Time) ([]YearMonth, error) {
	if start.IsZero() || end.IsZero() {
		return nil, invalid("period", "起止日期不能为空")
	}
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return nil, invalid("period", "结束日期 %s 早于开始日期 %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var months []YearMonth
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		months = append(months, YearMonth{Year: cur.Year(), Month: cur.Month()})
		cur = cur.AddDate(0, 1, 0)
	}
	return months, nil
}
