package model

import "time"

// DateLayout 规范化日期格式
const DateLayout = "2006/01/02"

// ParseDate 解析规范化日期
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// Weekday 返回规范化日期的英文星期名（如 "Monday"），解析失败返回空串
func Weekday(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}

// IsWeekend 判断规范化日期是否为周末
func IsWeekend(date string) bool {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ISOWeek 返回规范化日期的 ISO 周号，解析失败返回 0
func ISOWeek(date string) int {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0
	}
	_, week := t.ISOWeek()
	return week
}
