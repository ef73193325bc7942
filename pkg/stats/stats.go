// Package stats 从完成的班表计算员工维度统计指标
package stats

import (
	"sort"
	"strings"

	"github.com/ariscare/roster/pkg/model"
)

// EmployeeMetrics 单个员工的班表统计
type EmployeeMetrics struct {
	TotalShifts         int
	TotalHours          float64
	WorkDays            map[string]bool
	WeekendDays         map[string]bool
	ShiftCounts         map[model.Shift]int
	SpecialClinicCounts map[string]int
	ByDate              map[string][]*model.Assignment
}

func newEmployeeMetrics() *EmployeeMetrics {
	return &EmployeeMetrics{
		WorkDays:            make(map[string]bool),
		WeekendDays:         make(map[string]bool),
		ShiftCounts:         make(map[model.Shift]int),
		SpecialClinicCounts: make(map[string]int),
		ByDate:              make(map[string][]*model.Assignment),
	}
}

// SortedWorkDays 工作日升序列表
func (m *EmployeeMetrics) SortedWorkDays() []string {
	days := make([]string, 0, len(m.WorkDays))
	for d := range m.WorkDays {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// WorkStreaks 按日历日期切分的连续工作段长度
func (m *EmployeeMetrics) WorkStreaks(dates []string) []int {
	var streaks []int
	current := 0
	for _, d := range dates {
		if m.WorkDays[d] {
			current++
			continue
		}
		if current > 0 {
			streaks = append(streaks, current)
		}
		current = 0
	}
	if current > 0 {
		streaks = append(streaks, current)
	}
	return streaks
}

// WeeklyHours 按 ISO 周号汇总的工时
func (m *EmployeeMetrics) WeeklyHours(dates []string, hours model.ShiftHours) map[int]float64 {
	out := make(map[int]float64)
	for _, d := range dates {
		for _, a := range m.ByDate[d] {
			out[model.ISOWeek(d)] += hours.Hours(a.Shift)
		}
	}
	return out
}

// Compute 从指派列表计算全员统计
// 休假记录（班别 OFF）不计入任何指标
func Compute(assignments []*model.Assignment, snap *model.Snapshot) map[string]*EmployeeMetrics {
	demandByKey := snap.DemandByKey()
	metrics := make(map[string]*EmployeeMetrics)

	for _, a := range assignments {
		if a.Shift == "OFF" {
			continue
		}
		m := metrics[a.EmployeeID]
		if m == nil {
			m = newEmployeeMetrics()
			metrics[a.EmployeeID] = m
		}
		m.TotalShifts++
		m.TotalHours += snap.ShiftHours.Hours(a.Shift)
		m.WorkDays[a.Date] = true
		m.ByDate[a.Date] = append(m.ByDate[a.Date], a)
		if model.IsWeekend(a.Date) {
			m.WeekendDays[a.Date] = true
		}
		m.ShiftCounts[a.Shift]++

		if slot, ok := demandByKey[model.SlotKey{Date: a.Date, Shift: a.Shift, Post: a.Post}]; ok {
			if strings.Contains(slot.PostType, "特殊") {
				m.SpecialClinicCounts[slot.PostType]++
			}
		}
	}
	return metrics
}

// Mean 浮点均值，空切片返回 0
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MinMax 返回最小与最大值，空切片返回 (0, 0)
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
