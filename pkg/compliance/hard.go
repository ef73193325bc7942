// Package compliance 从完成的班表独立复核硬性与软性限制
//
// 查核完全基于指派列表与原始规范化输入，不依赖求解器内部状态，
// 既能发现数据异常，也能暴露模型编码与求解结果的潜在偏差
package compliance

import (
	"fmt"

	"github.com/ariscare/roster/pkg/model"
)

// 硬性限制违规类型
const (
	TypeOffDayAssigned  = "排休假員工"
	TypeDateUnavailable = "超出可上日期"
	TypeShiftUnavailable = "超出可上班別"
	TypeTooManySegments = "每日超過3段班"
	TypeMultiPostShift  = "單一班別多崗位"
)

// CheckHard 复核硬性限制
// 检查项：休假日被排班、超出可上日期、超出可上班别、
// 每日超过 3 段班、同一班别多于 1 个崗位
func CheckHard(assignments []*model.Assignment, snap *model.Snapshot) []model.Violation {
	var violations []model.Violation

	empByID := snap.EmployeeByID()
	offSet := snap.HardOffSet()

	byDay := make(map[[2]string]int)
	byShift := make(map[[3]string]int)
	for _, a := range assignments {
		if a.Shift == "OFF" {
			continue
		}
		byDay[[2]string{a.EmployeeID, a.Date}]++
		byShift[[3]string{a.EmployeeID, a.Date, a.Shift}]++
	}

	for _, a := range assignments {
		if a.Shift == "OFF" {
			continue
		}
		emp, ok := empByID[a.EmployeeID]
		if !ok {
			continue
		}

		if offSet[[2]string{a.Date, a.EmployeeID}] {
			violations = append(violations, model.Violation{
				Date:       a.Date,
				EmployeeID: a.EmployeeID,
				Type:       TypeOffDayAssigned,
				Detail:     fmt.Sprintf("員工 %s 在休假日 %s 被排班", a.EmployeeID, a.Date),
			})
		}

		if !dateAllowed(emp, snap.Dates, a.Date) {
			violations = append(violations, model.Violation{
				Date:       a.Date,
				EmployeeID: a.EmployeeID,
				Type:       TypeDateUnavailable,
				Detail:     fmt.Sprintf("員工 %s 在不可上日的 %s 被排班", a.EmployeeID, a.Date),
			})
		}

		if !shiftAllowed(emp, a.Shift) {
			violations = append(violations, model.Violation{
				Date:       a.Date,
				EmployeeID: a.EmployeeID,
				Type:       TypeShiftUnavailable,
				Detail:     fmt.Sprintf("員工 %s 被排入不可上的班別 %s", a.EmployeeID, a.Shift),
			})
		}
	}

	for key, count := range byDay {
		if count > 3 {
			violations = append(violations, model.Violation{
				Date:       key[1],
				EmployeeID: key[0],
				Type:       TypeTooManySegments,
				Detail:     fmt.Sprintf("員工 %s 在 %s 被排了 %d 個崗位", key[0], key[1], count),
			})
		}
	}

	for key, count := range byShift {
		if count > 1 {
			violations = append(violations, model.Violation{
				Date:       key[1],
				EmployeeID: key[0],
				Type:       TypeMultiPostShift,
				Detail:     fmt.Sprintf("員工 %s 在 %s 的 %s 班被排了 %d 個崗位", key[0], key[1], key[2], count),
			})
		}
	}

	return violations
}

// dateAllowed 可上日期为空时回落到整个排班周期
func dateAllowed(emp *model.Employee, period []string, date string) bool {
	allowed := emp.AvailableDates
	if len(allowed) == 0 {
		allowed = period
	}
	for _, d := range allowed {
		if d == date {
			return true
		}
	}
	return false
}

// shiftAllowed 可上班别为空时视为 A/B/C 全可上
func shiftAllowed(emp *model.Employee, shift model.Shift) bool {
	allowed := emp.AvailableShifts
	if len(allowed) == 0 {
		allowed = model.AllShifts
	}
	for _, s := range allowed {
		if s == shift {
			return true
		}
	}
	return false
}
