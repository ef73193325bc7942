package scheduler

import (
	"sort"

	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/solver"
)

// BrandName 汇总文案品牌前缀
const BrandName = "艾立斯科技智慧排班系統"

// summaryText 按求解状态生成一行汇总文案
func summaryText(status solver.Status) string {
	switch status {
	case solver.StatusOptimal:
		return BrandName + ": 已找到最佳排班解"
	case solver.StatusFeasible:
		return BrandName + ": 已找到可行排班解 (因時間限制而停止)"
	default:
		return BrandName + ": 找不到可行的排班解 (請檢查硬性限制衝突)"
	}
}

// extract 从求解结果提取排班指派与审核记录
func (b *builder) extract(res *solver.Result) ([]*model.Assignment, *model.Audit) {
	totalDemand := 0
	for _, slot := range b.snap.Demand {
		totalDemand += slot.Demand
	}

	if !res.Status.HasSolution() {
		return nil, &model.Audit{
			ByKey: nil,
			Summary: model.AuditSummary{
				TotalDemand: totalDemand,
				Filled:      0,
				Gap:         totalDemand,
				SummaryText: summaryText(res.Status),
			},
		}
	}

	var assignments []*model.Assignment
	for ki, slot := range b.snap.Demand {
		for ei, e := range b.snap.Employees {
			v, ok := b.x[varKey{ei, ki}]
			if !ok || !res.BoolValue(v) {
				continue
			}
			assignments = append(assignments, &model.Assignment{
				Date:         slot.Key.Date,
				Shift:        slot.Key.Shift,
				Post:         slot.Key.Post,
				EmployeeID:   e.ID,
				EmployeeName: e.Name,
			})
		}
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		if assignments[i].Date != assignments[j].Date {
			return assignments[i].Date < assignments[j].Date
		}
		if assignments[i].Shift != assignments[j].Shift {
			return assignments[i].Shift < assignments[j].Shift
		}
		return assignments[i].EmployeeID < assignments[j].EmployeeID
	})

	byKey := make([]model.SlotAudit, 0, len(b.snap.Demand))
	totalGap := 0
	for ki, slot := range b.snap.Demand {
		assigned := 0
		for ei := range b.snap.Employees {
			if v, ok := b.x[varKey{ei, ki}]; ok && res.BoolValue(v) {
				assigned++
			}
		}
		gap := int(res.IntValue(b.under[ki]))
		totalGap += gap
		byKey = append(byKey, model.SlotAudit{
			Key:      slot.Key.String(),
			Demand:   slot.Demand,
			Assigned: assigned,
			Gap:      gap,
			Over:     int(res.IntValue(b.over[ki])),
		})
	}

	audit := &model.Audit{
		ByKey: byKey,
		Summary: model.AuditSummary{
			TotalDemand: totalDemand,
			Filled:      len(assignments),
			Gap:         totalGap,
			SummaryText: summaryText(res.Status),
		},
	}
	return assignments, audit
}

// CompleteAssignments 将求解结果补齐为完整班表
// 硬性休假覆盖当日全部指派；护理长固定行政班追加为行政崗位；
// 未被调度支援的机动护理长回落为行政班
func CompleteAssignments(assignments []*model.Assignment, snap *model.Snapshot) []*model.Assignment {
	nameByID := make(map[string]string, len(snap.Employees))
	for _, e := range snap.Employees {
		nameByID[e.ID] = e.Name
	}

	complete := make([]*model.Assignment, 0, len(assignments))
	for _, a := range assignments {
		cp := *a
		complete = append(complete, &cp)
	}

	// 硬性休假覆盖任何指派
	for _, l := range snap.LeaveRequests {
		if l.Kind != model.LeaveHardOff {
			continue
		}
		kept := complete[:0]
		for _, a := range complete {
			if a.EmployeeID == l.EmployeeID && a.Date == l.Date {
				continue
			}
			kept = append(kept, a)
		}
		complete = kept
		complete = append(complete, &model.Assignment{
			Date:         l.Date,
			Shift:        "OFF",
			Post:         "休假",
			EmployeeID:   l.EmployeeID,
			EmployeeName: displayName(nameByID, l.EmployeeID),
		})
	}

	// 护理长固定行政班
	for _, h := range snap.AdminAssignments {
		complete = append(complete, &model.Assignment{
			Date:         h.Date,
			Shift:        h.Shift,
			Post:         model.AdminPost,
			EmployeeID:   h.EmployeeID,
			EmployeeName: displayName(nameByID, h.EmployeeID),
		})
	}

	// 机动支援班未被调度时回落为行政班
	assignedOnDate := make(map[[2]string]bool, len(complete))
	for _, a := range complete {
		assignedOnDate[[2]string{a.EmployeeID, a.Date}] = true
	}
	for _, pa := range snap.PreAssignments {
		if !pa.SupportAllowed {
			continue
		}
		if assignedOnDate[[2]string{pa.EmployeeID, pa.Date}] {
			continue
		}
		complete = append(complete, &model.Assignment{
			Date:         pa.Date,
			Shift:        pa.Shift,
			Post:         model.AdminPost,
			EmployeeID:   pa.EmployeeID,
			EmployeeName: displayName(nameByID, pa.EmployeeID),
		})
		assignedOnDate[[2]string{pa.EmployeeID, pa.Date}] = true
	}

	return complete
}

func displayName(nameByID map[string]string, id string) string {
	if n, ok := nameByID[id]; ok && n != "" {
		return n
	}
	return id
}
