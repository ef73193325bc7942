package compliance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/rules"
	"github.com/ariscare/roster/pkg/stats"
)

// 软性查核报告阈值默认值（param3 未给出时）
const (
	DefaultHoursThreshold     = 16
	DefaultWeekendThreshold   = 1
	DefaultClinicThreshold    = 2
	DefaultShiftTypeThreshold = 3
)

// CheckSoft 复核软性限制
// assignments 应为包含行政班的完整指派列表；
// byKey 提供每时段的缺口与超编数据
func CheckSoft(assignments []*model.Assignment, snap *model.Snapshot, rs *rules.RuleSet, byKey []model.SlotAudit) []model.Violation {
	var violations []model.Violation

	metrics := stats.Compute(assignments, snap)

	// 内建查核：人力缺口、人力過剩、早晚分隔班
	for _, item := range byKey {
		parts := strings.SplitN(item.Key, "|", 3)
		if len(parts) != 3 {
			continue
		}
		d, s, p := parts[0], parts[1], parts[2]
		if item.Gap > 0 {
			violations = append(violations, model.Violation{
				Date: d, EmployeeID: "N/A", Type: "人力缺口",
				Detail: fmt.Sprintf("崗位 %s 在 %s 的 %s 班缺少 %d 人", p, d, s, item.Gap),
			})
		}
		if item.Over > 0 {
			violations = append(violations, model.Violation{
				Date: d, EmployeeID: "N/A", Type: "人力過剩",
				Detail: fmt.Sprintf("崗位 %s 在 %s 的 %s 班多出 %d 人", p, d, s, item.Over),
			})
		}
	}

	for _, eid := range sortedIDs(metrics) {
		m := metrics[eid]
		for _, d := range m.SortedWorkDays() {
			shifts := shiftSet(m.ByDate[d])
			if shifts[model.ShiftA] && shifts[model.ShiftC] {
				violations = append(violations, model.Violation{
					Date: d, EmployeeID: eid, Type: "早晚分隔班",
					Detail: fmt.Sprintf("員工 %s 在 %s 被安排了 A 班和 C 班", eid, d),
				})
			}
		}
	}

	// 规则查核：逐条套用与求解阶段一致的规则词汇
	for _, r := range rs.Rules {
		violations = append(violations, checkRule(r, snap, metrics, assignments)...)
	}

	return violations
}

func checkRule(r *rules.Rule, snap *model.Snapshot, metrics map[string]*stats.EmployeeMetrics, assignments []*model.Assignment) []model.Violation {
	var out []model.Violation

	switch r.Kind {
	case rules.KindFairTotalHours:
		threshold := float64(thresholdOr(r, DefaultHoursThreshold))
		var all []float64
		for _, m := range metrics {
			all = append(all, m.TotalHours)
		}
		avg := stats.Mean(all)
		for _, eid := range sortedIDs(metrics) {
			h := metrics[eid].TotalHours
			if abs(h-avg) > threshold {
				out = append(out, model.Violation{
					Date: "整月", EmployeeID: eid, Type: "[公平性] 總工時差異",
					Detail: fmt.Sprintf("員工 %s 總工時為 %.1f 小時 (平均為 %.1f 小時)", eid, h, avg),
				})
			}
		}

	case rules.KindFairWeekendOffs:
		threshold := float64(thresholdOr(r, DefaultWeekendThreshold))
		var all []float64
		for _, m := range metrics {
			all = append(all, float64(len(m.WeekendDays)))
		}
		avg := stats.Mean(all)
		for _, eid := range sortedIDs(metrics) {
			n := len(metrics[eid].WeekendDays)
			if abs(float64(n)-avg) > threshold {
				out = append(out, model.Violation{
					Date: "整月", EmployeeID: eid, Type: "[公平性] 週末排班差異",
					Detail: fmt.Sprintf("員工 %s 週末上班 %d 天 (平均為 %.1f 天)", eid, n, avg),
				})
			}
		}

	case rules.KindFairSpecialClinics:
		clinic := r.Param1
		threshold := float64(thresholdOr(r, DefaultClinicThreshold))
		var all []float64
		for _, m := range metrics {
			all = append(all, float64(m.SpecialClinicCounts[clinic]))
		}
		avg := stats.Mean(all)
		for _, eid := range sortedIDs(metrics) {
			n := metrics[eid].SpecialClinicCounts[clinic]
			if abs(float64(n)-avg) > threshold {
				out = append(out, model.Violation{
					Date: "整月", EmployeeID: eid, Type: fmt.Sprintf("[公平性] %s 診次差異", clinic),
					Detail: fmt.Sprintf("員工 %s 上 %s %d 次 (平均為 %.1f 次)", eid, clinic, n, avg),
				})
			}
		}

	case rules.KindFairShiftTypes:
		threshold := float64(thresholdOr(r, DefaultShiftTypeThreshold))
		for _, s := range model.AllShifts {
			var all []float64
			for _, m := range metrics {
				all = append(all, float64(m.ShiftCounts[s]))
			}
			avg := stats.Mean(all)
			for _, eid := range sortedIDs(metrics) {
				n := metrics[eid].ShiftCounts[s]
				if abs(float64(n)-avg) > threshold {
					out = append(out, model.Violation{
						Date: "整月", EmployeeID: eid, Type: fmt.Sprintf("[公平性] %s班次差異", s),
						Detail: fmt.Sprintf("員工 %s 上 %s 班 %d 次 (平均為 %.1f 次)", eid, s, n, avg),
					})
				}
			}
		}

	case rules.KindSatisfyPreferredLeave:
		for _, l := range snap.LeaveRequests {
			if l.Kind != model.LeavePreferredOff {
				continue
			}
			if m, ok := metrics[l.EmployeeID]; ok && m.WorkDays[l.Date] {
				out = append(out, model.Violation{
					Date: l.Date, EmployeeID: l.EmployeeID, Type: "[福祉] 偏好休假未滿足",
					Detail: fmt.Sprintf("員工 %s 在偏好休假日 %s 仍被排班", l.EmployeeID, l.Date),
				})
			}
		}

	case rules.KindAvoidHighFatigue:
		out = append(out, checkHighFatigue(r, snap, metrics)...)

	case rules.KindSeniorCoverage:
		out = append(out, checkSeniorCoverage(r, snap, assignments)...)

	case rules.KindPenalizeOvertime:
		for _, e := range snap.Employees {
			if e.TargetHours <= 0 {
				continue
			}
			m, ok := metrics[e.ID]
			if !ok || m.TotalHours <= float64(e.TargetHours) {
				continue
			}
			out = append(out, model.Violation{
				Date: "整月", EmployeeID: e.ID, Type: "[成本] 員工加班",
				Detail: fmt.Sprintf("員工 %s 總工時 %.1f 小時，超過目標的 %d 小時", e.ID, m.TotalHours, e.TargetHours),
			})
		}

	case rules.KindPenalizeTripleShifts:
		for _, eid := range sortedIDs(metrics) {
			m := metrics[eid]
			for _, d := range m.SortedWorkDays() {
				if len(shiftSet(m.ByDate[d])) >= 3 {
					out = append(out, model.Violation{
						Date: d, EmployeeID: eid, Type: "連續三時段",
						Detail: fmt.Sprintf("員工 %s 在 %s 被安排了 A, B, C 三個班", eid, d),
					})
				}
			}
		}

	case rules.KindConsecutiveDaysMax:
		out = append(out, checkConsecutiveMax(r, snap, metrics)...)

	case rules.KindConsecutiveDaysMin:
		out = append(out, checkConsecutiveMin(r, snap, metrics)...)

	case rules.KindWeeklyHoursMax, rules.KindWeeklyHoursMin:
		out = append(out, checkWeeklyHours(r, snap, metrics)...)
	}

	return out
}

// checkHighFatigue 连续高疲劳班：在员工实际工作日序列上扫描窗口
func checkHighFatigue(r *rules.Rule, snap *model.Snapshot, metrics map[string]*stats.EmployeeMetrics) []model.Violation {
	var out []model.Violation
	demandByKey := snap.DemandByKey()
	limit := r.Limit

	for _, eid := range sortedIDs(metrics) {
		m := metrics[eid]
		workDays := m.SortedWorkDays()
		for i := 0; i < len(workDays)-limit; i++ {
			streak := true
			for j := 0; j <= limit; j++ {
				dayFatigue := 0
				for _, a := range m.ByDate[workDays[i+j]] {
					if slot, ok := demandByKey[model.SlotKey{Date: a.Date, Shift: a.Shift, Post: a.Post}]; ok {
						if slot.FatigueIndex > dayFatigue {
							dayFatigue = slot.FatigueIndex
						}
					}
				}
				if dayFatigue < r.Fatigue {
					streak = false
					break
				}
			}
			if streak {
				out = append(out, model.Violation{
					Date: workDays[i], EmployeeID: eid, Type: "[福祉] 連續高疲勞班",
					Detail: fmt.Sprintf("員工 %s 從 %s 開始連續 %d 天高疲勞班", eid, workDays[i], limit+1),
				})
			}
		}
	}
	return out
}

// checkSeniorCoverage 资深人员覆盖：逐 (日期, 班别) 清点在班资深人数
func checkSeniorCoverage(r *rules.Rule, snap *model.Snapshot, assignments []*model.Assignment) []model.Violation {
	var out []model.Violation
	required := r.Limit
	if required <= 0 {
		return nil
	}

	empByID := snap.EmployeeByID()
	seen := make(map[[2]string]bool)
	var shiftKeys [][2]string
	for _, slot := range snap.Demand {
		key := [2]string{slot.Key.Date, slot.Key.Shift}
		if !seen[key] {
			seen[key] = true
			shiftKeys = append(shiftKeys, key)
		}
	}
	sort.Slice(shiftKeys, func(i, j int) bool {
		if shiftKeys[i][0] != shiftKeys[j][0] {
			return shiftKeys[i][0] < shiftKeys[j][0]
		}
		return shiftKeys[i][1] < shiftKeys[j][1]
	})

	for _, key := range shiftKeys {
		d, s := key[0], key[1]
		count := 0
		for _, a := range assignments {
			if a.Date != d || a.Shift != s {
				continue
			}
			if e, ok := empByID[a.EmployeeID]; ok && containsExact(e.Skills, r.Param1) {
				count++
			}
		}
		if count < required {
			out = append(out, model.Violation{
				Date: d, EmployeeID: "N/A", Type: "[營運] 資深人員覆蓋不足",
				Detail: fmt.Sprintf("在 %s 的 %s 班，資深人員排班數 %d 少於要求的 %d 人", d, s, count, required),
			})
		}
	}
	return out
}

// checkConsecutiveMax 最大连续工作：在日历日期上扫描 limit+1 天窗口
func checkConsecutiveMax(r *rules.Rule, snap *model.Snapshot, metrics map[string]*stats.EmployeeMetrics) []model.Violation {
	var out []model.Violation
	limit := r.Limit
	for _, eid := range sortedIDs(metrics) {
		if !r.AppliesTo(eid) {
			continue
		}
		m := metrics[eid]
		for i := 0; i < len(snap.Dates)-limit; i++ {
			all := true
			for j := 0; j <= limit; j++ {
				if !m.WorkDays[snap.Dates[i+j]] {
					all = false
					break
				}
			}
			if all {
				out = append(out, model.Violation{
					Date: snap.Dates[i], EmployeeID: eid, Type: "[勞基] 最大連續工作超標",
					Detail: fmt.Sprintf("員工 %s 從 %s 開始連續工作超過 %d 天", eid, snap.Dates[i], limit),
				})
			}
		}
	}
	return out
}

// checkConsecutiveMin 最小连续工作：按实际工作段长度判定
func checkConsecutiveMin(r *rules.Rule, snap *model.Snapshot, metrics map[string]*stats.EmployeeMetrics) []model.Violation {
	var out []model.Violation
	limit := r.Limit
	for _, eid := range sortedIDs(metrics) {
		if !r.AppliesTo(eid) {
			continue
		}
		for _, streak := range metrics[eid].WorkStreaks(snap.Dates) {
			if streak > 0 && streak < limit {
				out = append(out, model.Violation{
					Date: "整月", EmployeeID: eid, Type: "[營運] 最小連續工作不足",
					Detail: fmt.Sprintf("員工 %s 出現了時長為 %d 天的工作段，少於要求的 %d 天", eid, streak, limit),
				})
			}
		}
	}
	return out
}

// checkWeeklyHours 每週工時上下限，按 ISO 周汇总
func checkWeeklyHours(r *rules.Rule, snap *model.Snapshot, metrics map[string]*stats.EmployeeMetrics) []model.Violation {
	var out []model.Violation
	for _, eid := range sortedIDs(metrics) {
		if !r.AppliesTo(eid) {
			continue
		}
		weekly := metrics[eid].WeeklyHours(snap.Dates, snap.ShiftHours)
		weeks := make([]int, 0, len(weekly))
		for w := range weekly {
			weeks = append(weeks, w)
		}
		sort.Ints(weeks)
		for _, w := range weeks {
			h := weekly[w]
			if r.Kind == rules.KindWeeklyHoursMax && h > r.Hours {
				out = append(out, model.Violation{
					Date: fmt.Sprintf("第 %d 週", w), EmployeeID: eid, Type: "[勞基] 每週最大工時超標",
					Detail: fmt.Sprintf("員工 %s 在第 %d 週工作了 %.1f 小時，超過 %s 小時", eid, w, h, r.Param2),
				})
			}
			if r.Kind == rules.KindWeeklyHoursMin && h < r.Hours {
				out = append(out, model.Violation{
					Date: fmt.Sprintf("第 %d 週", w), EmployeeID: eid, Type: "[營運] 每週最小工時不足",
					Detail: fmt.Sprintf("員工 %s 在第 %d 週工作了 %.1f 小時，少於 %s 小時", eid, w, h, r.Param2),
				})
			}
		}
	}
	return out
}

// thresholdOr param3 阈值，未给出或非正时取默认值
func thresholdOr(r *rules.Rule, def int) int {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return def
}

func sortedIDs(metrics map[string]*stats.EmployeeMetrics) []string {
	ids := make([]string, 0, len(metrics))
	for id := range metrics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func shiftSet(assignments []*model.Assignment) map[model.Shift]bool {
	set := make(map[model.Shift]bool)
	for _, a := range assignments {
		set[a.Shift] = true
	}
	return set
}

func containsExact(items []string, target string) bool {
	for _, s := range items {
		if s == target {
			return true
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
