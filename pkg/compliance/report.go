package compliance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/rules"
	"github.com/ariscare/roster/pkg/stats"
)

// violationTypeByKind 规则类型到查核违规类型的映射
// 诊次差异与班次差异带动态前缀，在计数时特殊处理
var violationTypeByKind = map[rules.Kind]string{
	rules.KindFairTotalHours:       "[公平性] 總工時差異",
	rules.KindFairWeekendOffs:      "[公平性] 週末排班差異",
	rules.KindFairSpecialClinics:   "[公平性] 特殊診次差異",
	rules.KindFairShiftTypes:       "[公平性] 班次差異",
	rules.KindSatisfyPreferredLeave: "[福祉] 偏好休假未滿足",
	rules.KindAvoidHighFatigue:     "[福祉] 連續高疲勞班",
	rules.KindSeniorCoverage:       "[營運] 資深人員覆蓋不足",
	rules.KindPenalizeOvertime:     "[成本] 員工加班",
	rules.KindPenalizeTripleShifts: "連續三時段",
	rules.KindConsecutiveDaysMax:   "[勞基] 最大連續工作超標",
	rules.KindConsecutiveDaysMin:   "[營運] 最小連續工作不足",
	rules.KindWeeklyHoursMax:       "[勞基] 每週最大工時超標",
	rules.KindWeeklyHoursMin:       "[營運] 每週最小工時不足",
}

// GenerateReport 生成软性限制符合性分析文字报告
// assignments 应为含行政班的完整指派列表
func GenerateReport(violations []model.Violation, assignments []*model.Assignment, snap *model.Snapshot, rs *rules.RuleSet, audit *model.Audit) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	byType := make(map[string][]model.Violation)
	for _, v := range violations {
		byType[v.Type] = append(byType[v.Type], v)
	}
	metrics := stats.Compute(assignments, snap)
	empByID := snap.EmployeeByID()

	line("軟性限制符合性分析報告")
	line(strings.Repeat("=", 30))

	totalGap, totalOver, totalDemand := 0, 0, 0
	for _, item := range audit.ByKey {
		totalGap += item.Gap
		totalOver += item.Over
		totalDemand += item.Demand
	}
	splitShifts := len(byType["早晚分隔班"])
	seniorGaps := len(byType["[營運] 資深人員覆蓋不足"])

	switch {
	case totalGap > 0:
		line("總體評估: 品質不佳，存在人力缺口，需優先處理。")
	case splitShifts > 5 || seniorGaps > 0:
		line("總體評估: 品質中等，為滿足人力需求在營運品質上做出較多妥協。")
	default:
		line("總體評估: 品質良好，人力與核心營運目標大致滿足。")
	}

	line("\n--- 核心人力與品質指標 ---")
	fulfillment := 1.0
	if totalDemand > 0 {
		fulfillment = float64(totalDemand-totalGap) / float64(totalDemand)
	}
	line("1. 人力滿足率: %.2f%% (缺口: %d 人次, 過剩: %d 人次)", fulfillment*100, totalGap, totalOver)
	line("2. 資深人員覆蓋: %d 個班次未達標", seniorGaps)

	line("\n--- 公平性指標分析 ---")
	if len(metrics) > 0 {
		var allHours, allWeekends []float64
		for _, m := range metrics {
			allHours = append(allHours, m.TotalHours)
			allWeekends = append(allWeekends, float64(len(m.WeekendDays)))
		}
		loH, hiH := stats.MinMax(allHours)
		line("1. 總工時: 最低 %.1fh, 最高 %.1fh, 平均 %.1fh", loH, hiH, stats.Mean(allHours))
		loW, hiW := stats.MinMax(allWeekends)
		line("2. 週末上班天數: 最低 %.0f 天, 最高 %.0f 天, 平均 %.1f 天", loW, hiW, stats.Mean(allWeekends))
	}

	line("\n--- 員工福祉指標 ---")
	line("1. 早晚分隔班 (A+C): %d 人次", splitShifts)
	line("2. 連續三時段 (A+B+C): %d 人次", len(byType["連續三時段"]))
	line("3. 連續高疲勞班: %d 次", len(byType["[福祉] 連續高疲勞班"]))
	line("4. 偏好休假未滿足: %d 人次", len(byType["[福祉] 偏好休假未滿足"]))
	line("5. 員工加班: %d 人次", len(byType["[成本] 員工加班"]))

	writeHeadNurseSection(&b, assignments, snap, rs, metrics)

	line("\n" + strings.Repeat("=", 30))
	line("\n--- 軟性限制逐項分析 ---")
	if len(rs.Rules) == 0 {
		line("- 未啟用任何軟性限制規則。")
	}
	for _, r := range rs.Rules {
		line("- %s: %s", r.Kind.ChineseName(), ruleAnalysis(r, assignments, snap, metrics, byType))
	}

	line("\n" + strings.Repeat("=", 30))
	line("\n--- 員工總工時列表 ---")
	for _, eid := range sortedIDs(metrics) {
		name := eid
		if e, ok := empByID[eid]; ok && e.Name != "" {
			name = e.Name
		}
		line("- %s (%s): %.1f 小時", name, eid, metrics[eid].TotalHours)
	}

	line("\n" + strings.Repeat("=", 30))
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		line("\n--- %s 詳細清單 (%d 項) ---", t, len(byType[t]))
		for _, v := range byType[t] {
			line("- %s (日期: %s, 員工: %s)", v.Detail, v.Date, v.EmployeeID)
		}
	}

	return b.String()
}

// writeHeadNurseSection 护理长排班分析
// 总班数以预排班与行政班为准，支援班为非行政崗位指派
func writeHeadNurseSection(b *strings.Builder, assignments []*model.Assignment, snap *model.Snapshot, rs *rules.RuleSet, metrics map[string]*stats.EmployeeMetrics) {
	var headNurses []*model.Employee
	for _, e := range snap.Employees {
		if e.IsHeadNurse() {
			headNurses = append(headNurses, e)
		}
	}
	if len(headNurses) == 0 {
		return
	}
	sort.Slice(headNurses, func(i, j int) bool { return headNurses[i].ID < headNurses[j].ID })

	line := func(format string, args ...interface{}) {
		fmt.Fprintf(b, format+"\n", args...)
	}
	line("\n--- 護理長排班分析 ---")

	ratioRule := rs.First(rules.KindNursingHeadSupportRatio)

	for _, hn := range headNurses {
		name := hn.Name
		if name == "" {
			name = hn.ID
		}

		preCount, adminCount, flexCount := 0, 0, 0
		for _, pa := range snap.PreAssignments {
			if pa.EmployeeID == hn.ID {
				preCount++
				if pa.SupportAllowed {
					flexCount++
				}
			}
		}
		for _, aa := range snap.AdminAssignments {
			if aa.EmployeeID == hn.ID {
				adminCount++
			}
		}

		m := metrics[hn.ID]
		if (m == nil || m.TotalShifts == 0) && preCount+adminCount == 0 {
			line("- %s (%s): 本週期無排班", name, hn.ID)
			continue
		}

		totalShifts, supportShifts := 0, 0
		if m != nil && m.TotalShifts > 0 {
			totalShifts = preCount + adminCount
			for _, a := range assignments {
				if a.EmployeeID == hn.ID && a.Post != model.AdminPost {
					supportShifts++
				}
			}
		}
		actualRatio := 0.0
		if totalShifts > 0 {
			actualRatio = float64(supportShifts) / float64(totalShifts)
		}

		line("- %s (%s):", name, hn.ID)
		line("  - 總班數: %d 班 (支援 %d 班, 行政 %d 班)", totalShifts, supportShifts, totalShifts-supportShifts)
		line("  - 實際支援佔比: %.1f%%", actualRatio*100)
		if ratioRule != nil && ratioRule.AppliesTo(hn.ID) {
			line("  - 目標支援佔比: %.1f%% (來自軟性限制，參數值為 %s)", ratioRule.Ratio*100, ratioRule.Param2)
		}
		line("  - 預排固定行政班: %d 次 (護理長人力=N/空白)", adminCount)
		line("  - 預排機動支援班: %d 次 (護理長人力=Y)", flexCount)
	}
}

// ruleAnalysis 单条规则的逐项分析文字
func ruleAnalysis(r *rules.Rule, assignments []*model.Assignment, snap *model.Snapshot, metrics map[string]*stats.EmployeeMetrics, byType map[string][]model.Violation) string {
	if vt, ok := violationTypeByKind[r.Kind]; ok {
		count := 0
		switch r.Kind {
		case rules.KindFairSpecialClinics:
			count = len(byType[fmt.Sprintf("[公平性] %s 診次差異", r.Param1)])
		case rules.KindFairShiftTypes:
			for _, s := range model.AllShifts {
				count += len(byType[fmt.Sprintf("[公平性] %s班次差異", s)])
			}
		default:
			count = len(byType[vt])
		}
		if count > 0 {
			return fmt.Sprintf("%d 項違規", count)
		}
		return "完全符合"
	}

	switch r.Kind {
	case rules.KindPenalizeDayOfWeek:
		count := 0
		if r.Param1 != rules.ScopeAll {
			for _, a := range assignments {
				if a.Shift != "OFF" && strings.EqualFold(model.Weekday(a.Date), r.Param1) {
					count++
				}
			}
		}
		return fmt.Sprintf("觸發 %d 次", count)

	case rules.KindPenalizeEmployeePost:
		count := 0
		for _, a := range assignments {
			if a.EmployeeID == r.Param1 && a.Post == r.Param2 {
				count++
			}
		}
		return fmt.Sprintf("觸發 %d 次", count)

	case rules.KindPenalizeEmployeeShift:
		count := 0
		for _, a := range assignments {
			if a.EmployeeID == r.Param1 && a.Shift == r.Param2 {
				count++
			}
		}
		return fmt.Sprintf("觸發 %d 次", count)

	case rules.KindPreferEmployeePost:
		count := 0
		for _, a := range assignments {
			if a.EmployeeID == r.Param1 && a.Post == r.Param2 {
				count++
			}
		}
		return fmt.Sprintf("觸發 %d 次獎勵", count)

	case rules.KindPromoteConsecutiveOffs:
		count := 0
		for _, m := range metrics {
			for i := 0; i+2 < len(snap.Dates); i++ {
				if m.WorkDays[snap.Dates[i]] && !m.WorkDays[snap.Dates[i+1]] && !m.WorkDays[snap.Dates[i+2]] {
					count++
				}
			}
		}
		return fmt.Sprintf("觸發 %d 次獎勵", count)

	case rules.KindPromoteConsecutiveShifts:
		count := 0
		for _, m := range metrics {
			for _, dayAssignments := range m.ByDate {
				shifts := shiftSet(dayAssignments)
				if (shifts[model.ShiftA] && shifts[model.ShiftB]) || (shifts[model.ShiftB] && shifts[model.ShiftC]) {
					count++
				}
			}
		}
		return fmt.Sprintf("觸發 %d 次獎勵", count)

	case rules.KindNursingHeadSupportRatio:
		eid := r.Param1
		m, ok := metrics[eid]
		if !ok {
			return fmt.Sprintf("員工 %s 無排班", eid)
		}
		support := 0
		for _, dayAssignments := range m.ByDate {
			for _, a := range dayAssignments {
				if a.Post != model.AdminPost {
					support++
				}
			}
		}
		ratio := 0.0
		if m.TotalShifts > 0 {
			ratio = float64(support) / float64(m.TotalShifts)
		}
		return fmt.Sprintf("員工 %s 支援率 %.1f%% (共 %d 班，支援 %d 班)", eid, ratio*100, m.TotalShifts, support)
	}

	return "(已納入最佳化評分)"
}
