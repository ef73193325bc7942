package compliance

import (
	"strings"
	"testing"

	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/rules"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Dates: []string{
			"2025/09/01", "2025/09/02", "2025/09/03", "2025/09/04",
			"2025/09/05", "2025/09/06", "2025/09/07",
		},
		Employees: []*model.Employee{
			{ID: "E1", Name: "小美"},
			{ID: "E2", Name: "小强", AvailableShifts: []model.Shift{"A"}},
			{ID: "E3", Name: "阿芳", AvailableDates: []string{"2025/09/01", "2025/09/02"}},
		},
		Demand: []*model.DemandSlot{
			{Key: model.SlotKey{Date: "2025/09/01", Shift: "A", Post: "內科"}, Demand: 1, FatigueIndex: 1},
			{Key: model.SlotKey{Date: "2025/09/01", Shift: "C", Post: "急診"}, Demand: 1, FatigueIndex: 3},
			{Key: model.SlotKey{Date: "2025/09/02", Shift: "A", Post: "特殊美容診"}, Demand: 1, PostType: "特殊美容診", FatigueIndex: 1},
		},
		ShiftHours: model.ShiftHours{"A": 8, "B": 8, "C": 8},
	}
}

func asg(date, shift, post, eid string) *model.Assignment {
	return &model.Assignment{Date: date, Shift: shift, Post: post, EmployeeID: eid}
}

func countType(violations []model.Violation, typ string) int {
	n := 0
	for _, v := range violations {
		if v.Type == typ {
			n++
		}
	}
	return n
}

func TestCheckHardOffDayAssigned(t *testing.T) {
	snap := testSnapshot()
	snap.LeaveRequests = []*model.LeaveRequest{
		{Date: "2025/09/01", EmployeeID: "E1", Kind: model.LeaveHardOff},
	}
	violations := CheckHard([]*model.Assignment{
		asg("2025/09/01", "A", "內科", "E1"),
	}, snap)

	if countType(violations, TypeOffDayAssigned) != 1 {
		t.Fatalf("期望 1 条排休假員工违规, 实际 %+v", violations)
	}
}

func TestCheckHardAvailability(t *testing.T) {
	snap := testSnapshot()
	tests := []struct {
		name string
		a    *model.Assignment
		typ  string
	}{
		{"超出可上班别", asg("2025/09/01", "C", "急診", "E2"), TypeShiftUnavailable},
		{"超出可上日期", asg("2025/09/03", "A", "內科", "E3"), TypeDateUnavailable},
		{"可上日期内", asg("2025/09/02", "A", "內科", "E3"), ""},
		{"不设限员工", asg("2025/09/05", "C", "急診", "E1"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := CheckHard([]*model.Assignment{tt.a}, snap)
			if tt.typ == "" {
				if len(violations) != 0 {
					t.Errorf("期望无违规, 实际 %+v", violations)
				}
				return
			}
			if countType(violations, tt.typ) != 1 {
				t.Errorf("期望 1 条 %s, 实际 %+v", tt.typ, violations)
			}
		})
	}
}

func TestCheckHardSegmentLimits(t *testing.T) {
	snap := testSnapshot()
	violations := CheckHard([]*model.Assignment{
		asg("2025/09/01", "A", "內科", "E1"),
		asg("2025/09/01", "A", "外科", "E1"),
		asg("2025/09/01", "B", "內科", "E1"),
		asg("2025/09/01", "C", "急診", "E1"),
	}, snap)

	if countType(violations, TypeTooManySegments) != 1 {
		t.Errorf("期望 1 条每日超過3段班, 实际 %+v", violations)
	}
	if countType(violations, TypeMultiPostShift) != 1 {
		t.Errorf("期望 1 条單一班別多崗位, 实际 %+v", violations)
	}
}

func TestCheckHardSkipsLeaveRecords(t *testing.T) {
	snap := testSnapshot()
	snap.LeaveRequests = []*model.LeaveRequest{
		{Date: "2025/09/01", EmployeeID: "E1", Kind: model.LeaveHardOff},
	}
	// 补全后的休假占位记录不应被当作排班
	violations := CheckHard([]*model.Assignment{
		{Date: "2025/09/01", Shift: "OFF", Post: "休假", EmployeeID: "E1"},
	}, snap)
	if len(violations) != 0 {
		t.Fatalf("期望无违规, 实际 %+v", violations)
	}
}

func TestCheckSoftGapAndSplitShift(t *testing.T) {
	snap := testSnapshot()
	rs := rules.NewRuleSet()
	byKey := []model.SlotAudit{
		{Key: "2025/09/01|A|內科", Demand: 2, Assigned: 1, Gap: 1},
		{Key: "2025/09/02|A|特殊美容診", Demand: 1, Assigned: 2, Over: 1},
	}
	violations := CheckSoft([]*model.Assignment{
		asg("2025/09/01", "A", "內科", "E1"),
		asg("2025/09/01", "C", "急診", "E1"),
	}, snap, rs, byKey)

	if countType(violations, "人力缺口") != 1 {
		t.Errorf("期望 1 条人力缺口, 实际 %+v", violations)
	}
	if countType(violations, "人力過剩") != 1 {
		t.Errorf("期望 1 条人力過剩, 实际 %+v", violations)
	}
	if countType(violations, "早晚分隔班") != 1 {
		t.Errorf("期望 1 条早晚分隔班, 实际 %+v", violations)
	}
}

func TestCheckSoftFairTotalHours(t *testing.T) {
	snap := testSnapshot()
	rs := rules.NewRuleSet()
	rs.Rules = append(rs.Rules, &rules.Rule{Kind: rules.KindFairTotalHours, Weight: 10})

	// E1 上 6 班 48 小时, E2 上 1 班 8 小时, 平均 28: 双方偏差均超过默认阈值 16
	var assignments []*model.Assignment
	for _, d := range snap.Dates[:6] {
		assignments = append(assignments, asg(d, "A", "內科", "E1"))
	}
	assignments = append(assignments, asg("2025/09/01", "A", "內科", "E2"))

	violations := CheckSoft(assignments, snap, rs, nil)
	if countType(violations, "[公平性] 總工時差異") != 2 {
		t.Fatalf("期望 2 条總工時差異, 实际 %+v", violations)
	}
}

func TestCheckSoftZeroWeightRuleStillChecked(t *testing.T) {
	snap := testSnapshot()
	rs := rules.NewRuleSet()
	// 权重 0 的规则不参与求解, 但查核报告仍然逐条复核
	rs.Rules = append(rs.Rules, &rules.Rule{Kind: rules.KindConsecutiveDaysMax, Param1: "ALL", Limit: 2, Weight: 0})

	var assignments []*model.Assignment
	for _, d := range snap.Dates[:4] {
		assignments = append(assignments, asg(d, "A", "內科", "E1"))
	}
	violations := CheckSoft(assignments, snap, rs, nil)
	if countType(violations, "[勞基] 最大連續工作超標") == 0 {
		t.Fatal("期望出现最大連續工作超標")
	}
}

func TestCheckSoftConsecutiveMin(t *testing.T) {
	snap := testSnapshot()
	rs := rules.NewRuleSet()
	rs.Rules = append(rs.Rules, &rules.Rule{Kind: rules.KindConsecutiveDaysMin, Param1: "ALL", Limit: 2, Weight: 100})

	violations := CheckSoft([]*model.Assignment{
		asg("2025/09/01", "A", "內科", "E1"),
		asg("2025/09/03", "A", "內科", "E1"),
		asg("2025/09/04", "A", "內科", "E1"),
	}, snap, rs, nil)

	// 9/1 为长度 1 的孤立工作段, 9/3-9/4 刚好达标
	if countType(violations, "[營運] 最小連續工作不足") != 1 {
		t.Fatalf("期望 1 条最小連續工作不足, 实际 %+v", violations)
	}
}

func TestCheckSoftWeeklyHours(t *testing.T) {
	snap := testSnapshot()
	rs := rules.NewRuleSet()
	r := &rules.Rule{Kind: rules.KindWeeklyHoursMax, Param1: "ALL", Param2: "16", Hours: 16, Weight: 100}
	rs.Rules = append(rs.Rules, r)

	var assignments []*model.Assignment
	for _, d := range snap.Dates[:3] {
		assignments = append(assignments, asg(d, "A", "內科", "E1"))
	}
	violations := CheckSoft(assignments, snap, rs, nil)
	found := false
	for _, v := range violations {
		if v.Type == "[勞基] 每週最大工時超標" {
			found = true
			if !strings.HasPrefix(v.Date, "第 ") {
				t.Errorf("周违规日期应为周标签, 实际 %q", v.Date)
			}
		}
	}
	if !found {
		t.Fatal("期望出现每週最大工時超標")
	}
}

func TestCheckSoftPreferredLeave(t *testing.T) {
	snap := testSnapshot()
	snap.LeaveRequests = []*model.LeaveRequest{
		{Date: "2025/09/01", EmployeeID: "E1", Kind: model.LeavePreferredOff},
	}
	rs := rules.NewRuleSet()
	rs.Rules = append(rs.Rules, &rules.Rule{Kind: rules.KindSatisfyPreferredLeave, Weight: 100})

	violations := CheckSoft([]*model.Assignment{
		asg("2025/09/01", "A", "內科", "E1"),
	}, snap, rs, nil)
	if countType(violations, "[福祉] 偏好休假未滿足") != 1 {
		t.Fatalf("期望 1 条偏好休假未滿足, 实际 %+v", violations)
	}
}

func TestCheckSoftSeniorCoverage(t *testing.T) {
	snap := testSnapshot()
	snap.Employees[0].Skills = []string{"資深"}
	rs := rules.NewRuleSet()
	rs.Rules = append(rs.Rules, &rules.Rule{Kind: rules.KindSeniorCoverage, Param1: "資深", Limit: 1, Weight: 300})

	// 9/1 A 班由资深员工 E1 覆盖, 9/1 C 班与 9/2 A 班无资深
	violations := CheckSoft([]*model.Assignment{
		asg("2025/09/01", "A", "內科", "E1"),
		asg("2025/09/01", "C", "急診", "E2"),
	}, snap, rs, nil)
	if countType(violations, "[營運] 資深人員覆蓋不足") != 2 {
		t.Fatalf("期望 2 条資深人員覆蓋不足, 实际 %+v", violations)
	}
}

func TestCheckSoftHighFatigue(t *testing.T) {
	snap := testSnapshot()
	snap.Demand = []*model.DemandSlot{
		{Key: model.SlotKey{Date: "2025/09/01", Shift: "C", Post: "急診"}, Demand: 1, FatigueIndex: 3},
		{Key: model.SlotKey{Date: "2025/09/02", Shift: "C", Post: "急診"}, Demand: 1, FatigueIndex: 3},
		{Key: model.SlotKey{Date: "2025/09/03", Shift: "A", Post: "內科"}, Demand: 1, FatigueIndex: 1},
	}
	rs := rules.NewRuleSet()
	rs.Rules = append(rs.Rules, &rules.Rule{Kind: rules.KindAvoidHighFatigue, Fatigue: 3, Limit: 1, Weight: 150})

	violations := CheckSoft([]*model.Assignment{
		asg("2025/09/01", "C", "急診", "E1"),
		asg("2025/09/02", "C", "急診", "E1"),
		asg("2025/09/03", "A", "內科", "E1"),
	}, snap, rs, nil)
	if countType(violations, "[福祉] 連續高疲勞班") != 1 {
		t.Fatalf("期望 1 条連續高疲勞班, 实际 %+v", violations)
	}
}

func TestGenerateReportSections(t *testing.T) {
	snap := testSnapshot()
	snap.Employees[0].Skills = []string{model.SkillHeadNurse}
	snap.PreAssignments = []*model.PreAssignment{
		{Date: "2025/09/01", EmployeeID: "E1", Shift: "A", SupportAllowed: true},
	}
	snap.AdminAssignments = []*model.AdminAssignment{
		{Date: "2025/09/02", EmployeeID: "E1", Shift: "A"},
	}
	rs := rules.NewRuleSet()
	rs.Rules = append(rs.Rules, &rules.Rule{Kind: rules.KindFairTotalHours, Weight: 10})

	assignments := []*model.Assignment{
		asg("2025/09/01", "A", "內科", "E1"),
		asg("2025/09/02", "A", model.AdminPost, "E1"),
	}
	audit := &model.Audit{ByKey: []model.SlotAudit{
		{Key: "2025/09/01|A|內科", Demand: 1, Assigned: 1},
	}}

	violations := CheckSoft(assignments, snap, rs, audit.ByKey)
	report := GenerateReport(violations, assignments, snap, rs, audit)

	for _, want := range []string{
		"軟性限制符合性分析報告",
		"總體評估: 品質良好",
		"核心人力與品質指標",
		"公平性指標分析",
		"員工福祉指標",
		"護理長排班分析",
		"實際支援佔比: 50.0%",
		"軟性限制逐項分析",
		"總工時公平",
		"員工總工時列表",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("报告缺少 %q", want)
		}
	}
}

func TestGenerateReportGapAssessment(t *testing.T) {
	snap := testSnapshot()
	rs := rules.NewRuleSet()
	audit := &model.Audit{ByKey: []model.SlotAudit{
		{Key: "2025/09/01|A|內科", Demand: 2, Assigned: 1, Gap: 1},
	}}
	report := GenerateReport(nil, nil, snap, rs, audit)
	if !strings.Contains(report, "總體評估: 品質不佳") {
		t.Fatalf("缺口场景评估错误:\n%s", report)
	}
	if !strings.Contains(report, "人力滿足率: 50.00%") {
		t.Fatalf("人力满足率计算错误:\n%s", report)
	}
}

func TestAnalyzeSlotEligibility(t *testing.T) {
	snap := testSnapshot()
	snap.Employees[0].AvailableDates = snap.Dates
	snap.Employees[0].AvailableShifts = model.AllShifts
	snap.Employees[2].AvailableShifts = model.AllShifts
	snap.LeaveRequests = []*model.LeaveRequest{
		{Date: "2025/09/01", EmployeeID: "E1", Kind: model.LeaveHardOff},
	}

	// 9/1 C 班急診: E1 硬休, E2 只可上 A 班, E3 全部条件满足
	analysis, err := AnalyzeSlotEligibility(snap, model.SlotKey{Date: "2025/09/01", Shift: "C", Post: "急診"})
	if err != nil {
		t.Fatalf("分析报错: %v", err)
	}
	if len(analysis.Candidates) != 1 || analysis.Candidates[0].ID != "E3" {
		t.Errorf("潜在人选 = %+v, 期望仅 E3", analysis.Candidates)
	}
	reasonsByID := make(map[string]string)
	for _, f := range analysis.Failures {
		reasonsByID[f.ID] = strings.Join(f.Reasons, "; ")
	}
	if !strings.Contains(reasonsByID["E1"], "正在休假") {
		t.Errorf("E1 原因 = %q, 期望含休假", reasonsByID["E1"])
	}
	if !strings.Contains(reasonsByID["E2"], "班別不符") {
		t.Errorf("E2 原因 = %q, 期望含班別不符", reasonsByID["E2"])
	}
}

func TestAnalyzeSlotEligibilityUnknownSlot(t *testing.T) {
	if _, err := AnalyzeSlotEligibility(testSnapshot(), model.SlotKey{Date: "2025/09/09", Shift: "A", Post: "內科"}); err == nil {
		t.Fatal("未知时段应返回错误")
	}
}

func TestGenerateGapReport(t *testing.T) {
	snap := testSnapshot()
	snap.Employees[0].AvailableDates = snap.Dates
	snap.Employees[0].AvailableShifts = model.AllShifts
	byKey := []model.SlotAudit{
		{Key: "2025/09/01|A|內科", Demand: 1, Assigned: 1},
		{Key: "2025/09/01|C|急診", Demand: 1, Assigned: 0, Gap: 1},
	}

	report := GenerateGapReport(snap, byKey)
	for _, want := range []string{
		"崗位分析: 2025/09/01 C班 急診",
		"需求人數: 1, 缺口人數: 1",
		"硬性限制分析",
		"結論與建議",
		"潛在人選名單: 小美(E1)",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("缺口分析报告缺少 %q", want)
		}
	}
	if strings.Contains(report, "崗位分析: 2025/09/01 A班 內科") {
		t.Error("无缺口的时段不应出现在报告中")
	}
}
