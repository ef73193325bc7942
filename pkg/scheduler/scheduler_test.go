package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ariscare/roster/pkg/logger"
	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/rules"
	"github.com/ariscare/roster/pkg/solver"
)

func testOptions() Options {
	return Options{TimeLimit: 5 * time.Second, Workers: 2, Seed: 1}
}

func slot(date, shift, post string, demand int) *model.DemandSlot {
	return &model.DemandSlot{
		Key:          model.SlotKey{Date: date, Shift: shift, Post: post},
		Demand:       demand,
		FatigueIndex: 1,
	}
}

func twoEmployeeSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Dates: []string{"2025/09/01", "2025/09/02"},
		Employees: []*model.Employee{
			{ID: "E1", Name: "小美", AvailableDates: []string{"2025/09/01", "2025/09/02"}, AvailableShifts: model.AllShifts},
			{ID: "E2", Name: "小强", AvailableDates: []string{"2025/09/01", "2025/09/02"}, AvailableShifts: model.AllShifts},
		},
		Demand: []*model.DemandSlot{
			slot("2025/09/01", "A", "內科", 1),
			slot("2025/09/02", "A", "內科", 1),
		},
		ShiftHours: model.ShiftHours{"A": 8, "B": 8, "C": 8},
	}
}

func TestBuilderEligibilityFilters(t *testing.T) {
	snap := twoEmployeeSnapshot()
	snap.Employees[0].Skills = []string{"急救"}
	snap.Employees[1].AvailableShifts = []model.Shift{"C"}
	snap.Demand[0].RequiredSkills = []string{"急救"}
	snap.LeaveRequests = []*model.LeaveRequest{
		{Date: "2025/09/02", EmployeeID: "E1", Kind: model.LeaveHardOff},
	}

	b := newBuilder(snap, rules.NewRuleSet(), logger.Nop())
	b.build()

	// E2 只可上 C 班, 全部落选; E1 在 9/2 硬休, 只剩 9/1 的一个变量
	if len(b.x) != 1 {
		t.Fatalf("决策变量数 = %d, 期望 1", len(b.x))
	}
	if _, ok := b.x[varKey{0, 0}]; !ok {
		t.Errorf("应保留 E1 对 9/1 內科 的变量")
	}
}

func TestSolveOptimalCoversDemand(t *testing.T) {
	out, err := Solve(context.Background(), twoEmployeeSnapshot(), nil, testOptions())
	if err != nil {
		t.Fatalf("Solve 报错: %v", err)
	}
	if out.Status != solver.StatusOptimal {
		t.Fatalf("状态 = %v, 期望 OPTIMAL", out.Status)
	}
	if len(out.Assignments) != 2 {
		t.Fatalf("指派数 = %d, 期望 2", len(out.Assignments))
	}
	if out.Audit.Summary.Gap != 0 {
		t.Errorf("缺口 = %d, 期望 0", out.Audit.Summary.Gap)
	}
	if out.Summary != BrandName+": 已找到最佳排班解" {
		t.Errorf("汇总文案 = %q", out.Summary)
	}
	if out.JobID == "" {
		t.Error("任务 ID 不应为空")
	}
}

func TestSolveReportsGap(t *testing.T) {
	snap := twoEmployeeSnapshot()
	snap.Employees = snap.Employees[:1]
	snap.Demand = []*model.DemandSlot{slot("2025/09/01", "A", "內科", 2)}

	out, err := Solve(context.Background(), snap, nil, testOptions())
	if err != nil {
		t.Fatalf("Solve 报错: %v", err)
	}
	if len(out.Assignments) != 1 {
		t.Fatalf("指派数 = %d, 期望 1", len(out.Assignments))
	}
	if out.Audit.Summary.Gap != 1 {
		t.Errorf("缺口 = %d, 期望 1", out.Audit.Summary.Gap)
	}
	if out.Audit.ByKey[0].Gap != 1 || out.Audit.ByKey[0].Assigned != 1 {
		t.Errorf("时段审核 = %+v", out.Audit.ByKey[0])
	}
}

func TestSolveAvoidsOverStaffing(t *testing.T) {
	snap := twoEmployeeSnapshot()
	snap.Demand = []*model.DemandSlot{slot("2025/09/01", "A", "內科", 1)}

	out, err := Solve(context.Background(), snap, nil, testOptions())
	if err != nil {
		t.Fatalf("Solve 报错: %v", err)
	}
	if len(out.Assignments) != 1 {
		t.Fatalf("指派数 = %d, 期望 1", len(out.Assignments))
	}
	if out.Audit.ByKey[0].Over != 0 {
		t.Errorf("超编 = %d, 期望 0", out.Audit.ByKey[0].Over)
	}
}

func TestSolveInfeasiblePreAssignmentConflict(t *testing.T) {
	snap := twoEmployeeSnapshot()
	snap.Employees = snap.Employees[:1]
	snap.Demand = []*model.DemandSlot{slot("2025/09/01", "A", "內科", 1)}
	// 同一 (日期, 班别) 既强制上班又固定不得排班
	snap.PreAssignments = []*model.PreAssignment{
		{Date: "2025/09/01", EmployeeID: "E1", Shift: "A"},
	}
	snap.AdminAssignments = []*model.AdminAssignment{
		{Date: "2025/09/01", EmployeeID: "E1", Shift: "A"},
	}

	out, err := Solve(context.Background(), snap, nil, testOptions())
	if err != nil {
		t.Fatalf("Solve 报错: %v", err)
	}
	if out.Status != solver.StatusInfeasible {
		t.Fatalf("状态 = %v, 期望 INFEASIBLE", out.Status)
	}
	if out.Assignments != nil {
		t.Errorf("无解时指派应为空, 实际 %+v", out.Assignments)
	}
	if out.Audit.Summary.Gap != 1 {
		t.Errorf("无解时缺口应为总需求, 实际 %d", out.Audit.Summary.Gap)
	}
	if out.Summary != BrandName+": 找不到可行的排班解 (請檢查硬性限制衝突)" {
		t.Errorf("汇总文案 = %q", out.Summary)
	}
}

func TestSolvePrefersSplitShiftFree(t *testing.T) {
	// 9/1 需要 A 与 C 各 1 人, 两人都可上:
	// 把两班都给同一人会触发早晚分隔班惩罚, 最优解应分给两人
	snap := twoEmployeeSnapshot()
	snap.Demand = []*model.DemandSlot{
		slot("2025/09/01", "A", "內科", 1),
		slot("2025/09/01", "C", "急診", 1),
	}

	out, err := Solve(context.Background(), snap, nil, testOptions())
	if err != nil {
		t.Fatalf("Solve 报错: %v", err)
	}
	if out.Status != solver.StatusOptimal {
		t.Fatalf("状态 = %v, 期望 OPTIMAL", out.Status)
	}
	byEmp := make(map[string]int)
	for _, a := range out.Assignments {
		byEmp[a.EmployeeID]++
	}
	if len(byEmp) != 2 {
		t.Fatalf("早晚两班应分给两人, 实际 %+v", out.Assignments)
	}
}

func TestSolvePreferEmployeePost(t *testing.T) {
	snap := twoEmployeeSnapshot()
	snap.Demand = []*model.DemandSlot{slot("2025/09/01", "A", "內科", 1)}
	ruleRows := []rules.RawRule{
		{Kind: "偏好員工崗位", Param1: "E2", Param2: "內科", Weight: "300"},
	}

	out, err := Solve(context.Background(), snap, ruleRows, testOptions())
	if err != nil {
		t.Fatalf("Solve 报错: %v", err)
	}
	if len(out.Assignments) != 1 || out.Assignments[0].EmployeeID != "E2" {
		t.Fatalf("偏好规则应使 E2 中选, 实际 %+v", out.Assignments)
	}
}

func TestSolvePenalizeEmployeeShift(t *testing.T) {
	snap := twoEmployeeSnapshot()
	snap.Demand = []*model.DemandSlot{slot("2025/09/01", "A", "內科", 1)}
	ruleRows := []rules.RawRule{
		{Kind: "懲罰員工班別", Param1: "E1", Param2: "A", Weight: "500"},
	}

	out, err := Solve(context.Background(), snap, ruleRows, testOptions())
	if err != nil {
		t.Fatalf("Solve 报错: %v", err)
	}
	if len(out.Assignments) != 1 || out.Assignments[0].EmployeeID != "E2" {
		t.Fatalf("惩罚规则应使 E2 中选, 实际 %+v", out.Assignments)
	}
}

func TestSolveForcedPreAssignment(t *testing.T) {
	snap := twoEmployeeSnapshot()
	snap.Demand = []*model.DemandSlot{slot("2025/09/01", "A", "內科", 1)}
	snap.PreAssignments = []*model.PreAssignment{
		{Date: "2025/09/01", EmployeeID: "E2", Shift: "A"},
	}

	out, err := Solve(context.Background(), snap, nil, testOptions())
	if err != nil {
		t.Fatalf("Solve 报错: %v", err)
	}
	if len(out.Assignments) != 1 || out.Assignments[0].EmployeeID != "E2" {
		t.Fatalf("预排应强制 E2 上班, 实际 %+v", out.Assignments)
	}
}

func TestCompleteAssignments(t *testing.T) {
	snap := twoEmployeeSnapshot()
	snap.Employees = append(snap.Employees, &model.Employee{
		ID: "H1", Name: "护理长", Skills: []string{model.SkillHeadNurse},
	})
	snap.LeaveRequests = []*model.LeaveRequest{
		{Date: "2025/09/02", EmployeeID: "E1", Kind: model.LeaveHardOff},
	}
	snap.AdminAssignments = []*model.AdminAssignment{
		{Date: "2025/09/01", EmployeeID: "H1", Shift: "A"},
	}
	snap.PreAssignments = []*model.PreAssignment{
		{Date: "2025/09/02", EmployeeID: "H1", Shift: "B", SupportAllowed: true},
	}

	assignments := []*model.Assignment{
		{Date: "2025/09/01", Shift: "A", Post: "內科", EmployeeID: "E1", EmployeeName: "小美"},
		{Date: "2025/09/02", Shift: "A", Post: "內科", EmployeeID: "E1", EmployeeName: "小美"},
	}
	complete := CompleteAssignments(assignments, snap)

	var offRecord, adminRecord, fallback *model.Assignment
	for _, a := range complete {
		switch {
		case a.Shift == "OFF":
			offRecord = a
		case a.EmployeeID == "H1" && a.Date == "2025/09/01":
			adminRecord = a
		case a.EmployeeID == "H1" && a.Date == "2025/09/02":
			fallback = a
		}
	}

	// 硬性休假覆盖 9/2 的指派并留下休假记录
	for _, a := range complete {
		if a.EmployeeID == "E1" && a.Date == "2025/09/02" && a.Shift != "OFF" {
			t.Errorf("硬休日的指派应被移除: %+v", a)
		}
	}
	if offRecord == nil || offRecord.Post != "休假" {
		t.Errorf("缺少休假记录: %+v", offRecord)
	}
	if adminRecord == nil || adminRecord.Post != model.AdminPost {
		t.Errorf("缺少行政班记录: %+v", adminRecord)
	}
	if fallback == nil || fallback.Post != model.AdminPost || fallback.Shift != "B" {
		t.Errorf("未被调度的机动支援应回落行政班: %+v", fallback)
	}

	// 原始指派列表不被修改
	if len(assignments) != 2 {
		t.Errorf("原始指派被修改: %d", len(assignments))
	}
}

func TestObjectiveTermsByLabel(t *testing.T) {
	obj := NewObjective()
	m := solver.NewModel()
	v := m.NewBool("v")
	obj.AddIndicator("split_shift", 5000, v)
	obj.AddIndicator("split_shift", 5000, v)
	obj.AddLinear("unmet_demand", 100000, solver.NewLinearExpr().AddBool(v, 1))

	if got := len(obj.TermsByLabel("split_shift")); got != 2 {
		t.Errorf("split_shift 项数 = %d, 期望 2", got)
	}
	if got := len(obj.TermsByLabel("unmet_demand")); got != 1 {
		t.Errorf("unmet_demand 项数 = %d, 期望 1", got)
	}
	if got := len(obj.TermsByLabel("missing")); got != 0 {
		t.Errorf("未知来源项数 = %d, 期望 0", got)
	}
}

func TestSummaryText(t *testing.T) {
	tests := []struct {
		status solver.Status
		want   string
	}{
		{solver.StatusOptimal, BrandName + ": 已找到最佳排班解"},
		{solver.StatusFeasible, BrandName + ": 已找到可行排班解 (因時間限制而停止)"},
		{solver.StatusInfeasible, BrandName + ": 找不到可行的排班解 (請檢查硬性限制衝突)"},
		{solver.StatusUnknown, BrandName + ": 找不到可行的排班解 (請檢查硬性限制衝突)"},
	}
	for _, tt := range tests {
		if got := summaryText(tt.status); got != tt.want {
			t.Errorf("summaryText(%v) = %q, 期望 %q", tt.status, got, tt.want)
		}
	}
}
