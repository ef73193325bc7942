package normalize

import (
	"reflect"
	"testing"

	"github.com/ariscare/roster/pkg/model"
)

func TestNormDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025/09/01", "2025/09/01"},
		{"2025-9-1", "2025/09/01"},
		{"9/1/2025", "2025/09/01"},
		{"25/12/2025", "2025/12/25"},
		{" 2025/09/01 ", "2025/09/01"},
		{"", ""},
		{"下週三", "下週三"},
	}
	for _, tt := range tests {
		if got := NormDate(tt.in); got != tt.want {
			t.Errorf("NormDate(%q) = %q, 期望 %q", tt.in, got, tt.want)
		}
	}
}

func TestPickShift(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A", "A"},
		{"b", "B"},
		{" 'C' ", "C"},
		{"早班", "A"},
		{"中班", "B"},
		{"晚班", "C"},
		{"Morning", "A"},
		{"大夜", "大夜"},
	}
	for _, tt := range tests {
		if got := PickShift(tt.in); got != tt.want {
			t.Errorf("PickShift(%q) = %q, 期望 %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"內科、外科", []string{"內科", "外科"}},
		{"內科，外科", []string{"內科", "外科"}},
		{`["內科", "外科"]`, []string{"內科", "外科"}},
		{"內科", []string{"內科"}},
		{"", nil},
		{" , ", nil},
	}
	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, 期望 %v", tt.in, got, tt.want)
		}
	}
}

func baseInput() *Input {
	return &Input{
		Employees: []RawEmployee{
			{ID: "E1", Name: "小美", Skills: "資深、急救"},
			{ID: "E2", Name: "小强", AvailableShifts: "A、B"},
		},
		Demand: []RawDemand{
			{Date: "2025/09/01", Shift: "A", Post: "內科", Demand: "1", FatigueIndex: "2"},
			{Date: "2025/09/02", Shift: "早班", Post: "內科", Demand: "2"},
		},
	}
}

func TestNormalizeBasic(t *testing.T) {
	snap, err := Normalize(baseInput(), nil)
	if err != nil {
		t.Fatalf("Normalize 报错: %v", err)
	}
	if !reflect.DeepEqual(snap.Dates, []string{"2025/09/01", "2025/09/02"}) {
		t.Errorf("周期日期 = %v", snap.Dates)
	}
	if len(snap.Demand) != 2 {
		t.Fatalf("需求时段数 = %d", len(snap.Demand))
	}
	if snap.Demand[1].Key.Shift != "A" {
		t.Errorf("早班应规范化为 A, 实际 %q", snap.Demand[1].Key.Shift)
	}
	if snap.Demand[1].FatigueIndex != 1 {
		t.Errorf("缺失疲劳指数应取 1, 实际 %d", snap.Demand[1].FatigueIndex)
	}
	if snap.Demand[1].PostType != "一般" {
		t.Errorf("缺失崗位类型应取一般, 实际 %q", snap.Demand[1].PostType)
	}

	// 未填可上班别与可上日期的员工默认全可上
	e1 := snap.Employees[0]
	if len(e1.AvailableShifts) != 3 {
		t.Errorf("E1 可上班别 = %v", e1.AvailableShifts)
	}
	if !reflect.DeepEqual(e1.AvailableDates, snap.Dates) {
		t.Errorf("E1 可上日期 = %v", e1.AvailableDates)
	}
	e2 := snap.Employees[1]
	if !reflect.DeepEqual(e2.AvailableShifts, []model.Shift{"A", "B"}) {
		t.Errorf("E2 可上班别 = %v", e2.AvailableShifts)
	}
}

func TestNormalizeMissingTables(t *testing.T) {
	if _, err := Normalize(&Input{Demand: baseInput().Demand}, nil); err == nil {
		t.Error("员工表缺失应报错")
	}
	if _, err := Normalize(&Input{Employees: baseInput().Employees}, nil); err == nil {
		t.Error("需求表缺失应报错")
	}
}

func TestNormalizeDuplicateDemandKey(t *testing.T) {
	in := baseInput()
	in.Demand = append(in.Demand, RawDemand{Date: "2025/09/01", Shift: "A", Post: "內科", Demand: "9"})
	snap, err := Normalize(in, nil)
	if err != nil {
		t.Fatalf("Normalize 报错: %v", err)
	}
	if len(snap.Demand) != 2 {
		t.Fatalf("重复键应被忽略, 实际 %d 条", len(snap.Demand))
	}
	if snap.Demand[0].Demand != 1 {
		t.Errorf("应保留先出现的行, 实际需求 %d", snap.Demand[0].Demand)
	}
}

func TestNormalizeStartDateOverridesDates(t *testing.T) {
	in := baseInput()
	in.Employees[0].AvailableDates = "2025/09/01"
	in.Employees[0].StartDate = "2025/09/02"
	snap, err := Normalize(in, nil)
	if err != nil {
		t.Fatalf("Normalize 报错: %v", err)
	}
	if !reflect.DeepEqual(snap.Employees[0].AvailableDates, []string{"2025/09/02"}) {
		t.Errorf("到职日应覆盖显式日期列表, 实际 %v", snap.Employees[0].AvailableDates)
	}
}

func TestNormalizePresets(t *testing.T) {
	in := baseInput()
	in.Employees = append(in.Employees, RawEmployee{ID: "H1", Name: "护理长", Skills: "護理長"})
	in.Presets = []RawPreset{
		{Date: "2025/09/01", EmployeeID: "E1", Preset: "OFF"},
		{Date: "2025/09/01", EmployeeID: "E2", Preset: "偏好休"},
		{Date: "2025/09/02", EmployeeID: "E1", Preset: "off?"},
		{Date: "2025/09/01", EmployeeID: "H1", Preset: "A", Support: "Y"},
		{Date: "2025/09/02", EmployeeID: "H1", Preset: "A"},
		{Date: "2025/09/02", EmployeeID: "E2", Preset: "B"},
	}
	snap, err := Normalize(in, nil)
	if err != nil {
		t.Fatalf("Normalize 报错: %v", err)
	}

	if len(snap.LeaveRequests) != 2 {
		t.Fatalf("休假请求数 = %d", len(snap.LeaveRequests))
	}
	if snap.LeaveRequests[0].Kind != model.LeaveHardOff {
		t.Errorf("OFF 应为硬性休假")
	}
	if snap.LeaveRequests[1].Kind != model.LeavePreferredOff {
		t.Errorf("偏好休应为偏好休假")
	}

	if len(snap.PreAssignments) != 2 {
		t.Fatalf("预排班数 = %d: %+v", len(snap.PreAssignments), snap.PreAssignments)
	}
	if !snap.PreAssignments[0].SupportAllowed {
		t.Errorf("护理长人力=Y 应为机动支援")
	}
	if snap.PreAssignments[1].SupportAllowed {
		t.Errorf("普通员工预排应为强制")
	}

	if len(snap.AdminAssignments) != 1 {
		t.Fatalf("行政班数 = %d", len(snap.AdminAssignments))
	}
	if snap.AdminAssignments[0].EmployeeID != "H1" {
		t.Errorf("行政班员工 = %s", snap.AdminAssignments[0].EmployeeID)
	}
}

func TestNormalizeShiftDefs(t *testing.T) {
	in := baseInput()
	in.ShiftDefs = []RawShiftDef{
		{Shift: "A", Hours: "7.5"},
		{Shift: "C", Hours: "abc"},
		{Shift: "", Hours: "8"},
	}
	snap, err := Normalize(in, nil)
	if err != nil {
		t.Fatalf("Normalize 报错: %v", err)
	}
	if got := snap.ShiftHours.Hours("A"); got != 7.5 {
		t.Errorf("A 班时数 = %v", got)
	}
	if got := snap.ShiftHours.Hours("C"); got != model.DefaultShiftHours {
		t.Errorf("非法时数应回落默认值, 实际 %v", got)
	}
}

func TestSkillsOK(t *testing.T) {
	tests := []struct {
		name     string
		skills   []string
		required []string
		want     bool
	}{
		{"需求为空", []string{"資深"}, nil, true},
		{"有交集", []string{"資深", "急救"}, []string{"急救"}, true},
		{"大小写不敏感", []string{"ICU"}, []string{"icu"}, true},
		{"无交集", []string{"資深"}, []string{"急救"}, false},
		{"员工无技能", nil, []string{"急救"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SkillsOK(tt.skills, tt.required); got != tt.want {
				t.Errorf("SkillsOK = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

func TestEligibleOK(t *testing.T) {
	tests := []struct {
		name     string
		eligible []string
		post     string
		want     bool
	}{
		{"列表为空全可上", nil, "內科", true},
		{"双向包含之一", []string{"內科門診"}, "內科", true},
		{"崗位含资格项", []string{"科"}, "內科", true},
		{"不匹配", []string{"外科"}, "內科", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EligibleOK(tt.eligible, tt.post); got != tt.want {
				t.Errorf("EligibleOK = %v, 期望 %v", got, tt.want)
			}
		})
	}
}
