// Package e2e 提供端到端测试
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariscare/roster/internal/handler"
	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/normalize"
	"github.com/ariscare/roster/pkg/rules"
)

func newServer() *httptest.Server {
	h := handler.NewRosterHandler(nil, 15*time.Second, 2)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/roster/solve", h.Solve)
	mux.HandleFunc("/api/v1/roster/check", h.Check)
	return httptest.NewServer(mux)
}

func solveRequest() handler.SolveRequest {
	return handler.SolveRequest{
		Employees: []normalize.RawEmployee{
			{ID: "E1", Name: "小美", AvailableShifts: "A,B,C", AvailableDates: "2025/09/01,2025/09/02"},
			{ID: "E2", Name: "小强", AvailableShifts: "A,B,C", AvailableDates: "2025/09/01,2025/09/02"},
		},
		Demand: []normalize.RawDemand{
			{Date: "2025/09/01", Shift: "A", Post: "內科", Demand: "1"},
			{Date: "2025/09/01", Shift: "B", Post: "內科", Demand: "1"},
			{Date: "2025/09/02", Shift: "A", Post: "內科", Demand: "1"},
		},
		ShiftDefs: []normalize.RawShiftDef{
			{Shift: "A", Hours: "8"},
			{Shift: "B", Hours: "8"},
			{Shift: "C", Hours: "8"},
		},
		Rules: []rules.RawRule{
			{Kind: "fair_total_hours", Weight: "10"},
		},
		Options: &handler.SolveOptions{TimeoutSeconds: 15, Workers: 2, Seed: 1},
	}
}

// TestSolveEndToEnd 原始表输入经求解到查核报告的完整链路
func TestSolveEndToEnd(t *testing.T) {
	srv := newServer()
	defer srv.Close()

	body, _ := json.Marshal(solveRequest())
	resp, err := http.Post(srv.URL+"/api/v1/roster/solve", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HTTP状态 = %d, 期望 200", resp.StatusCode)
	}

	var out handler.SolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}

	if out.JobID == "" {
		t.Error("任务 ID 不应为空")
	}
	if out.Status != "OPTIMAL" {
		t.Errorf("状态 = %q, 期望 OPTIMAL", out.Status)
	}
	if len(out.Assignments) != 3 {
		t.Fatalf("指派数 = %d, 期望 3", len(out.Assignments))
	}
	if out.Audit == nil || out.Audit.Summary.Gap != 0 {
		t.Errorf("审核缺口应为 0: %+v", out.Audit)
	}
	if len(out.HardViolations) != 0 {
		t.Errorf("硬性违规 = %v, 期望空", out.HardViolations)
	}
	if !strings.Contains(out.Report, "軟性限制符合性分析報告") {
		t.Error("报告缺少标题")
	}
	if !strings.Contains(out.Report, "人力滿足率: 100.00%") {
		t.Error("报告缺少人力满足率")
	}

	// 无休假与预排时补全清单与指派清单一致
	if len(out.Complete) != len(out.Assignments) {
		t.Errorf("补全清单条数 = %d, 期望 %d", len(out.Complete), len(out.Assignments))
	}
}

// TestCheckEndToEnd 既有排班直接送查核端点
func TestCheckEndToEnd(t *testing.T) {
	srv := newServer()
	defer srv.Close()

	req := solveRequest()
	check := handler.CheckRequest{
		Employees: req.Employees,
		Demand:    req.Demand,
		ShiftDefs: req.ShiftDefs,
		Rules:     req.Rules,
		Assignments: []*model.Assignment{
			// E1 同日 A+C 触发早晚分隔班；9/2 缺人触发人力缺口
			{Date: "2025/09/01", Shift: "A", Post: "內科", EmployeeID: "E1", EmployeeName: "小美"},
			{Date: "2025/09/01", Shift: "B", Post: "內科", EmployeeID: "E2", EmployeeName: "小强"},
			{Date: "2025/09/01", Shift: "C", Post: "內科", EmployeeID: "E1", EmployeeName: "小美"},
		},
		Audit: []model.SlotAudit{
			{Key: "2025/09/02|A|內科", Demand: 1, Assigned: 0, Gap: 1},
		},
	}

	body, _ := json.Marshal(check)
	resp, err := http.Post(srv.URL+"/api/v1/roster/check", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HTTP状态 = %d, 期望 200", resp.StatusCode)
	}

	var out handler.CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}

	types := make(map[string]int)
	for _, v := range out.SoftViolations {
		types[v.Type]++
	}
	if types["人力缺口"] != 1 {
		t.Errorf("人力缺口违规数 = %d, 期望 1", types["人力缺口"])
	}
	if types["早晚分隔班"] != 1 {
		t.Errorf("早晚分隔班违规数 = %d, 期望 1", types["早晚分隔班"])
	}
	if out.Report == "" {
		t.Error("查核报告不应为空")
	}
}

// TestSolveRejectsMissingTables 缺少必要输入表时返回 422
func TestSolveRejectsMissingTables(t *testing.T) {
	srv := newServer()
	defer srv.Close()

	body, _ := json.Marshal(handler.SolveRequest{})
	resp, err := http.Post(srv.URL+"/api/v1/roster/solve", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("HTTP状态 = %d, 期望 422", resp.StatusCode)
	}
}
