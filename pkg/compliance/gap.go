package compliance

import (
	"fmt"
	"strings"

	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/normalize"
)

// Candidate 符合某时段全部硬性条件的人选
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EligibilityFailure 员工不符合某时段的原因清单
type EligibilityFailure struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Reasons []string `json:"reasons"`
}

// SlotEligibility 单一时段的资格分析结果
type SlotEligibility struct {
	Slot       *model.DemandSlot    `json:"slot"`
	Candidates []Candidate          `json:"candidates"`
	Failures   []EligibilityFailure `json:"failures"`
}

// AnalyzeSlotEligibility 逐员工判定对指定时段的排班资格
// 判定顺序与求解器建变量时一致：硬休、日期、班别、崗位、技能
func AnalyzeSlotEligibility(snap *model.Snapshot, key model.SlotKey) (*SlotEligibility, error) {
	var slot *model.DemandSlot
	for _, d := range snap.Demand {
		if d.Key == key {
			slot = d
			break
		}
	}
	if slot == nil {
		return nil, fmt.Errorf("找不到对应的需求时段: %s", key.String())
	}

	hardOff := snap.HardOffSet()
	out := &SlotEligibility{Slot: slot}
	for _, e := range snap.Employees {
		var reasons []string
		if hardOff[[2]string{key.Date, e.ID}] {
			reasons = append(reasons, "正在休假 (OFF)")
		}
		if !containsString(e.AvailableDates, key.Date) {
			reasons = append(reasons, "日期不可上 (可上日期未包含本日)")
		}
		if !containsString(e.AvailableShifts, key.Shift) {
			reasons = append(reasons, fmt.Sprintf("班別不符 (可上班別: %v)", e.AvailableShifts))
		}
		if !normalize.EligibleOK(e.EligiblePosts, key.Post) {
			reasons = append(reasons, fmt.Sprintf("崗位資格不符 (可上崗位: %v)", e.EligiblePosts))
		}
		if !normalize.SkillsOK(e.Skills, slot.RequiredSkills) {
			reasons = append(reasons, fmt.Sprintf("缺少需求技能 (擁有: %v, 需求: %v)", e.Skills, slot.RequiredSkills))
		}

		if len(reasons) == 0 {
			out.Candidates = append(out.Candidates, Candidate{ID: e.ID, Name: e.Name})
		} else {
			out.Failures = append(out.Failures, EligibilityFailure{ID: e.ID, Name: e.Name, Reasons: reasons})
		}
	}
	return out, nil
}

// GenerateGapReport 针对所有出现人力缺口的时段生成逐一分析与建议
func GenerateGapReport(snap *model.Snapshot, byKey []model.SlotAudit) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("本報告針對所有出現人力缺口的崗位，逐一分析原因並提供建議。")

	for _, a := range byKey {
		if a.Gap <= 0 {
			continue
		}
		parts := strings.SplitN(a.Key, "|", 3)
		if len(parts) != 3 {
			continue
		}
		d, s, p := parts[0], parts[1], parts[2]

		line("")
		line(strings.Repeat("=", 50))
		line("崗位分析: %s %s班 %s", d, s, p)
		line("  - 需求人數: %d, 缺口人數: %d", a.Demand, a.Gap)
		line(strings.Repeat("=", 50))

		analysis, err := AnalyzeSlotEligibility(snap, model.SlotKey{Date: d, Shift: s, Post: p})
		if err != nil {
			line("  - 分析錯誤: %v", err)
			continue
		}

		line("")
		line("--- 硬性限制分析 (為何多數員工無法排班) ---")
		for _, f := range analysis.Failures {
			line("- %s (%s): %s", f.Name, f.ID, strings.Join(f.Reasons, "; "))
		}

		line("")
		line("--- 結論與建議 ---")
		if len(analysis.Candidates) == 0 {
			line(">> 結論: 沒有任何員工符合該崗位的基本排班要求 (硬性限制)。")
			line(">> 建議:")
			line("   1. 請檢查「人員資料庫」，確認是否有足夠員工擁有此崗位的「可上崗位」資格與「技能標籤」。")
			line("   2. 請檢查「員工預排班表」，確認是否過多符合資格的員工在當天集中排休(OFF)。")
			line("   3. 請檢查員工的「可上日期」與「可上班別」設定是否過於嚴格。")
		} else {
			names := make([]string, 0, len(analysis.Candidates))
			for _, c := range analysis.Candidates {
				names = append(names, fmt.Sprintf("%s(%s)", c.Name, c.ID))
			}
			line(">> 結論: 系統找到 %d 位符合資格的潛在人選，但最終未指派。", len(analysis.Candidates))
			line(">> 潛在人選名單: %s", strings.Join(names, ", "))
			line(">> 原因: 這通常是因為指派這些人選會違反某個權重較高的「軟性限制」(例如最大連續工作天數、班別公平性等)，")
			line("   求解器權衡後，寧可接受人力缺口，也不願違反這些更高分的懲罰。")
			line(">> 建議:")
			line("   1. (短期) 手動調整：從「潛在人選名單」中，挑選一位員工手動加入班表，以解決燃眉之急。")
			line("   2. (長期) 放寬規則：前往「軟性限制」工作表，適度「降低」部分公平性或福祉規則的權重(weight)，")
			line("      給予求解器更大的彈性空間來優先滿足人力。")
		}
	}
	return b.String()
}

func containsString(items []string, target string) bool {
	for _, it := range items {
		if it == target {
			return true
		}
	}
	return false
}
