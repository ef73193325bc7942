package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/rules"
	"github.com/ariscare/roster/pkg/solver"
)

// encodeRules 将全部生效的进阶规则编码为目标项与辅助变量
func (b *builder) encodeRules() {
	for _, r := range b.rs.Active() {
		switch r.Kind {
		case rules.KindFairTotalHours:
			b.encodeFairTotalHours(r)
		case rules.KindFairWeekendOffs:
			b.addFairness(r, b.weekendVarsPerEmployee())
		case rules.KindFairSpecialClinics:
			b.addFairness(r, b.specialClinicVarsPerEmployee(r.Param1))
		case rules.KindFairShiftTypes:
			for _, s := range model.AllShifts {
				b.addFairness(r, b.shiftTypeVarsPerEmployee(s))
			}
		case rules.KindSatisfyPreferredLeave:
			b.encodePreferredLeave(r)
		case rules.KindPromoteConsecutiveOffs:
			b.encodeConsecutiveOffs(r)
		case rules.KindAvoidHighFatigue:
			b.encodeHighFatigue(r)
		case rules.KindSeniorCoverage:
			b.encodeSeniorCoverage(r)
		case rules.KindPenalizeOvertime:
			b.encodeOvertime(r)
		case rules.KindNursingHeadSupportRatio:
			b.encodeSupportRatio(r)
		case rules.KindConsecutiveDaysMax:
			b.encodeConsecutiveDaysMax(r)
		case rules.KindConsecutiveDaysMin:
			b.encodeConsecutiveDaysMin(r)
		case rules.KindWeeklyHoursMax:
			b.encodeWeeklyHours(r, true)
		case rules.KindWeeklyHoursMin:
			b.encodeWeeklyHours(r, false)
		}
	}
}

// addFairness 公平性惩罚：每位员工的指标对全员均值的绝对偏差
// 偏差乘以员工总数保持整数；均值分母含无变量员工
func (b *builder) addFairness(r *rules.Rule, perEmployee [][]solver.BoolVar) {
	den := int64(len(b.snap.Employees))
	if den == 0 {
		return
	}
	any := false
	for _, vars := range perEmployee {
		if len(vars) > 0 {
			any = true
			break
		}
	}
	if !any {
		return
	}

	var all []solver.BoolVar
	for _, vars := range perEmployee {
		all = append(all, vars...)
	}

	for ei, vars := range perEmployee {
		if len(vars) == 0 {
			continue
		}
		// sum(emp)*den - sum(all) == dev
		expr := solver.NewLinearExpr()
		for _, v := range vars {
			expr.AddBool(v, den)
		}
		for _, v := range all {
			expr.AddBool(v, -1)
		}
		dev := b.m.NewInt(fmt.Sprintf("dev_%s_e%d", r.Kind, ei), -1000*den, 1000*den)
		expr.AddInt(dev, -1)
		b.m.AddLinear(expr, solver.OpEQ, 0)

		absDev := b.m.NewInt(fmt.Sprintf("abs_dev_%s_e%d", r.Kind, ei), 0, 1000*den)
		b.m.AddAbsEquality(absDev, dev)
		b.obj.AddAbsDeviation(string(r.Kind), int64(r.Weight), absDev)
	}
}

// encodeFairTotalHours 总工时公平
// 与其它公平规则不同：无变量员工也计入偏差项，时数 ×100 取整
func (b *builder) encodeFairTotalHours(r *rules.Rule) {
	den := int64(len(b.snap.Employees))
	if den == 0 {
		return
	}

	hourTerms := make([][]solver.BoolTerm, len(b.snap.Employees))
	var allTerms []solver.BoolTerm
	for ei := range b.snap.Employees {
		for ki, slot := range b.snap.Demand {
			v, ok := b.x[varKey{ei, ki}]
			if !ok {
				continue
			}
			t := solver.BoolTerm{Lit: v.Lit(), Coeff: int64(b.snap.ShiftHours.ScaledHours(slot.Key.Shift))}
			hourTerms[ei] = append(hourTerms[ei], t)
			allTerms = append(allTerms, t)
		}
	}

	bound := 100000 * den
	for ei := range b.snap.Employees {
		expr := solver.NewLinearExpr()
		for _, t := range hourTerms[ei] {
			expr.AddLit(t.Lit, t.Coeff*den)
		}
		for _, t := range allTerms {
			expr.AddLit(t.Lit, -t.Coeff)
		}
		dev := b.m.NewInt(fmt.Sprintf("dev_hours_e%d", ei), -bound, bound)
		expr.AddInt(dev, -1)
		b.m.AddLinear(expr, solver.OpEQ, 0)

		absDev := b.m.NewInt(fmt.Sprintf("abs_dev_hours_e%d", ei), 0, bound)
		b.m.AddAbsEquality(absDev, dev)
		b.obj.AddAbsDeviation(string(r.Kind), int64(r.Weight), absDev)
	}
}

// encodePreferredLeave 偏好休假日仍在班的惩罚
func (b *builder) encodePreferredLeave(r *rules.Rule) {
	for di, d := range b.dates {
		for ei, e := range b.snap.Employees {
			if b.preferredOff[[2]string{d, e.ID}] {
				b.obj.AddIndicator(string(r.Kind), int64(r.Weight), b.working[ei][di])
			}
		}
	}
}

// encodeConsecutiveOffs 连续休假奖励：上班→休→休 模式
func (b *builder) encodeConsecutiveOffs(r *rules.Rule) {
	for ei := range b.snap.Employees {
		for i := 0; i+2 < len(b.dates); i++ {
			promo := b.m.NewBool(fmt.Sprintf("promo_off_e%d_d%d", ei, i))
			b.m.AddReifiedAnd(promo, []solver.Literal{
				b.working[ei][i].Lit(),
				b.working[ei][i+1].Not(),
				b.working[ei][i+2].Not(),
			})
			b.obj.AddIndicator(string(r.Kind), -int64(r.Weight), promo)
		}
	}
}

// encodeHighFatigue 连续高疲劳班惩罚
// 窗口内每天都存在疲劳指数达阈值的指派时记一次违规
func (b *builder) encodeHighFatigue(r *rules.Rule) {
	threshold := r.Fatigue
	limit := r.Limit
	for ei := range b.snap.Employees {
		for i := 0; i < len(b.dates)-limit; i++ {
			lits := make([]solver.Literal, 0, limit+1)
			empty := false
			for j := 0; j <= limit; j++ {
				d := b.dates[i+j]
				var dayVars []solver.BoolVar
				for ki, slot := range b.snap.Demand {
					if slot.Key.Date != d || slot.FatigueIndex < threshold {
						continue
					}
					if v, ok := b.x[varKey{ei, ki}]; ok {
						dayVars = append(dayVars, v)
					}
				}
				if len(dayVars) == 0 {
					empty = true
					break
				}
				hfd := b.m.NewBool(fmt.Sprintf("hfd_e%d_d%d_j%d", ei, i, j))
				b.m.AddReifiedAnyTrue(hfd, dayVars)
				lits = append(lits, hfd.Lit())
			}
			if empty {
				// 窗口内存在不可能高疲劳的日子，违规不可能成立
				continue
			}
			violation := b.m.NewBool(fmt.Sprintf("fatigue_vio_e%d_d%d", ei, i))
			b.m.AddReifiedAnd(violation, lits)
			b.obj.AddIndicator(string(r.Kind), int64(r.Weight), violation)
		}
	}
}

// encodeSeniorCoverage 资深人员覆盖
// 每 (日期, 班别) 在班资深人数低于要求时按缺额惩罚
func (b *builder) encodeSeniorCoverage(r *rules.Rule) {
	skill := r.Param1
	required := int64(r.Limit)
	if required <= 0 {
		return
	}

	for _, d := range b.dates {
		for _, s := range model.AllShifts {
			var seniors []solver.BoolVar
			for ei, e := range b.snap.Employees {
				if !containsExact(e.Skills, skill) {
					continue
				}
				vars := b.varsForShift(ei, d, s)
				if len(vars) == 0 {
					continue
				}
				sw := b.m.NewBool(fmt.Sprintf("senior_e%d_%s_%s", ei, d, s))
				b.m.AddReifiedAnyTrue(sw, vars)
				seniors = append(seniors, sw)
			}
			if len(seniors) == 0 {
				continue
			}
			underCov := b.m.NewInt(fmt.Sprintf("senior_under_%s_%s", d, s), 0, required)
			// under >= required - sum(seniors)
			expr := solver.NewLinearExpr().AddInt(underCov, -1)
			for _, sw := range seniors {
				expr.AddBool(sw, -1)
			}
			b.m.AddLinear(expr, solver.OpLE, -required)
			b.obj.AddLinear(string(r.Kind), int64(r.Weight), solver.NewLinearExpr().AddInt(underCov, 1))
		}
	}
}

// encodeOvertime 超出目标工时的惩罚，时数 ×100
func (b *builder) encodeOvertime(r *rules.Rule) {
	for ei, e := range b.snap.Employees {
		if e.TargetHours <= 0 {
			continue
		}
		expr := b.hoursExpr(ei, nil)
		if expr.Empty() {
			continue
		}
		over := b.m.NewInt(fmt.Sprintf("overtime_e%d", ei), 0, 100000)
		// over >= hours - target*100
		expr.AddInt(over, -1)
		b.m.AddLinear(expr, solver.OpLE, int64(e.TargetHours)*100)
		b.obj.AddLinear(string(r.Kind), int64(r.Weight), solver.NewLinearExpr().AddInt(over, 1))
	}
}

// encodeSupportRatio 护理长支援佔比
// 分母取输入中预排班与行政班的固定总数，避免退化为 0/0
func (b *builder) encodeSupportRatio(r *rules.Rule) {
	ratioPct := int64(r.Ratio * 100)

	fixedTotal := make(map[string]int64)
	headNurse := make(map[string]bool)
	for _, e := range b.snap.Employees {
		if e.IsHeadNurse() {
			headNurse[e.ID] = true
		}
	}
	for _, pa := range b.snap.PreAssignments {
		if headNurse[pa.EmployeeID] {
			fixedTotal[pa.EmployeeID]++
		}
	}
	for _, h := range b.snap.AdminAssignments {
		if headNurse[h.EmployeeID] {
			fixedTotal[h.EmployeeID]++
		}
	}

	for ei, e := range b.snap.Employees {
		if !r.AppliesTo(e.ID) {
			continue
		}
		total := fixedTotal[e.ID]
		if total == 0 {
			continue
		}

		// 支援班 = 非行政崗位的求解器指派
		expr := solver.NewLinearExpr()
		for ki, slot := range b.snap.Demand {
			if slot.Key.Post == model.AdminPost {
				continue
			}
			if v, ok := b.x[varKey{ei, ki}]; ok {
				expr.AddBool(v, 100)
			}
		}

		dev := b.m.NewInt(fmt.Sprintf("ratio_dev_e%d", ei), -100*total, 100*total)
		expr.AddInt(dev, -1)
		b.m.AddLinear(expr, solver.OpEQ, ratioPct*total)

		absDev := b.m.NewInt(fmt.Sprintf("abs_ratio_dev_e%d", ei), 0, 100*total)
		b.m.AddAbsEquality(absDev, dev)
		b.obj.AddAbsDeviation(string(r.Kind), int64(r.Weight), absDev)
	}
}

// encodeConsecutiveDaysMax 连续工作天数上限
// 任意 limit+1 天窗口全在班即违规
func (b *builder) encodeConsecutiveDaysMax(r *rules.Rule) {
	limit := r.Limit
	for ei, e := range b.snap.Employees {
		if !r.AppliesTo(e.ID) {
			continue
		}
		for i := 0; i < len(b.dates)-limit; i++ {
			lits := make([]solver.Literal, 0, limit+1)
			for j := 0; j <= limit; j++ {
				lits = append(lits, b.working[ei][i+j].Lit())
			}
			violation := b.m.NewBool(fmt.Sprintf("consecutive_max_e%d_d%d", ei, i))
			b.m.AddReifiedAnd(violation, lits)
			b.obj.AddIndicator(string(r.Kind), int64(r.Weight), violation)
		}
	}
}

// encodeConsecutiveDaysMin 连续工作天数下限
// 扫描 (起点, 子长度) 窗口：起点在班、终点休息、中间全在班即违规。
// 同一段短班可能被多个窗口重复计数，此为既有行为
func (b *builder) encodeConsecutiveDaysMin(r *rules.Rule) {
	limit := r.Limit
	for ei, e := range b.snap.Employees {
		if !r.AppliesTo(e.ID) {
			continue
		}
		for i := 0; i < len(b.dates)-limit+1; i++ {
			for k := 1; k < limit; k++ {
				if i+k >= len(b.dates) {
					continue
				}
				lits := []solver.Literal{
					b.working[ei][i].Lit(),
					b.working[ei][i+k].Not(),
				}
				for j := 1; j < k; j++ {
					lits = append(lits, b.working[ei][i+j].Lit())
				}
				violation := b.m.NewBool(fmt.Sprintf("consecutive_min_e%d_d%d_k%d", ei, i, k))
				b.m.AddReifiedAnd(violation, lits)
				b.obj.AddIndicator(string(r.Kind), int64(r.Weight), violation)
			}
		}
	}
}

// encodeWeeklyHours 每週工時上下限，按 ISO 周分组，时数 ×100
func (b *builder) encodeWeeklyHours(r *rules.Rule, isMax bool) {
	limit := int64(r.Hours * 100)
	weeks := b.weekGroups()

	for ei, e := range b.snap.Employees {
		if !r.AppliesTo(e.ID) {
			continue
		}
		for _, week := range weeks {
			expr := b.hoursExpr(ei, week.dates)
			if expr.Empty() {
				continue
			}
			if isMax {
				over := b.m.NewInt(fmt.Sprintf("over_hours_e%d_w%d", ei, week.num), 0, 100000)
				// over >= hours - limit
				expr.AddInt(over, -1)
				b.m.AddLinear(expr, solver.OpLE, limit)
				b.obj.AddLinear(string(r.Kind), int64(r.Weight), solver.NewLinearExpr().AddInt(over, 1))
			} else {
				under := b.m.NewInt(fmt.Sprintf("under_hours_e%d_w%d", ei, week.num), 0, 100000)
				// under >= limit - hours
				neg := solver.NewLinearExpr().AddInt(under, -1)
				for _, t := range expr.Bools {
					neg.AddLit(t.Lit, -t.Coeff)
				}
				b.m.AddLinear(neg, solver.OpLE, -limit)
				b.obj.AddLinear(string(r.Kind), int64(r.Weight), solver.NewLinearExpr().AddInt(under, 1))
			}
		}
	}
}

// hoursExpr 员工在指定日期集合（nil 为全周期）内的 ×100 工时表达式
func (b *builder) hoursExpr(ei int, dates map[string]bool) *solver.LinearExpr {
	expr := solver.NewLinearExpr()
	for ki, slot := range b.snap.Demand {
		if dates != nil && !dates[slot.Key.Date] {
			continue
		}
		if v, ok := b.x[varKey{ei, ki}]; ok {
			expr.AddBool(v, int64(b.snap.ShiftHours.ScaledHours(slot.Key.Shift)))
		}
	}
	return expr
}

type weekGroup struct {
	num   int
	dates map[string]bool
}

// weekGroups 按 ISO 周号分组的排班日期，周号升序
func (b *builder) weekGroups() []weekGroup {
	byWeek := make(map[int]map[string]bool)
	for _, d := range b.dates {
		w := model.ISOWeek(d)
		if byWeek[w] == nil {
			byWeek[w] = make(map[string]bool)
		}
		byWeek[w][d] = true
	}
	nums := make([]int, 0, len(byWeek))
	for w := range byWeek {
		nums = append(nums, w)
	}
	sort.Ints(nums)
	out := make([]weekGroup, 0, len(nums))
	for _, w := range nums {
		out = append(out, weekGroup{num: w, dates: byWeek[w]})
	}
	return out
}

// weekendVarsPerEmployee 周末班变量按员工分组
func (b *builder) weekendVarsPerEmployee() [][]solver.BoolVar {
	out := make([][]solver.BoolVar, len(b.snap.Employees))
	for ei := range b.snap.Employees {
		for ki, slot := range b.snap.Demand {
			if !model.IsWeekend(slot.Key.Date) {
				continue
			}
			if v, ok := b.x[varKey{ei, ki}]; ok {
				out[ei] = append(out[ei], v)
			}
		}
	}
	return out
}

// specialClinicVarsPerEmployee 指定特殊诊类型的班变量按员工分组
func (b *builder) specialClinicVarsPerEmployee(postType string) [][]solver.BoolVar {
	out := make([][]solver.BoolVar, len(b.snap.Employees))
	for ei := range b.snap.Employees {
		for ki, slot := range b.snap.Demand {
			if !strings.Contains(slot.PostType, "特殊") || slot.PostType != postType {
				continue
			}
			if v, ok := b.x[varKey{ei, ki}]; ok {
				out[ei] = append(out[ei], v)
			}
		}
	}
	return out
}

// shiftTypeVarsPerEmployee 指定班别的变量按员工分组
func (b *builder) shiftTypeVarsPerEmployee(s model.Shift) [][]solver.BoolVar {
	out := make([][]solver.BoolVar, len(b.snap.Employees))
	for ei := range b.snap.Employees {
		for ki, slot := range b.snap.Demand {
			if slot.Key.Shift != s {
				continue
			}
			if v, ok := b.x[varKey{ei, ki}]; ok {
				out[ei] = append(out[ei], v)
			}
		}
	}
	return out
}
