// Package scheduler 构建排班约束模型并驱动求解全流程
package scheduler

import (
	"fmt"
	"strings"

	"github.com/ariscare/roster/pkg/logger"
	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/normalize"
	"github.com/ariscare/roster/pkg/rules"
	"github.com/ariscare/roster/pkg/solver"
)

// 覆盖类惩罚相对其它惩罚的放大倍数，
// 保证求解器先穷尽其它取舍再留缺口或超编
const coverageScale = 10000

type varKey struct {
	ei int // 员工下标
	ki int // 需求时段下标
}

type onKey struct {
	ei    int
	di    int
	shift model.Shift
}

// builder 单次求解的模型构建器，调用间不共享
type builder struct {
	snap *model.Snapshot
	rs   *rules.RuleSet
	log  *logger.SolveLogger

	m   *solver.Model
	obj *Objective

	dates   []string
	dateIdx map[string]int
	weekday map[string]string

	x       map[varKey]solver.BoolVar
	over    []solver.IntVar
	under   []solver.IntVar
	working [][]solver.BoolVar // [ei][di]
	onShift map[onKey]solver.BoolVar

	hardOff      map[[2]string]bool
	preferredOff map[[2]string]bool
}

func newBuilder(snap *model.Snapshot, rs *rules.RuleSet, log *logger.SolveLogger) *builder {
	b := &builder{
		snap:    snap,
		rs:      rs,
		log:     log,
		m:       solver.NewModel(),
		obj:     NewObjective(),
		dates:   snap.Dates,
		dateIdx: make(map[string]int, len(snap.Dates)),
		weekday: make(map[string]string, len(snap.Dates)),
		x:       make(map[varKey]solver.BoolVar),
		onShift: make(map[onKey]solver.BoolVar),
	}
	for i, d := range snap.Dates {
		b.dateIdx[d] = i
		b.weekday[d] = model.Weekday(d)
	}
	b.hardOff = snap.HardOffSet()
	b.preferredOff = snap.PreferredOffSet()
	return b
}

// build 构建完整约束模型
func (b *builder) build() *solver.Model {
	b.createVariables()
	b.addPreAssignmentConstraints()
	b.addCoverage()
	b.addWorkingIndicators()
	b.addShiftPatterns()
	b.encodeRules()
	b.obj.Lower(b.m)
	return b.m
}

// createVariables 按合格性过滤创建决策变量
// 过滤顺序：崗位合格、技能交集、硬性休假、可上日期、可上班别，
// 任一不满足即不建变量
func (b *builder) createVariables() {
	for ei, e := range b.snap.Employees {
		availDates := toSet(e.AvailableDates)
		availShifts := toSet(e.AvailableShifts)
		for ki, slot := range b.snap.Demand {
			key := slot.Key
			if !normalize.EligibleOK(e.EligiblePosts, key.Post) {
				continue
			}
			if !normalize.SkillsOK(e.Skills, slot.RequiredSkills) {
				continue
			}
			if b.hardOff[[2]string{key.Date, e.ID}] {
				continue
			}
			if !availDates[key.Date] {
				continue
			}
			if !availShifts[key.Shift] {
				continue
			}

			v := b.m.NewBool(fmt.Sprintf("x_e%d_k%d", ei, ki))
			b.x[varKey{ei, ki}] = v

			b.addPerVariablePenalties(e, slot, v)
		}
	}
}

// addPerVariablePenalties 逐变量的简单惩罚项
func (b *builder) addPerVariablePenalties(e *model.Employee, slot *model.DemandSlot, v solver.BoolVar) {
	// 未具备偏好技能（需求技能列表首项）的指派
	if len(slot.RequiredSkills) > 1 {
		primary := slot.RequiredSkills[0]
		if !containsExact(e.Skills, primary) {
			b.obj.AddIndicator("skill_preference_mismatch", int64(b.rs.Penalties.SkillPreference), v)
		}
	}

	for _, r := range b.rs.Active() {
		w := int64(r.Weight)
		switch r.Kind {
		case rules.KindPenalizeDayOfWeek:
			if strings.EqualFold(b.weekday[slot.Key.Date], r.Param1) {
				b.obj.AddIndicator(string(r.Kind), w, v)
			}
		case rules.KindPenalizeEmployeePost:
			if e.ID == r.Param1 && slot.Key.Post == r.Param2 {
				b.obj.AddIndicator(string(r.Kind), w, v)
			}
		case rules.KindPenalizeEmployeeShift:
			if e.ID == r.Param1 && slot.Key.Shift == normalize.PickShift(r.Param2) {
				b.obj.AddIndicator(string(r.Kind), w, v)
			}
		case rules.KindPreferEmployeePost:
			// 偏好是奖励，取负权重
			if e.ID == r.Param1 && slot.Key.Post == r.Param2 {
				b.obj.AddIndicator(string(r.Kind), -w, v)
			}
		}
	}
}

// addPreAssignmentConstraints 预排班硬约束
// 引用不到任何变量的约束跳过并记录，不视为致命错误
func (b *builder) addPreAssignmentConstraints() {
	empIdx := make(map[string]int, len(b.snap.Employees))
	for i, e := range b.snap.Employees {
		empIdx[e.ID] = i
	}
	headNurse := make(map[string]bool)
	for _, e := range b.snap.Employees {
		if e.IsHeadNurse() {
			headNurse[e.ID] = true
		}
	}

	// 机动支援班：护理长最多排 1 个崗位，是否支援由求解器决定
	for _, pa := range b.snap.PreAssignments {
		ei, ok := empIdx[pa.EmployeeID]
		if !ok || !pa.SupportAllowed {
			continue
		}
		vars := b.varsForShift(ei, pa.Date, pa.Shift)
		if len(vars) == 0 {
			b.log.ConstraintSkipped("support", pa.Date, pa.EmployeeID)
			continue
		}
		b.m.AddLinear(solver.Sum(vars), solver.OpLE, 1)
	}

	// 固定行政班：护理长该班别不得被排任何崗位
	for _, h := range b.snap.AdminAssignments {
		ei, ok := empIdx[h.EmployeeID]
		if !ok {
			continue
		}
		vars := b.varsForShift(ei, h.Date, h.Shift)
		if len(vars) == 0 {
			b.log.ConstraintSkipped("admin", h.Date, h.EmployeeID)
			continue
		}
		b.m.AddLinear(solver.Sum(vars), solver.OpEQ, 0)
	}

	// 普通员工预排班：恰排 1 个崗位
	for _, pa := range b.snap.PreAssignments {
		if headNurse[pa.EmployeeID] {
			continue
		}
		ei, ok := empIdx[pa.EmployeeID]
		if !ok {
			continue
		}
		vars := b.varsForShift(ei, pa.Date, pa.Shift)
		if len(vars) == 0 {
			b.log.ConstraintSkipped("forced", pa.Date, pa.EmployeeID)
			continue
		}
		b.m.AddLinear(solver.Sum(vars), solver.OpEQ, 1)
	}
}

// addCoverage 每个需求时段的超编/缺口变量与覆盖惩罚
func (b *builder) addCoverage() {
	pUnmet := int64(b.rs.Penalties.UnmetDemand) * coverageScale
	pOver := int64(b.rs.Penalties.OverStaffing) * coverageScale

	b.over = make([]solver.IntVar, len(b.snap.Demand))
	b.under = make([]solver.IntVar, len(b.snap.Demand))

	for ki, slot := range b.snap.Demand {
		over := b.m.NewInt(fmt.Sprintf("over_%d", ki), 0, 1000)
		under := b.m.NewInt(fmt.Sprintf("under_%d", ki), 0, 1000)
		b.over[ki] = over
		b.under[ki] = under

		vars := b.varsForSlot(ki)
		dem := int64(slot.Demand)

		// over >= assigned - demand
		overExpr := solver.Sum(vars).AddInt(over, -1)
		b.m.AddLinear(overExpr, solver.OpLE, dem)
		// under >= demand - assigned
		underExpr := solver.NewLinearExpr().AddInt(under, -1)
		for _, v := range vars {
			underExpr.AddBool(v, -1)
		}
		b.m.AddLinear(underExpr, solver.OpLE, -dem)

		b.obj.AddLinear("unmet_demand", pUnmet, solver.NewLinearExpr().AddInt(under, 1))
		b.obj.AddLinear("over_staffing", pOver, solver.NewLinearExpr().AddInt(over, 1))
	}
}

// addWorkingIndicators 每 (员工, 日期) 的在班指示变量与硬性上限
func (b *builder) addWorkingIndicators() {
	b.working = make([][]solver.BoolVar, len(b.snap.Employees))
	for ei := range b.snap.Employees {
		b.working[ei] = make([]solver.BoolVar, len(b.dates))
		for di, d := range b.dates {
			perDay := b.varsForDay(ei, d)
			w := b.m.NewBool(fmt.Sprintf("is_working_e%d_d%d", ei, di))
			b.working[ei][di] = w
			if len(perDay) == 0 {
				b.m.FixBool(w, false)
				continue
			}
			b.m.AddReifiedAnyTrue(w, perDay)
			// 每日最多 3 段班
			b.m.AddLinear(solver.Sum(perDay), solver.OpLE, 3)

			// 同一班别最多 1 个崗位
			for _, s := range model.AllShifts {
				sameShift := b.varsForShift(ei, d, s)
				if len(sameShift) > 1 {
					b.m.AddLinear(solver.Sum(sameShift), solver.OpLE, 1)
				}
			}
		}
	}
}

// addShiftPatterns 每日班别组合的指示变量与惩罚
// 早晚分隔班 (A+C) 始终惩罚；连续两段班奖励与三段班惩罚按规则启用
func (b *builder) addShiftPatterns() {
	promote := b.rs.First(rules.KindPromoteConsecutiveShifts)
	triple := b.rs.First(rules.KindPenalizeTripleShifts)

	for ei := range b.snap.Employees {
		for di, d := range b.dates {
			varsA := b.varsForShift(ei, d, model.ShiftA)
			varsB := b.varsForShift(ei, d, model.ShiftB)
			varsC := b.varsForShift(ei, d, model.ShiftC)
			if len(varsA) == 0 && len(varsB) == 0 && len(varsC) == 0 {
				continue
			}

			onA := b.reifyOnShift(ei, di, model.ShiftA, varsA)
			onB := b.reifyOnShift(ei, di, model.ShiftB, varsB)
			onC := b.reifyOnShift(ei, di, model.ShiftC, varsC)

			onAC := b.m.NewBool(fmt.Sprintf("on_ac_e%d_d%d", ei, di))
			b.m.AddReifiedAnd(onAC, []solver.Literal{onA.Lit(), onC.Lit()})
			b.obj.AddIndicator("split_shift", int64(b.rs.Penalties.SplitShift), onAC)

			if promote != nil {
				onAB := b.m.NewBool(fmt.Sprintf("on_ab_e%d_d%d", ei, di))
				b.m.AddReifiedAnd(onAB, []solver.Literal{onA.Lit(), onB.Lit()})
				b.obj.AddIndicator(string(rules.KindPromoteConsecutiveShifts), -int64(promote.Weight), onAB)

				onBC := b.m.NewBool(fmt.Sprintf("on_bc_e%d_d%d", ei, di))
				b.m.AddReifiedAnd(onBC, []solver.Literal{onB.Lit(), onC.Lit()})
				b.obj.AddIndicator(string(rules.KindPromoteConsecutiveShifts), -int64(promote.Weight), onBC)
			}

			if triple != nil {
				onABC := b.m.NewBool(fmt.Sprintf("on_abc_e%d_d%d", ei, di))
				b.m.AddReifiedAnd(onABC, []solver.Literal{onA.Lit(), onB.Lit(), onC.Lit()})
				b.obj.AddIndicator(string(rules.KindPenalizeTripleShifts), int64(triple.Weight), onABC)
			}
		}
	}
}

func (b *builder) reifyOnShift(ei, di int, s model.Shift, vars []solver.BoolVar) solver.BoolVar {
	v := b.m.NewBool(fmt.Sprintf("on_%s_e%d_d%d", strings.ToLower(s), ei, di))
	b.m.AddReifiedAnyTrue(v, vars)
	b.onShift[onKey{ei, di, s}] = v
	return v
}

// varsForSlot 指定需求时段的全部决策变量
func (b *builder) varsForSlot(ki int) []solver.BoolVar {
	var out []solver.BoolVar
	for ei := range b.snap.Employees {
		if v, ok := b.x[varKey{ei, ki}]; ok {
			out = append(out, v)
		}
	}
	return out
}

// varsForDay 员工在指定日期的全部决策变量
func (b *builder) varsForDay(ei int, date string) []solver.BoolVar {
	var out []solver.BoolVar
	for ki, slot := range b.snap.Demand {
		if slot.Key.Date != date {
			continue
		}
		if v, ok := b.x[varKey{ei, ki}]; ok {
			out = append(out, v)
		}
	}
	return out
}

// varsForShift 员工在指定 (日期, 班别) 的全部决策变量
func (b *builder) varsForShift(ei int, date string, s model.Shift) []solver.BoolVar {
	var out []solver.BoolVar
	for ki, slot := range b.snap.Demand {
		if slot.Key.Date != date || slot.Key.Shift != s {
			continue
		}
		if v, ok := b.x[varKey{ei, ki}]; ok {
			out = append(out, v)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
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
