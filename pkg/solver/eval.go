package solver

import "fmt"

// derivation 派生布尔变量的求值规则
type derivation struct {
	b     BoolVar
	isAnd bool
	lits  []Literal // isAnd 时使用
	vars  []BoolVar // 非 isAnd（任一为真）时使用
}

// evaluator 给定判定变量赋值后推导派生变量与整数变量，
// 检查全部约束并计算目标值
type evaluator struct {
	m         *Model
	isDerived []bool
	order     []derivation
	decisions []BoolVar
}

// newEvaluator 预处理模型：区分判定变量与派生变量并做拓扑排序
func newEvaluator(m *Model) (*evaluator, error) {
	ev := &evaluator{m: m, isDerived: make([]bool, m.NumBools())}

	pending := make([]derivation, 0, len(m.anyDefs)+len(m.andDefs))
	for _, d := range m.anyDefs {
		if ev.isDerived[d.b] {
			return nil, fmt.Errorf("变量 %s 被重复具体化", m.BoolName(d.b))
		}
		ev.isDerived[d.b] = true
		pending = append(pending, derivation{b: d.b, vars: d.vars})
	}
	for _, d := range m.andDefs {
		if ev.isDerived[d.b] {
			return nil, fmt.Errorf("变量 %s 被重复具体化", m.BoolName(d.b))
		}
		ev.isDerived[d.b] = true
		pending = append(pending, derivation{b: d.b, isAnd: true, lits: d.lits})
	}

	// 拓扑排序：依赖项全部就绪的派生规则依次出列
	ready := make([]bool, m.NumBools())
	for i := range ready {
		ready[i] = !ev.isDerived[i]
	}
	for len(pending) > 0 {
		progress := false
		rest := pending[:0]
		for _, d := range pending {
			if derivationReady(d, ready) {
				ev.order = append(ev.order, d)
				ready[d.b] = true
				progress = true
			} else {
				rest = append(rest, d)
			}
		}
		pending = rest
		if !progress {
			return nil, fmt.Errorf("具体化定义存在循环依赖 (%s)", m.BoolName(pending[0].b))
		}
	}

	for i := 0; i < m.NumBools(); i++ {
		if !ev.isDerived[i] {
			ev.decisions = append(ev.decisions, BoolVar(i))
		}
	}
	return ev, nil
}

func derivationReady(d derivation, ready []bool) bool {
	if d.isAnd {
		for _, l := range d.lits {
			if !ready[l.Var] {
				return false
			}
		}
		return true
	}
	for _, v := range d.vars {
		if !ready[v] {
			return false
		}
	}
	return true
}

// evalResult 一次求值的完整结果
type evalResult struct {
	bools      []bool
	ints       []int64
	objective  int64
	violations int
}

// feasible 全部约束满足
func (r *evalResult) feasible() bool { return r.violations == 0 }

// 搜索打分：目标值加上硬约束违反的大额惩罚
const violationPenalty = int64(1) << 40

func (r *evalResult) score() int64 {
	return r.objective + int64(r.violations)*violationPenalty
}

// evaluate 对一组判定变量赋值求值
// decisions 与 ev.decisions 顺序一一对应
func (ev *evaluator) evaluate(decisions []bool) *evalResult {
	m := ev.m
	bools := make([]bool, m.NumBools())
	for i, v := range ev.decisions {
		bools[v] = decisions[i]
	}

	// 推导派生布尔变量
	for _, d := range ev.order {
		if d.isAnd {
			val := true
			for _, l := range d.lits {
				if !litVal(l, bools) {
					val = false
					break
				}
			}
			bools[d.b] = val
		} else {
			val := false
			for _, v := range d.vars {
				if bools[v] {
					val = true
					break
				}
			}
			bools[d.b] = val
		}
	}

	res := &evalResult{bools: bools}
	res.ints, res.violations = ev.resolveInts(bools)
	res.violations += ev.check(bools, res.ints)
	res.objective = evalExpr(m.objective, bools, res.ints)
	return res
}

// resolveInts 通过约束传播推导整数变量取值
// 等式中恰有一个未知整数时精确求解；不等式只提供下界，
// 最小化目标下取下界即为最优
func (ev *evaluator) resolveInts(bools []bool) ([]int64, int) {
	m := ev.m
	n := m.NumInts()
	vals := make([]int64, n)
	known := make([]bool, n)
	lower := make([]int64, n)
	for i, d := range m.ints {
		lower[i] = d.lo
	}
	violations := 0

	propagate := func() {
		for changed := true; changed; {
			changed = false
			for _, c := range m.linears {
				if c.op != OpEQ || !ev.active(c.enforce, bools) {
					continue
				}
				v, coeff, rest, ok := singleUnknownInt(c.expr, known, bools, vals)
				if !ok || known[v] {
					continue
				}
				num := c.rhs - rest
				if num%coeff != 0 {
					violations++
					known[v] = true
					continue
				}
				vals[v] = num / coeff
				known[v] = true
				changed = true
			}
			for _, a := range m.abs {
				if known[a.source] && !known[a.target] {
					s := vals[a.source]
					if s < 0 {
						s = -s
					}
					vals[a.target] = s
					known[a.target] = true
					changed = true
				}
			}
		}
	}

	propagate()

	// 不等式下界：约束中唯一未知整数的系数决定界的方向
	for _, c := range m.linears {
		if c.op == OpEQ || !ev.active(c.enforce, bools) {
			continue
		}
		v, coeff, rest, ok := singleUnknownInt(c.expr, known, bools, vals)
		if !ok || known[v] {
			continue
		}
		// expr op rhs 即 coeff*v + rest op rhs
		// 仅提取下界，上界由最终校验兜底
		num := c.rhs - rest
		var bound int64
		switch {
		case c.op == OpGE && coeff > 0:
			bound = ceilDiv(num, coeff)
		case c.op == OpLE && coeff < 0:
			bound = ceilDiv(num, coeff)
		default:
			continue
		}
		if bound > lower[v] {
			lower[v] = bound
		}
	}

	for i := 0; i < n; i++ {
		if !known[i] {
			vals[i] = lower[i]
			known[i] = true
		}
	}
	// 新确定的取值可能解锁剩余等式
	propagate()

	return vals, violations
}

// ceilDiv 向上取整除法，对任意符号组合成立
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

// singleUnknownInt 表达式中恰有一个未知整数变量时返回它
// 返回 (变量, 合并系数, 其余已知部分之和, 是否恰好一个未知)
func singleUnknownInt(e *LinearExpr, known []bool, bools []bool, vals []int64) (IntVar, int64, int64, bool) {
	rest := e.Offset
	for _, t := range e.Bools {
		if litVal(t.Lit, bools) {
			rest += t.Coeff
		}
	}
	var target IntVar = -1
	var coeff int64
	for _, t := range e.Ints {
		if known[t.Var] {
			rest += t.Coeff * vals[t.Var]
			continue
		}
		if target >= 0 && target != t.Var {
			return -1, 0, 0, false
		}
		target = t.Var
		coeff += t.Coeff
	}
	if target < 0 || coeff == 0 {
		return -1, 0, 0, false
	}
	return target, coeff, rest, true
}

// check 校验全部约束与变量域
func (ev *evaluator) check(bools []bool, ints []int64) int {
	m := ev.m
	violations := 0

	for i, d := range m.ints {
		if ints[i] < d.lo || ints[i] > d.hi {
			violations++
		}
	}
	for _, c := range m.linears {
		if !ev.active(c.enforce, bools) {
			continue
		}
		v := evalExpr(c.expr, bools, ints)
		ok := false
		switch c.op {
		case OpEQ:
			ok = v == c.rhs
		case OpLE:
			ok = v <= c.rhs
		case OpGE:
			ok = v >= c.rhs
		}
		if !ok {
			violations++
		}
	}
	for _, c := range m.clauses {
		if !ev.active(c.enforce, bools) {
			continue
		}
		if c.isAnd {
			for _, l := range c.lits {
				if !litVal(l, bools) {
					violations++
					break
				}
			}
		} else {
			sat := false
			for _, l := range c.lits {
				if litVal(l, bools) {
					sat = true
					break
				}
			}
			if !sat {
				violations++
			}
		}
	}
	for _, a := range m.abs {
		s := ints[a.source]
		if s < 0 {
			s = -s
		}
		if ints[a.target] != s {
			violations++
		}
	}
	return violations
}

// active 执行文字全部为真时约束生效
func (ev *evaluator) active(enforce []Literal, bools []bool) bool {
	for _, l := range enforce {
		if !litVal(l, bools) {
			return false
		}
	}
	return true
}

func litVal(l Literal, bools []bool) bool {
	v := bools[l.Var]
	if l.Neg {
		return !v
	}
	return v
}

// evalExpr 求表达式取值
func evalExpr(e *LinearExpr, bools []bool, ints []int64) int64 {
	sum := e.Offset
	for _, t := range e.Bools {
		if litVal(t.Lit, bools) {
			sum += t.Coeff
		}
	}
	for _, t := range e.Ints {
		sum += t.Coeff * ints[t.Var]
	}
	return sum
}
