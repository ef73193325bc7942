package solver

import (
	"context"
	"testing"
	"time"
)

func newTestSolver() *Solver {
	return New(Config{TimeLimit: 5 * time.Second, Workers: 2, Seed: 42})
}

func TestSolveSimpleOptimal(t *testing.T) {
	// 两个变量，至少一个为真，各带不同代价
	m := NewModel()
	a := m.NewBool("a")
	b := m.NewBool("b")
	m.AddLinear(Sum([]BoolVar{a, b}), OpGE, 1)
	m.MinimizeBool(a, 10)
	m.MinimizeBool(b, 3)

	res, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("状态 = %s, 期望 OPTIMAL", res.Status)
	}
	if res.Objective != 3 {
		t.Errorf("目标值 = %d, 期望 3", res.Objective)
	}
	if res.BoolValue(a) || !res.BoolValue(b) {
		t.Errorf("取值错误: a=%v b=%v", res.BoolValue(a), res.BoolValue(b))
	}
}

func TestSolveInfeasible(t *testing.T) {
	m := NewModel()
	a := m.NewBool("a")
	m.FixBool(a, true)
	m.FixBool(a, false)

	res, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusInfeasible {
		t.Fatalf("状态 = %s, 期望 INFEASIBLE", res.Status)
	}
	if res.Status.HasSolution() {
		t.Error("INFEASIBLE 不应携带解")
	}
}

func TestEnforcementLiteral(t *testing.T) {
	// b 为真时强制 a 为真；固定 b 后最小化不能再绕开 a
	m := NewModel()
	a := m.NewBool("a")
	b := m.NewBool("b")
	m.AddLinear(Sum([]BoolVar{a}), OpGE, 1, b.Lit())
	m.FixBool(b, true)
	m.MinimizeBool(a, 7)

	res, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("状态 = %s, 期望 OPTIMAL", res.Status)
	}
	if !res.BoolValue(a) {
		t.Error("执行文字生效时 a 应为真")
	}
	if res.Objective != 7 {
		t.Errorf("目标值 = %d, 期望 7", res.Objective)
	}
}

func TestReifiedAnyTrue(t *testing.T) {
	// w <=> (x1 或 x2)，w 是派生变量不参与枚举
	m := NewModel()
	x1 := m.NewBool("x1")
	x2 := m.NewBool("x2")
	w := m.NewBool("w")
	m.AddReifiedAnyTrue(w, []BoolVar{x1, x2})
	m.FixBool(x1, true)
	m.MinimizeBool(w, 100)

	ev, err := newEvaluator(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(ev.decisions) != 2 {
		t.Fatalf("判定变量数 = %d, 期望 2", len(ev.decisions))
	}

	res, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.BoolValue(w) {
		t.Error("x1 为真时派生变量 w 应为真")
	}
	if res.Objective != 100 {
		t.Errorf("目标值 = %d, 期望 100", res.Objective)
	}
}

func TestReifiedAndChain(t *testing.T) {
	// 派生变量链：on_ab 依赖 on_a 与 on_b，均为派生
	m := NewModel()
	x1 := m.NewBool("x1")
	x2 := m.NewBool("x2")
	onA := m.NewBool("on_a")
	onB := m.NewBool("on_b")
	both := m.NewBool("on_ab")
	m.AddReifiedAnyTrue(onA, []BoolVar{x1})
	m.AddReifiedAnyTrue(onB, []BoolVar{x2})
	m.AddReifiedAnd(both, []Literal{onA.Lit(), onB.Lit()})
	m.FixBool(x1, true)
	m.FixBool(x2, true)
	m.MinimizeBool(both, 55)

	res, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("状态 = %s, 期望 OPTIMAL", res.Status)
	}
	if !res.BoolValue(both) {
		t.Error("链式派生变量求值错误")
	}
	if res.Objective != 55 {
		t.Errorf("目标值 = %d, 期望 55", res.Objective)
	}
}

func TestReifiedCycleRejected(t *testing.T) {
	m := NewModel()
	a := m.NewBool("a")
	b := m.NewBool("b")
	m.AddReifiedAnyTrue(a, []BoolVar{b})
	m.AddReifiedAnyTrue(b, []BoolVar{a})

	if _, err := newEvaluator(m); err == nil {
		t.Fatal("循环具体化应报错")
	}
}

func TestIntPropagationEquality(t *testing.T) {
	// dev == 2*x - 3，abs == |dev|
	m := NewModel()
	x := m.NewBool("x")
	dev := m.NewInt("dev", -10, 10)
	absDev := m.NewInt("abs_dev", 0, 10)
	expr := NewLinearExpr().AddBool(x, 2).AddConst(-3).AddInt(dev, -1)
	m.AddLinear(expr, OpEQ, 0)
	m.AddAbsEquality(absDev, dev)
	m.MinimizeInt(absDev, 1)

	res, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("状态 = %s, 期望 OPTIMAL", res.Status)
	}
	// x=1 时 dev=-1, |dev|=1；x=0 时 dev=-3, |dev|=3
	if !res.BoolValue(x) {
		t.Error("最小化 |dev| 应选择 x=1")
	}
	if res.IntValue(dev) != -1 || res.IntValue(absDev) != 1 {
		t.Errorf("dev=%d abs=%d, 期望 -1/1", res.IntValue(dev), res.IntValue(absDev))
	}
}

func TestIntLowerBoundFromInequality(t *testing.T) {
	// over >= sum(x) - 1：下界传播，最小化下取到界值
	m := NewModel()
	x1 := m.NewBool("x1")
	x2 := m.NewBool("x2")
	over := m.NewInt("over", 0, 100)
	expr := NewLinearExpr().AddBool(x1, 1).AddBool(x2, 1).AddInt(over, -1)
	m.AddLinear(expr, OpLE, 1)
	m.FixBool(x1, true)
	m.FixBool(x2, true)
	m.MinimizeInt(over, 9)

	res, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.IntValue(over) != 1 {
		t.Errorf("over = %d, 期望 1", res.IntValue(over))
	}
	if res.Objective != 9 {
		t.Errorf("目标值 = %d, 期望 9", res.Objective)
	}
}

func TestNegativeObjectiveReward(t *testing.T) {
	// 奖励项（负权重）驱动变量取真
	m := NewModel()
	x := m.NewBool("x")
	m.MinimizeBool(x, -50)

	res, err := newTestSolver().Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.BoolValue(x) {
		t.Error("负权重应驱动 x=1")
	}
	if res.Objective != -50 {
		t.Errorf("目标值 = %d, 期望 -50", res.Objective)
	}
}

func TestAnnealingFindsFeasible(t *testing.T) {
	// 超过穷举阈值的模型走退火，仍应满足硬约束
	s := New(Config{TimeLimit: 5 * time.Second, Workers: 2, Seed: 7, ExhaustiveLimit: 4, MaxIterations: 50000})

	m := NewModel()
	vars := make([]BoolVar, 12)
	for i := range vars {
		vars[i] = m.NewBool("x")
	}
	// 前三个变量恰取一个
	m.AddLinear(Sum(vars[:3]), OpEQ, 1)
	for _, v := range vars {
		m.MinimizeBool(v, 1)
	}

	res, err := s.Solve(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusFeasible {
		t.Fatalf("状态 = %s, 期望 FEASIBLE", res.Status)
	}
	count := 0
	for _, v := range vars[:3] {
		if res.BoolValue(v) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("前三个变量取真数 = %d, 期望 1", count)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOptimal, "OPTIMAL"},
		{StatusFeasible, "FEASIBLE"},
		{StatusInfeasible, "INFEASIBLE"},
		{StatusUnknown, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %s, 期望 %s", tt.status, got, tt.want)
		}
	}
}
