package scheduler

import (
	"github.com/ariscare/roster/pkg/solver"
)

// TermKind 目标项类型
type TermKind int

const (
	// TermLinear 线性项：权重乘以表达式取值
	TermLinear TermKind = iota
	// TermIndicator 指示项：权重乘以布尔指示变量
	TermIndicator
	// TermAbsDeviation 绝对偏差项：权重乘以绝对偏差整数变量
	TermAbsDeviation
)

// Term 单条目标项
// 每条规则的贡献独立记录，可单独审计与测试
type Term struct {
	Kind   TermKind
	Label  string // 产生该项的规则或内建行为
	Weight int64

	Expr   *solver.LinearExpr // TermLinear
	Ind    solver.BoolVar     // TermIndicator
	AbsVar solver.IntVar      // TermAbsDeviation
}

// Objective 目标函数构建器
// 先收集类型化目标项，最后一次性下放到求解模型
type Objective struct {
	terms []*Term
}

// NewObjective 创建空目标
func NewObjective() *Objective {
	return &Objective{}
}

// AddLinear 追加线性项
func (o *Objective) AddLinear(label string, weight int64, expr *solver.LinearExpr) {
	o.terms = append(o.terms, &Term{Kind: TermLinear, Label: label, Weight: weight, Expr: expr})
}

// AddIndicator 追加布尔指示项，weight 为负时是奖励
func (o *Objective) AddIndicator(label string, weight int64, ind solver.BoolVar) {
	o.terms = append(o.terms, &Term{Kind: TermIndicator, Label: label, Weight: weight, Ind: ind})
}

// AddAbsDeviation 追加绝对偏差项
func (o *Objective) AddAbsDeviation(label string, weight int64, absVar solver.IntVar) {
	o.terms = append(o.terms, &Term{Kind: TermAbsDeviation, Label: label, Weight: weight, AbsVar: absVar})
}

// Terms 返回全部目标项
func (o *Objective) Terms() []*Term {
	return o.terms
}

// TermsByLabel 返回指定来源的目标项
func (o *Objective) TermsByLabel(label string) []*Term {
	var out []*Term
	for _, t := range o.terms {
		if t.Label == label {
			out = append(out, t)
		}
	}
	return out
}

// Lower 将全部目标项下放到求解模型
func (o *Objective) Lower(m *solver.Model) {
	for _, t := range o.terms {
		switch t.Kind {
		case TermLinear:
			scaled := solver.NewLinearExpr()
			for _, bt := range t.Expr.Bools {
				scaled.AddLit(bt.Lit, bt.Coeff*t.Weight)
			}
			for _, it := range t.Expr.Ints {
				scaled.AddInt(it.Var, it.Coeff*t.Weight)
			}
			scaled.AddConst(t.Expr.Offset * t.Weight)
			m.Minimize(scaled)
		case TermIndicator:
			m.MinimizeBool(t.Ind, t.Weight)
		case TermAbsDeviation:
			m.MinimizeInt(t.AbsVar, t.Weight)
		}
	}
}
