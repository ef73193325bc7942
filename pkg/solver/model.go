// Package solver 提供约束模型求解能力
//
// 模型由布尔变量、有界整数变量与线性约束组成，支持执行文字
// (enforcement literal)、全量具体化 (reification) 与绝对值等式，
// 目标为最小化线性惩罚和。小模型走穷举，大模型走多起点退火搜索
package solver

import "fmt"

// BoolVar 布尔变量引用
type BoolVar int32

// IntVar 有界整数变量引用
type IntVar int32

// Literal 布尔文字：变量或其否定
type Literal struct {
	Var BoolVar
	Neg bool
}

// Lit 正文字
func (v BoolVar) Lit() Literal { return Literal{Var: v} }

// Not 负文字
func (v BoolVar) Not() Literal { return Literal{Var: v, Neg: true} }

// Not 取反
func (l Literal) Not() Literal { return Literal{Var: l.Var, Neg: !l.Neg} }

// BoolTerm 线性表达式中的布尔项
type BoolTerm struct {
	Lit   Literal
	Coeff int64
}

// IntTerm 线性表达式中的整数项
type IntTerm struct {
	Var   IntVar
	Coeff int64
}

// LinearExpr 线性表达式：布尔项、整数项与常数之和
type LinearExpr struct {
	Bools  []BoolTerm
	Ints   []IntTerm
	Offset int64
}

// NewLinearExpr 创建空表达式
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// Sum 创建布尔变量求和表达式
func Sum(vars []BoolVar) *LinearExpr {
	e := NewLinearExpr()
	for _, v := range vars {
		e.AddBool(v, 1)
	}
	return e
}

// AddBool 追加布尔项
func (e *LinearExpr) AddBool(v BoolVar, coeff int64) *LinearExpr {
	e.Bools = append(e.Bools, BoolTerm{Lit: v.Lit(), Coeff: coeff})
	return e
}

// AddLit 追加布尔文字项
func (e *LinearExpr) AddLit(l Literal, coeff int64) *LinearExpr {
	e.Bools = append(e.Bools, BoolTerm{Lit: l, Coeff: coeff})
	return e
}

// AddInt 追加整数项
func (e *LinearExpr) AddInt(v IntVar, coeff int64) *LinearExpr {
	e.Ints = append(e.Ints, IntTerm{Var: v, Coeff: coeff})
	return e
}

// AddConst 追加常数
func (e *LinearExpr) AddConst(c int64) *LinearExpr {
	e.Offset += c
	return e
}

// Empty 表达式不含任何变量项
func (e *LinearExpr) Empty() bool {
	return len(e.Bools) == 0 && len(e.Ints) == 0
}

// Op 线性约束关系
type Op int

const (
	OpEQ Op = iota // ==
	OpLE           // <=
	OpGE           // >=
)

func (o Op) String() string {
	switch o {
	case OpEQ:
		return "=="
	case OpLE:
		return "<="
	case OpGE:
		return ">="
	}
	return "?"
}

type intDomain struct {
	name string
	lo   int64
	hi   int64
}

type linearConstraint struct {
	expr    *LinearExpr
	op      Op
	rhs     int64
	enforce []Literal
}

type boolClause struct {
	lits    []Literal
	isAnd   bool // true=合取 false=析取
	enforce []Literal
}

type absConstraint struct {
	target IntVar
	source IntVar
}

// 全量具体化定义：派生布尔变量的取值由其它变量唯一决定
type reifiedAny struct {
	b    BoolVar
	vars []BoolVar
}

type reifiedAnd struct {
	b    BoolVar
	lits []Literal
}

// Model 约束模型
// 单个模型实例不可跨求解调用共享
type Model struct {
	boolNames []string
	ints      []intDomain

	linears []linearConstraint
	clauses []boolClause
	abs     []absConstraint

	anyDefs []reifiedAny
	andDefs []reifiedAnd

	objective *LinearExpr
}

// NewModel 创建空模型
func NewModel() *Model {
	return &Model{objective: NewLinearExpr()}
}

// NewBool 创建布尔变量
func (m *Model) NewBool(name string) BoolVar {
	m.boolNames = append(m.boolNames, name)
	return BoolVar(len(m.boolNames) - 1)
}

// NewInt 创建有界整数变量
func (m *Model) NewInt(name string, lo, hi int64) IntVar {
	m.ints = append(m.ints, intDomain{name: name, lo: lo, hi: hi})
	return IntVar(len(m.ints) - 1)
}

// NumBools 布尔变量总数
func (m *Model) NumBools() int { return len(m.boolNames) }

// NumInts 整数变量总数
func (m *Model) NumInts() int { return len(m.ints) }

// AddLinear 添加线性约束，可附带执行文字
// 执行文字全部为真时约束才生效
func (m *Model) AddLinear(expr *LinearExpr, op Op, rhs int64, enforce ...Literal) {
	m.linears = append(m.linears, linearConstraint{expr: expr, op: op, rhs: rhs, enforce: enforce})
}

// AddBoolAnd 添加合取约束：执行文字为真时所有文字必须为真
func (m *Model) AddBoolAnd(lits []Literal, enforce ...Literal) {
	m.clauses = append(m.clauses, boolClause{lits: lits, isAnd: true, enforce: enforce})
}

// AddBoolOr 添加析取约束：执行文字为真时至少一个文字为真
func (m *Model) AddBoolOr(lits []Literal, enforce ...Literal) {
	m.clauses = append(m.clauses, boolClause{lits: lits, isAnd: false, enforce: enforce})
}

// AddAbsEquality 添加绝对值等式 target == |source|
func (m *Model) AddAbsEquality(target, source IntVar) {
	m.abs = append(m.abs, absConstraint{target: target, source: source})
}

// AddReifiedAnyTrue 全量具体化 b <=> sum(vars) >= 1
// b 成为派生变量，搜索时不再枚举
func (m *Model) AddReifiedAnyTrue(b BoolVar, vars []BoolVar) {
	m.anyDefs = append(m.anyDefs, reifiedAny{b: b, vars: vars})
}

// AddReifiedAnd 全量具体化 b <=> AND(lits)
func (m *Model) AddReifiedAnd(b BoolVar, lits []Literal) {
	m.andDefs = append(m.andDefs, reifiedAnd{b: b, lits: lits})
}

// FixBool 将布尔变量固定为指定值
func (m *Model) FixBool(v BoolVar, value bool) {
	rhs := int64(0)
	if value {
		rhs = 1
	}
	m.AddLinear(NewLinearExpr().AddBool(v, 1), OpEQ, rhs)
}

// Minimize 向目标函数追加待最小化的线性项
func (m *Model) Minimize(expr *LinearExpr) {
	m.objective.Bools = append(m.objective.Bools, expr.Bools...)
	m.objective.Ints = append(m.objective.Ints, expr.Ints...)
	m.objective.Offset += expr.Offset
}

// MinimizeBool 向目标函数追加单个布尔项
func (m *Model) MinimizeBool(v BoolVar, coeff int64) {
	m.objective.AddBool(v, coeff)
}

// MinimizeInt 向目标函数追加单个整数项
func (m *Model) MinimizeInt(v IntVar, coeff int64) {
	m.objective.AddInt(v, coeff)
}

// BoolName 调试用变量名
func (m *Model) BoolName(v BoolVar) string {
	if int(v) < len(m.boolNames) {
		return m.boolNames[v]
	}
	return fmt.Sprintf("b%d", v)
}
