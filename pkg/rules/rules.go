// Package rules 将规则表编译为类型化的规则实例
//
// 规则表支持中英双语的规则类型名；两个覆盖类惩罚（人力缺口、人力过剩）
// 折叠为标量权重，其余保留为开放式规则列表
package rules

import (
	"strconv"
	"strings"

	"github.com/ariscare/roster/pkg/logger"
)

// Kind 规则类型（封闭枚举）
type Kind string

const (
	KindPenalizeDayOfWeek      Kind = "penalize_day_of_week"
	KindPenalizeEmployeePost   Kind = "penalize_employee_post"
	KindPenalizeEmployeeShift  Kind = "penalize_employee_shift"
	KindPreferEmployeePost     Kind = "prefer_employee_post"
	KindConsecutiveDaysMax     Kind = "consecutive_days_max"
	KindConsecutiveDaysMin     Kind = "consecutive_days_min"
	KindWeeklyHoursMax         Kind = "weekly_hours_max"
	KindWeeklyHoursMin         Kind = "weekly_hours_min"
	KindFairTotalHours         Kind = "fair_total_hours"
	KindFairWeekendOffs        Kind = "fair_weekend_offs"
	KindFairSpecialClinics     Kind = "fair_special_clinics"
	KindFairShiftTypes         Kind = "fair_shift_types"
	KindSatisfyPreferredLeave  Kind = "satisfy_preferred_leave"
	KindPromoteConsecutiveOffs Kind = "promote_consecutive_offs"
	KindAvoidHighFatigue       Kind = "avoid_high_fatigue"
	KindSeniorCoverage         Kind = "senior_coverage"
	KindPenalizeOvertime       Kind = "penalize_overtime"
	KindPromoteConsecutiveShifts Kind = "promote_consecutive_shifts"
	KindPenalizeTripleShifts   Kind = "penalize_triple_shifts"
	KindNursingHeadSupportRatio Kind = "nursing_head_support_ratio"
	KindOverStaffing           Kind = "over_staffing"
	KindUnmetDemand            Kind = "unmet_demand"
)

// chineseKinds 中文规则类型到内部类型的映射
var chineseKinds = map[string]Kind{
	"懲罰星期幾":     KindPenalizeDayOfWeek,
	"懲罰員工崗位":    KindPenalizeEmployeePost,
	"懲罰員工班別":    KindPenalizeEmployeeShift,
	"偏好員工崗位":    KindPreferEmployeePost,
	"最大連續工作天數":  KindConsecutiveDaysMax,
	"最小連續工作天數":  KindConsecutiveDaysMin,
	"每週最大工時":    KindWeeklyHoursMax,
	"每週最小工時":    KindWeeklyHoursMin,
	"總工時公平":     KindFairTotalHours,
	"週末休假公平":    KindFairWeekendOffs,
	"特殊診次公平":    KindFairSpecialClinics,
	"班別類型公平":    KindFairShiftTypes,
	"滿足休假偏好":    KindSatisfyPreferredLeave,
	"促進連續休假":    KindPromoteConsecutiveOffs,
	"避免連續高疲勞班":  KindAvoidHighFatigue,
	"資深人員覆蓋":    KindSeniorCoverage,
	"最小化加班成本":   KindPenalizeOvertime,
	"促進每日連續兩段班": KindPromoteConsecutiveShifts,
	"避免三段班":     KindPenalizeTripleShifts,
	"懲罰人力過剩":    KindOverStaffing,
	"懲罰人力缺口":    KindUnmetDemand,
	"護理長支援佔比":   KindNursingHeadSupportRatio,
}

// knownKinds 内部类型集合
var knownKinds = func() map[Kind]bool {
	m := make(map[Kind]bool, len(chineseKinds))
	for _, k := range chineseKinds {
		m[k] = true
	}
	return m
}()

// Known 判断类型是否为已知枚举值
func (k Kind) Known() bool {
	return knownKinds[k]
}

// kindNames 内部类型到中文显示名的反向映射
var kindNames = func() map[Kind]string {
	m := make(map[Kind]string, len(chineseKinds))
	for zh, k := range chineseKinds {
		m[k] = zh
	}
	return m
}()

// ChineseName 返回规则类型的中文显示名，未知类型原样返回
func (k Kind) ChineseName() string {
	if zh, ok := kindNames[k]; ok {
		return zh
	}
	return string(k)
}

// ScopeAll 规则作用于全部员工
const ScopeAll = "ALL"

// Rule 类型化的规则实例
// 数值参数在编译期完成校验，引擎阶段直接取用
type Rule struct {
	Kind   Kind   `json:"kind"`
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
	Param3 string `json:"param3"`
	Weight int    `json:"weight"`

	// 编译期解析的数值参数（仅对相应类型有意义）
	Limit     int     `json:"limit,omitempty"`     // 连续天数上下限 / 资深人数 / 疲劳窗口长度
	Hours     float64 `json:"hours,omitempty"`     // 每週工時上下限
	Ratio     float64 `json:"ratio,omitempty"`     // 支援佔比目标
	Fatigue   int     `json:"fatigue,omitempty"`   // 疲劳指数阈值
	Threshold int     `json:"threshold,omitempty"` // 查核报告阈值（param3）
}

// Scope 返回规则作用域：员工ID 或 ALL
// 按约定作用域由第一个参数承载
func (r *Rule) Scope() string {
	if r.Param1 == "" {
		return ScopeAll
	}
	return r.Param1
}

// AppliesTo 判断规则是否作用于指定员工
func (r *Rule) AppliesTo(employeeID string) bool {
	return r.Scope() == ScopeAll || r.Scope() == employeeID
}

// Enabled 权重为 0 的规则保留但不生效
func (r *Rule) Enabled() bool {
	return r.Weight > 0
}

// Penalties 覆盖类与内建惩罚权重
type Penalties struct {
	SplitShift      int `json:"split_shift"`
	UnmetDemand     int `json:"unmet_demand"`
	OverStaffing    int `json:"over_staffing"`
	SkillPreference int `json:"skill_preference_mismatch"`
}

// DefaultPenalties 默认惩罚权重
func DefaultPenalties() Penalties {
	return Penalties{
		SplitShift:      5000,
		UnmetDemand:     100000,
		OverStaffing:    100000,
		SkillPreference: 200,
	}
}

// RuleSet 编译结果
type RuleSet struct {
	Penalties Penalties `json:"penalties"`
	Rules     []*Rule   `json:"rules"`
}

// NewRuleSet 返回带默认惩罚权重的空规则集
func NewRuleSet() *RuleSet {
	return &RuleSet{Penalties: DefaultPenalties()}
}

// First 返回首个生效的指定类型规则，没有则返回 nil
func (rs *RuleSet) First(kind Kind) *Rule {
	for _, r := range rs.Rules {
		if r.Kind == kind && r.Enabled() {
			return r
		}
	}
	return nil
}

// Active 返回全部生效规则
func (rs *RuleSet) Active() []*Rule {
	var out []*Rule
	for _, r := range rs.Rules {
		if r.Enabled() {
			out = append(out, r)
		}
	}
	return out
}

// RawRule 规则表原始行
// 新格式填 Kind/Param*/Weight；旧格式（键值对）填 Key/Weight
type RawRule struct {
	Kind   string `json:"kind"`
	Param1 string `json:"param1"`
	Param2 string `json:"param2"`
	Param3 string `json:"param3"`
	Weight string `json:"weight"`
	Key    string `json:"key"`
}

// Compile 将规则表编译为规则集
// 类型为空或权重缺失/为负的行跳过；权重 0 的规则保留但失效；
// 未知类型原样保留并记录一次警告，下游各阶段自行忽略
func Compile(rows []RawRule, log *logger.SolveLogger) *RuleSet {
	if log == nil {
		log = logger.Nop()
	}
	rs := NewRuleSet()

	if len(rows) == 0 {
		log.Logger().Info().Msg("规则表为空，使用默认惩罚权重")
		return rs
	}

	// 旧格式：没有任何行带规则类型时退回扁平键值表
	legacy := true
	for _, r := range rows {
		if strings.TrimSpace(r.Kind) != "" {
			legacy = false
			break
		}
	}
	if legacy {
		compileLegacy(rows, rs)
		return rs
	}

	unknownLogged := make(map[Kind]bool)
	for _, row := range rows {
		raw := strings.TrimSpace(strings.ReplaceAll(row.Kind, "\u00a0", " "))
		weightStr := strings.TrimSpace(row.Weight)
		if raw == "" || weightStr == "" {
			continue
		}
		weight, err := strconv.Atoi(weightStr)
		if err != nil || weight < 0 {
			// 权重 0 合法（仅停用规则），负值与非数值跳过
			continue
		}

		kind, ok := chineseKinds[raw]
		if !ok {
			kind = Kind(strings.ToLower(raw))
		}
		if !kind.Known() && !unknownLogged[kind] {
			log.RuleSkipped(string(kind), "未知规则类型，保留但各阶段将忽略")
			unknownLogged[kind] = true
		}

		// 覆盖类惩罚折叠为标量权重
		switch kind {
		case KindUnmetDemand:
			rs.Penalties.UnmetDemand = weight
			continue
		case KindOverStaffing:
			rs.Penalties.OverStaffing = weight
			continue
		}

		rule := &Rule{
			Kind:   kind,
			Param1: strings.TrimSpace(row.Param1),
			Param2: strings.TrimSpace(row.Param2),
			Param3: strings.TrimSpace(row.Param3),
			Weight: weight,
		}
		if err := validateParams(rule); err != nil {
			log.RuleSkipped(string(kind), err.Error())
			continue
		}
		rs.Rules = append(rs.Rules, rule)
	}
	return rs
}

// compileLegacy 旧格式：key/weight 键值表直接覆盖惩罚权重
func compileLegacy(rows []RawRule, rs *RuleSet) {
	for _, row := range rows {
		key := strings.ToLower(strings.TrimSpace(row.Key))
		weight, err := strconv.Atoi(strings.TrimSpace(row.Weight))
		if key == "" || err != nil {
			continue
		}
		switch key {
		case "split_shift":
			rs.Penalties.SplitShift = weight
		case "unmet_demand":
			rs.Penalties.UnmetDemand = weight
		case "over_staffing":
			rs.Penalties.OverStaffing = weight
		case "skill_preference_mismatch":
			rs.Penalties.SkillPreference = weight
		}
	}
}

// validateParams 编译期校验数值参数
// 校验失败的单条规则被跳过，其余规则不受影响
func validateParams(r *Rule) error {
	switch r.Kind {
	case KindConsecutiveDaysMax, KindConsecutiveDaysMin:
		limit, err := parseInt(r.Param2)
		if err != nil {
			return errParam("param2", r.Param2)
		}
		r.Limit = limit
	case KindWeeklyHoursMax, KindWeeklyHoursMin:
		hours, err := strconv.ParseFloat(r.Param2, 64)
		if err != nil {
			return errParam("param2", r.Param2)
		}
		r.Hours = hours
	case KindAvoidHighFatigue:
		fatigue, err := parseInt(r.Param1)
		if err != nil {
			return errParam("param1", r.Param1)
		}
		window, err := parseInt(r.Param2)
		if err != nil {
			return errParam("param2", r.Param2)
		}
		r.Fatigue = fatigue
		r.Limit = window
	case KindSeniorCoverage:
		count, err := parseInt(r.Param2)
		if err != nil {
			return errParam("param2", r.Param2)
		}
		r.Limit = count
	case KindNursingHeadSupportRatio:
		ratio, err := strconv.ParseFloat(r.Param2, 64)
		if err != nil {
			return errParam("param2", r.Param2)
		}
		r.Ratio = ratio
	}
	if r.Param3 != "" {
		if t, err := parseInt(r.Param3); err == nil {
			r.Threshold = t
		}
	}
	return nil
}

// parseInt 宽容解析整数，接受 "3.0" 这类带小数点写法
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

type paramError struct {
	field string
	value string
}

func (e *paramError) Error() string {
	return "参数 " + e.field + " 非法: " + e.value
}

func errParam(field, value string) error {
	return &paramError{field: field, value: value}
}
