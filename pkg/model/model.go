// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"strings"
)

// Shift 班别代号，取值 A/B/C（早/中/晚）
type Shift = string

const (
	ShiftA Shift = "A"
	ShiftB Shift = "B"
	ShiftC Shift = "C"
)

// AllShifts 全部班别
var AllShifts = []Shift{ShiftA, ShiftB, ShiftC}

// Employee 员工
type Employee struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	EligiblePosts  []string `json:"eligible_posts"`
	Skills         []string `json:"skills"`
	AvailableShifts []Shift `json:"available_shifts"`
	AvailableDates []string `json:"available_dates"` // YYYY/MM/DD
	StartDate      string   `json:"start_date,omitempty"`
	TargetHours    int      `json:"target_hours"`
}

// HasSkill 检查员工是否具备某技能（大小写不敏感）
func (e *Employee) HasSkill(skill string) bool {
	for _, s := range e.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// IsHeadNurse 检查员工是否为护理长
func (e *Employee) IsHeadNurse() bool {
	for _, s := range e.Skills {
		if s == SkillHeadNurse {
			return true
		}
	}
	return false
}

// SkillHeadNurse 护理长技能标签
const SkillHeadNurse = "護理長"

// AdminPost 行政崗位名称（护理长非支援班）
const AdminPost = "行政"

// SlotKey 需求时段的复合键 (date, shift, post)
type SlotKey struct {
	Date  string `json:"date"`  // YYYY/MM/DD
	Shift Shift  `json:"shift"` // A/B/C
	Post  string `json:"post"`
}

// String 返回 "日期|班别|崗位" 形式的键
func (k SlotKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Date, k.Shift, k.Post)
}

// DemandSlot 单个 (日期, 班别, 崗位) 的人力需求
type DemandSlot struct {
	Key            SlotKey  `json:"key"`
	Demand         int      `json:"demand"`
	RequiredSkills []string `json:"skills_required"` // 首个元素为偏好技能
	PostType       string   `json:"post_type"`       // 含「特殊」者为特殊诊
	FatigueIndex   int      `json:"fatigue_index"`   // ≥1
}

// LeaveKind 休假请求类型
type LeaveKind int

const (
	LeaveHardOff LeaveKind = iota // 硬性休假，当日不可排任何班
	LeavePreferredOff             // 偏好休假，排班仅产生软性惩罚
)

// LeaveRequest 休假请求
type LeaveRequest struct {
	Date       string    `json:"date"`
	EmployeeID string    `json:"employee_id"`
	Kind       LeaveKind `json:"kind"`
	Preset     string    `json:"preset"` // 原始预设文本
}

// PreAssignment 预排班
// SupportAllowed 仅对护理长有意义：true 表示机动支援（可排 ≤1 个崗位），
// 普通员工的预排为强制（恰排 1 个崗位）
type PreAssignment struct {
	Date           string `json:"date"`
	EmployeeID     string `json:"employee_id"`
	Shift          Shift  `json:"shift"`
	SupportAllowed bool   `json:"support_allowed"`
}

// AdminAssignment 护理长固定行政班，求解器在该班别不得排任何崗位
type AdminAssignment struct {
	Date       string `json:"date"`
	EmployeeID string `json:"employee_id"`
	Shift      Shift  `json:"shift"`
}

// ShiftHours 班别代号到时数的映射（小时）
type ShiftHours map[string]float64

// DefaultShiftHours 未定义班别的默认时数
const DefaultShiftHours = 8.0

// Hours 返回班别时数，未定义时返回默认值
func (sh ShiftHours) Hours(shift string) float64 {
	if sh == nil {
		return DefaultShiftHours
	}
	if h, ok := sh[shift]; ok {
		return h
	}
	return DefaultShiftHours
}

// ScaledHours 返回 ×100 取整后的时数，供整数模型使用
func (sh ShiftHours) ScaledHours(shift string) int {
	return int(sh.Hours(shift) * 100)
}

// Assignment 排班结果：员工被指派到某个需求时段
type Assignment struct {
	Date         string `json:"date"`
	Shift        Shift  `json:"shift"`
	Post         string `json:"post"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
}

// SlotAudit 单时段的人力审核记录
type SlotAudit struct {
	Key      string `json:"key"` // 日期|班别|崗位
	Demand   int    `json:"demand"`
	Assigned int    `json:"assigned"`
	Gap      int    `json:"gap"`
	Over     int    `json:"over"`
}

// AuditSummary 审核汇总
type AuditSummary struct {
	TotalDemand int    `json:"total_demand"`
	Filled      int    `json:"filled"`
	Gap         int    `json:"gap"`
	SummaryText string `json:"summary_text"`
}

// Audit 排班审核结果
type Audit struct {
	ByKey   []SlotAudit  `json:"by_key"`
	Summary AuditSummary `json:"summary"`
}

// Violation 符合性查核违规记录
type Violation struct {
	Date       string `json:"date"`
	EmployeeID string `json:"employee_id"`
	Type       string `json:"violation_type"`
	Detail     string `json:"detail"`
}

// Snapshot 一次求解所需的全部规范化输入
// 每次调用从外部快照重建，求解间不共享任何状态
type Snapshot struct {
	Dates            []string          `json:"dates"` // 排班周期内全部日期，升序
	Employees        []*Employee       `json:"employees"`
	Demand           []*DemandSlot     `json:"demand"`
	LeaveRequests    []*LeaveRequest   `json:"leave_requests"`
	PreAssignments   []*PreAssignment  `json:"pre_assignments"`
	AdminAssignments []*AdminAssignment `json:"admin_assignments"`
	ShiftHours       ShiftHours        `json:"shift_hours"`
}

// HardOffSet 返回 (date, employeeID) 硬性休假集合
func (s *Snapshot) HardOffSet() map[[2]string]bool {
	set := make(map[[2]string]bool)
	for _, l := range s.LeaveRequests {
		if l.Kind == LeaveHardOff {
			set[[2]string{l.Date, l.EmployeeID}] = true
		}
	}
	return set
}

// PreferredOffSet 返回 (date, employeeID) 偏好休假集合
func (s *Snapshot) PreferredOffSet() map[[2]string]bool {
	set := make(map[[2]string]bool)
	for _, l := range s.LeaveRequests {
		if l.Kind == LeavePreferredOff {
			set[[2]string{l.Date, l.EmployeeID}] = true
		}
	}
	return set
}

// EmployeeByID 返回员工索引
func (s *Snapshot) EmployeeByID() map[string]*Employee {
	m := make(map[string]*Employee, len(s.Employees))
	for _, e := range s.Employees {
		m[e.ID] = e
	}
	return m
}

// DemandByKey 返回需求时段索引
func (s *Snapshot) DemandByKey() map[SlotKey]*DemandSlot {
	m := make(map[SlotKey]*DemandSlot, len(s.Demand))
	for _, d := range s.Demand {
		m[d.Key] = d
	}
	return m
}
