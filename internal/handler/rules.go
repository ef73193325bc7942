package handler

import (
	"net/http"

	"github.com/ariscare/roster/pkg/rules"
)

// RuleParam 规则参数定义
type RuleParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int/float/string
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
}

// RuleDefinition 规则定义
type RuleDefinition struct {
	Kind        string      `json:"kind"`
	DisplayName string      `json:"display_name"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Params      []RuleParam `json:"params"`
}

// RuleLibraryResponse 规则库响应
type RuleLibraryResponse struct {
	Library []RuleDefinition `json:"library"`
}

// scopeParam 所有按员工生效的规则共用的作用域参数
var scopeParam = RuleParam{
	Name: "param1", Type: "string",
	Description: "作用域：员工ID 或 ALL", Default: "ALL",
}

// RuleLibrary 返回后端支持的全部规则定义
func RuleLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	library := []RuleDefinition{
		{
			Kind: string(rules.KindPenalizeDayOfWeek), DisplayName: "懲罰星期幾", Category: "偏好",
			Description: "惩罚指定星期的任意排班（如避免周一开诊）",
			Params: []RuleParam{
				{Name: "param1", Type: "string", Description: "英文星期名，如 Monday"},
			},
		},
		{
			Kind: string(rules.KindPenalizeEmployeePost), DisplayName: "懲罰員工崗位", Category: "偏好",
			Description: "惩罚指定员工被排到指定崗位",
			Params: []RuleParam{
				{Name: "param1", Type: "string", Description: "员工ID"},
				{Name: "param2", Type: "string", Description: "崗位名"},
			},
		},
		{
			Kind: string(rules.KindPenalizeEmployeeShift), DisplayName: "懲罰員工班別", Category: "偏好",
			Description: "惩罚指定员工被排到指定班别",
			Params: []RuleParam{
				{Name: "param1", Type: "string", Description: "员工ID"},
				{Name: "param2", Type: "string", Description: "班别 A/B/C"},
			},
		},
		{
			Kind: string(rules.KindPreferEmployeePost), DisplayName: "偏好員工崗位", Category: "偏好",
			Description: "奖励指定员工被排到指定崗位",
			Params: []RuleParam{
				{Name: "param1", Type: "string", Description: "员工ID"},
				{Name: "param2", Type: "string", Description: "崗位名"},
			},
		},
		{
			Kind: string(rules.KindConsecutiveDaysMax), DisplayName: "最大連續工作天數", Category: "勞基",
			Description: "惩罚超过上限的连续工作天数",
			Params: []RuleParam{
				scopeParam,
				{Name: "param2", Type: "int", Description: "连续天数上限", Default: "6"},
			},
		},
		{
			Kind: string(rules.KindConsecutiveDaysMin), DisplayName: "最小連續工作天數", Category: "營運",
			Description: "惩罚短于下限的孤立工作段",
			Params: []RuleParam{
				scopeParam,
				{Name: "param2", Type: "int", Description: "连续天数下限", Default: "2"},
			},
		},
		{
			Kind: string(rules.KindWeeklyHoursMax), DisplayName: "每週最大工時", Category: "勞基",
			Description: "按 ISO 周惩罚超过上限的工时",
			Params: []RuleParam{
				scopeParam,
				{Name: "param2", Type: "float", Description: "每周工时上限", Default: "40"},
			},
		},
		{
			Kind: string(rules.KindWeeklyHoursMin), DisplayName: "每週最小工時", Category: "營運",
			Description: "按 ISO 周惩罚低于下限的工时",
			Params: []RuleParam{
				scopeParam,
				{Name: "param2", Type: "float", Description: "每周工时下限", Default: "16"},
			},
		},
		{
			Kind: string(rules.KindFairTotalHours), DisplayName: "總工時公平", Category: "公平性",
			Description: "最小化各员工总工时对均值的绝对偏差",
			Params: []RuleParam{
				{Name: "param3", Type: "int", Description: "查核报告阈值(小时)", Default: "16"},
			},
		},
		{
			Kind: string(rules.KindFairWeekendOffs), DisplayName: "週末休假公平", Category: "公平性",
			Description: "最小化各员工周末上班天数的差异",
			Params: []RuleParam{
				{Name: "param3", Type: "int", Description: "查核报告阈值(天)", Default: "1"},
			},
		},
		{
			Kind: string(rules.KindFairSpecialClinics), DisplayName: "特殊診次公平", Category: "公平性",
			Description: "最小化指定特殊诊类型的诊次差异",
			Params: []RuleParam{
				{Name: "param1", Type: "string", Description: "特殊诊崗位类型"},
				{Name: "param3", Type: "int", Description: "查核报告阈值(次)", Default: "2"},
			},
		},
		{
			Kind: string(rules.KindFairShiftTypes), DisplayName: "班別類型公平", Category: "公平性",
			Description: "最小化各员工 A/B/C 班次数的差异",
			Params: []RuleParam{
				{Name: "param3", Type: "int", Description: "查核报告阈值(次)", Default: "3"},
			},
		},
		{
			Kind: string(rules.KindSatisfyPreferredLeave), DisplayName: "滿足休假偏好", Category: "福祉",
			Description: "惩罚偏好休假日被排班",
			Params:      []RuleParam{},
		},
		{
			Kind: string(rules.KindPromoteConsecutiveOffs), DisplayName: "促進連續休假", Category: "福祉",
			Description: "奖励工作日后紧跟两天休假的模式",
			Params:      []RuleParam{},
		},
		{
			Kind: string(rules.KindAvoidHighFatigue), DisplayName: "避免連續高疲勞班", Category: "福祉",
			Description: "惩罚连续多天高疲劳指数的排班",
			Params: []RuleParam{
				{Name: "param1", Type: "int", Description: "疲劳指数阈值", Default: "3"},
				{Name: "param2", Type: "int", Description: "连续窗口长度(天)", Default: "2"},
			},
		},
		{
			Kind: string(rules.KindSeniorCoverage), DisplayName: "資深人員覆蓋", Category: "營運",
			Description: "每 (日期, 班别) 至少安排指定数量的资深人员",
			Params: []RuleParam{
				{Name: "param1", Type: "string", Description: "资深技能标签"},
				{Name: "param2", Type: "int", Description: "最少人数", Default: "1"},
			},
		},
		{
			Kind: string(rules.KindPenalizeOvertime), DisplayName: "最小化加班成本", Category: "成本",
			Description: "惩罚超过员工目标工时的部分",
			Params:      []RuleParam{},
		},
		{
			Kind: string(rules.KindPromoteConsecutiveShifts), DisplayName: "促進每日連續兩段班", Category: "營運",
			Description: "奖励同日 A+B 或 B+C 的连续两段班",
			Params:      []RuleParam{},
		},
		{
			Kind: string(rules.KindPenalizeTripleShifts), DisplayName: "避免三段班", Category: "福祉",
			Description: "惩罚同日 A+B+C 三段班",
			Params:      []RuleParam{},
		},
		{
			Kind: string(rules.KindNursingHeadSupportRatio), DisplayName: "護理長支援佔比", Category: "營運",
			Description: "使护理长支援班占总班数的比例贴近目标值",
			Params: []RuleParam{
				{Name: "param1", Type: "string", Description: "护理长员工ID 或 ALL"},
				{Name: "param2", Type: "float", Description: "目标占比 0-1", Default: "0.5"},
			},
		},
		{
			Kind: string(rules.KindUnmetDemand), DisplayName: "懲罰人力缺口", Category: "覆盖",
			Description: "覆盖所有时段的人力缺口惩罚权重",
			Params:      []RuleParam{},
		},
		{
			Kind: string(rules.KindOverStaffing), DisplayName: "懲罰人力過剩", Category: "覆盖",
			Description: "覆盖所有时段的人力超编惩罚权重",
			Params:      []RuleParam{},
		},
	}

	respondJSON(w, http.StatusOK, RuleLibraryResponse{Library: library})
}
