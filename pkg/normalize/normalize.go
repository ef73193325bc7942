// Package normalize 将外部原始行记录规范化为标准排班输入
//
// 原始行来自排除在核心之外的 I/O 采集层（表格、云端表单等），
// 日期格式、班别文本、列表单元格都可能千奇百怪，这里统一清洗
package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ariscare/roster/pkg/errors"
	"github.com/ariscare/roster/pkg/logger"
	"github.com/ariscare/roster/pkg/model"
)

// RawEmployee 员工原始行
type RawEmployee struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	EligiblePosts   string `json:"eligible_posts"`
	Skills          string `json:"skills"`
	AvailableShifts string `json:"available_shifts"`
	AvailableDates  string `json:"available_dates"`
	StartDate       string `json:"start_date"`
	TargetHours     string `json:"target_hours"`
}

// RawDemand 需求原始行
type RawDemand struct {
	Date         string `json:"date"`
	Shift        string `json:"shift"`
	Post         string `json:"post"`
	Demand       string `json:"demand"`
	Skills       string `json:"skills"`
	PostType     string `json:"post_type"`
	FatigueIndex string `json:"fatigue_index"`
}

// RawPreset 预排/休假原始行
// Support 为「护理长人力」栏：Y 表示机动支援
type RawPreset struct {
	Date       string `json:"date"`
	EmployeeID string `json:"employee_id"`
	Preset     string `json:"preset"`
	Support    string `json:"support"`
}

// RawShiftDef 班别定义原始行
type RawShiftDef struct {
	Shift string `json:"shift"`
	Hours string `json:"hours"`
}

// Input 一次求解的全部原始输入
// nil 切片表示该表缺失；员工与需求为必要表
type Input struct {
	Employees []RawEmployee `json:"employees"`
	Demand    []RawDemand   `json:"demand"`
	Presets   []RawPreset   `json:"presets"`
	ShiftDefs []RawShiftDef `json:"shift_defs"`
}

var (
	reDateYMD = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	reDateDMY = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
)

// NormDate 容错解析日期并统一输出为 YYYY/MM/DD
// 支持 YYYY/MM/DD、MM/DD/YYYY、DD/MM/YYYY，分隔符可为斜线或连字符；
// 无法识别时原样返回
func NormDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if m := reDateYMD.FindStringSubmatch(s); m != nil {
		return formatDate(m[1], m[2], m[3])
	}
	if m := reDateDMY.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		// 首段超出月份范围时按 日/月/年 解释，否则按 月/日/年
		if a > 12 && b <= 12 {
			return formatDate(m[3], m[2], m[1])
		}
		return formatDate(m[3], m[1], m[2])
	}
	return s
}

func formatDate(y, mo, d string) string {
	mi, _ := strconv.Atoi(mo)
	di, _ := strconv.Atoi(d)
	return y + "/" + pad2(mi) + "/" + pad2(di)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// PickShift 规范化班别文本
// A/B/C 直接通过；含早/中/晚字样分别映射为 A/B/C；其余原样返回，
// 后续资格过滤会静默淘汰无法识别的班别
func PickShift(v string) string {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(v), "'", ""))
	switch s {
	case "A", "B", "C":
		return s
	}
	switch {
	case strings.Contains(s, "早"), strings.Contains(strings.ToLower(s), "morning"):
		return model.ShiftA
	case strings.Contains(s, "中"), strings.Contains(strings.ToLower(s), "afternoon"):
		return model.ShiftB
	case strings.Contains(s, "晚"), strings.Contains(strings.ToLower(s), "evening"):
		return model.ShiftC
	}
	return s
}

var reBracket = regexp.MustCompile(`\[(.*?)\]`)

// SplitList 拆分列表单元格
// 接受半角逗号、全角逗号与顿号分隔，去除中括号与引号装饰
func SplitList(value string) []string {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "、", ",")
	s = strings.ReplaceAll(s, "，", ",")
	s = reBracket.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "'", "")

	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Normalize 将原始输入规范化为标准快照
// 员工表与需求表缺失为致命错误；其余表缺失时记录信息日志并按空处理
func Normalize(in *Input, log *logger.SolveLogger) (*model.Snapshot, error) {
	if log == nil {
		log = logger.Nop()
	}
	if len(in.Employees) == 0 {
		return nil, errors.DataMissing("人員資料庫")
	}
	if len(in.Demand) == 0 {
		return nil, errors.DataMissing("每週需求")
	}
	if in.Presets == nil {
		log.Logger().Info().Msg("预排班表缺失，视为空表")
	}
	if in.ShiftDefs == nil {
		log.Logger().Info().Msg("班别定义表缺失，使用默认时数")
	}

	snap := &model.Snapshot{ShiftHours: model.ShiftHours{}}

	// 需求时段与排班周期，键 (日期, 班别, 崗位) 必须唯一
	dateSet := make(map[string]bool)
	seenKeys := make(map[model.SlotKey]bool)
	for _, r := range in.Demand {
		d := NormDate(r.Date)
		s := PickShift(r.Shift)
		p := strings.TrimSpace(r.Post)
		if d == "" || s == "" || p == "" {
			continue
		}
		key := model.SlotKey{Date: d, Shift: s, Post: p}
		if seenKeys[key] {
			log.Logger().Warn().Str("key", key.String()).Msg("重复的需求时段，忽略后出现的行")
			continue
		}
		seenKeys[key] = true
		demand, _ := strconv.Atoi(strings.TrimSpace(r.Demand))
		postType := strings.TrimSpace(r.PostType)
		if postType == "" {
			postType = "一般"
		}
		fatigue, _ := strconv.Atoi(strings.TrimSpace(r.FatigueIndex))
		if fatigue < 1 {
			fatigue = 1
		}
		snap.Demand = append(snap.Demand, &model.DemandSlot{
			Key:            key,
			Demand:         demand,
			RequiredSkills: SplitList(r.Skills),
			PostType:       postType,
			FatigueIndex:   fatigue,
		})
		dateSet[d] = true
	}
	for d := range dateSet {
		snap.Dates = append(snap.Dates, d)
	}
	sort.Strings(snap.Dates)

	// 员工
	for _, r := range in.Employees {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = id
		}
		shifts := make([]model.Shift, 0, 3)
		for _, s := range SplitList(r.AvailableShifts) {
			shifts = append(shifts, PickShift(s))
		}
		if len(shifts) == 0 {
			shifts = append(shifts, model.AllShifts...)
		}
		var dates []string
		for _, d := range SplitList(r.AvailableDates) {
			dates = append(dates, NormDate(d))
		}
		target, _ := strconv.Atoi(strings.TrimSpace(r.TargetHours))
		snap.Employees = append(snap.Employees, &model.Employee{
			ID:              id,
			Name:            name,
			EligiblePosts:   SplitList(r.EligiblePosts),
			Skills:          SplitList(r.Skills),
			AvailableShifts: shifts,
			AvailableDates:  dates,
			StartDate:       NormDate(strings.TrimSpace(r.StartDate)),
			TargetHours:     target,
		})
	}

	// 可上日期默认规则：
	// 有到职日者取周期内 ≥ 到职日的全部日期（覆盖显式列表），
	// 无到职日且未显式填写者取整个周期
	for _, e := range snap.Employees {
		if e.StartDate != "" {
			var dates []string
			for _, d := range snap.Dates {
				if d >= e.StartDate {
					dates = append(dates, d)
				}
			}
			e.AvailableDates = dates
		} else if len(e.AvailableDates) == 0 {
			e.AvailableDates = append([]string(nil), snap.Dates...)
		}
	}

	// 预排/休假分流
	headNurses := make(map[string]bool)
	for _, e := range snap.Employees {
		if e.IsHeadNurse() {
			headNurses[e.ID] = true
		}
	}
	for _, r := range in.Presets {
		d := NormDate(r.Date)
		eid := strings.TrimSpace(r.EmployeeID)
		preset := strings.TrimSpace(r.Preset)
		if d == "" || eid == "" || preset == "" {
			continue
		}
		upper := strings.ToUpper(preset)
		switch {
		case upper == "OFF":
			snap.LeaveRequests = append(snap.LeaveRequests, &model.LeaveRequest{
				Date: d, EmployeeID: eid, Kind: model.LeaveHardOff, Preset: preset,
			})
		case strings.Contains(preset, "偏好"):
			snap.LeaveRequests = append(snap.LeaveRequests, &model.LeaveRequest{
				Date: d, EmployeeID: eid, Kind: model.LeavePreferredOff, Preset: preset,
			})
		case strings.Contains(upper, "OFF"):
			// 含 OFF 但非标准写法，无法判断意图，丢弃该行
			log.Logger().Debug().Str("preset", preset).Msg("无法识别的休假预设，忽略")
		case headNurses[eid]:
			if strings.ToUpper(strings.TrimSpace(r.Support)) == "Y" {
				snap.PreAssignments = append(snap.PreAssignments, &model.PreAssignment{
					Date: d, EmployeeID: eid, Shift: PickShift(preset), SupportAllowed: true,
				})
			} else {
				snap.AdminAssignments = append(snap.AdminAssignments, &model.AdminAssignment{
					Date: d, EmployeeID: eid, Shift: PickShift(preset),
				})
			}
		default:
			snap.PreAssignments = append(snap.PreAssignments, &model.PreAssignment{
				Date: d, EmployeeID: eid, Shift: PickShift(preset), SupportAllowed: false,
			})
		}
	}

	// 班别时数
	for _, r := range in.ShiftDefs {
		alias := strings.TrimSpace(r.Shift)
		hours, err := strconv.ParseFloat(strings.TrimSpace(r.Hours), 64)
		if alias != "" && err == nil && hours > 0 {
			snap.ShiftHours[alias] = hours
		}
	}

	log.Logger().Info().
		Int("employees", len(snap.Employees)).
		Int("demand_slots", len(snap.Demand)).
		Int("leave_requests", len(snap.LeaveRequests)).
		Int("pre_assignments", len(snap.PreAssignments)).
		Int("admin_assignments", len(snap.AdminAssignments)).
		Msg("输入数据规范化完成")

	return snap, nil
}

// SkillsOK 检查员工技能与需求技能是否有交集（大小写不敏感）
// 空需求恒满足
func SkillsOK(empSkills, required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(empSkills))
	for _, s := range empSkills {
		have[strings.ToLower(s)] = true
	}
	for _, r := range required {
		if have[strings.ToLower(r)] {
			return true
		}
	}
	return false
}

// EligibleOK 检查崗位资格：员工可任崗位与需求崗位互为子串即通过
// 未填写可任崗位视为全部可任
func EligibleOK(eligiblePosts []string, post string) bool {
	if len(eligiblePosts) == 0 {
		return true
	}
	p := strings.ToLower(post)
	for _, ep := range eligiblePosts {
		e := strings.ToLower(ep)
		if strings.Contains(p, e) || strings.Contains(e, p) {
			return true
		}
	}
	return false
}
