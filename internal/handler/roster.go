// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariscare/roster/internal/metrics"
	"github.com/ariscare/roster/internal/repository"
	"github.com/ariscare/roster/pkg/compliance"
	"github.com/ariscare/roster/pkg/errors"
	"github.com/ariscare/roster/pkg/logger"
	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/normalize"
	"github.com/ariscare/roster/pkg/rules"
	"github.com/ariscare/roster/pkg/scheduler"
)

// RosterHandler 排班处理器
type RosterHandler struct {
	jobs           *repository.SolveJobRepository // 可为 nil，此时不落库
	defaultTimeout time.Duration
	workers        int
}

// NewRosterHandler 创建排班处理器
func NewRosterHandler(jobs *repository.SolveJobRepository, defaultTimeout time.Duration, workers int) *RosterHandler {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	if workers <= 0 {
		workers = 8
	}
	return &RosterHandler{jobs: jobs, defaultTimeout: defaultTimeout, workers: workers}
}

// SolveOptions 求解选项
type SolveOptions struct {
	TimeoutSeconds int   `json:"timeout_seconds,omitempty"`
	Workers        int   `json:"workers,omitempty"`
	Seed           int64 `json:"seed,omitempty"`
}

// SolveRequest 排班求解请求
// 输入为各表的原始行，服务端负责清洗与规范化
type SolveRequest struct {
	Employees []normalize.RawEmployee `json:"employees"`
	Demand    []normalize.RawDemand   `json:"demand"`
	Presets   []normalize.RawPreset   `json:"presets,omitempty"`
	ShiftDefs []normalize.RawShiftDef `json:"shift_defs,omitempty"`
	Rules     []rules.RawRule         `json:"rules,omitempty"`
	Options   *SolveOptions           `json:"options,omitempty"`
}

// SolveResponse 排班求解响应
type SolveResponse struct {
	JobID          string              `json:"job_id"`
	Status         string              `json:"status"`
	Objective      int64               `json:"objective"`
	Summary        string              `json:"summary"`
	Assignments    []*model.Assignment `json:"final_assignments"`
	Complete       []*model.Assignment `json:"complete_assignments"`
	Audit          *model.Audit        `json:"audit"`
	HardViolations []model.Violation   `json:"hard_violations"`
	SoftViolations []model.Violation   `json:"soft_violations"`
	Report         string              `json:"report"`
	GapAnalysis    string              `json:"gap_analysis,omitempty"`
	Duration       string              `json:"duration"`
}

// Solve 求解排班
func (h *RosterHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	snap, err := normalize.Normalize(&normalize.Input{
		Employees: req.Employees,
		Demand:    req.Demand,
		Presets:   req.Presets,
		ShiftDefs: req.ShiftDefs,
	}, nil)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDataMissing, "输入数据不完整"))
		return
	}

	opts := scheduler.Options{
		TimeLimit: h.defaultTimeout,
		Workers:   h.workers,
	}
	if req.Options != nil {
		if req.Options.TimeoutSeconds > 0 {
			opts.TimeLimit = time.Duration(req.Options.TimeoutSeconds) * time.Second
		}
		if req.Options.Workers > 0 {
			opts.Workers = req.Options.Workers
		}
		opts.Seed = req.Options.Seed
	}

	metrics.IncActiveSolves()
	defer metrics.DecActiveSolves()

	out, err := scheduler.Solve(r.Context(), snap, req.Rules, opts)
	if err != nil {
		if err == context.DeadlineExceeded {
			respondError(w, errors.New(errors.CodeTimeout, "排班计算超时，请减少规模或放宽时间预算"))
			return
		}
		respondError(w, errors.Wrap(err, errors.CodeInternal, "排班求解失败"))
		return
	}

	rs := rules.Compile(req.Rules, nil)
	hard := compliance.CheckHard(out.Complete, snap)
	soft := compliance.CheckSoft(out.Complete, snap, rs, out.Audit.ByKey)
	report := compliance.GenerateReport(soft, out.Complete, snap, rs, out.Audit)
	gapAnalysis := ""
	if out.Audit.Summary.Gap > 0 {
		gapAnalysis = compliance.GenerateGapReport(snap, out.Audit.ByKey)
	}

	metrics.RecordSolve(out.Status.String(), out.Objective, out.WallTime)
	metrics.RecordViolations(len(hard), len(soft))
	metrics.SetCoverage(out.Audit.Summary.TotalDemand, out.Audit.Summary.Gap)

	h.persist(r.Context(), snap, out, report)

	respondJSON(w, http.StatusOK, SolveResponse{
		JobID:          out.JobID,
		Status:         out.Status.String(),
		Objective:      out.Objective,
		Summary:        out.Summary,
		Assignments:    out.Assignments,
		Complete:       out.Complete,
		Audit:          out.Audit,
		HardViolations: hard,
		SoftViolations: soft,
		Report:         report,
		GapAnalysis:    gapAnalysis,
		Duration:       out.WallTime.String(),
	})
}

// persist 尽力保存求解任务，失败只记日志
func (h *RosterHandler) persist(ctx context.Context, snap *model.Snapshot, out *scheduler.Outcome, report string) {
	if h.jobs == nil {
		return
	}
	startDate, endDate := "", ""
	if len(snap.Dates) > 0 {
		startDate = snap.Dates[0]
		endDate = snap.Dates[len(snap.Dates)-1]
	}
	job := &repository.SolveJob{
		JobID:       out.JobID,
		StartDate:   startDate,
		EndDate:     endDate,
		Status:      out.Status.String(),
		Objective:   out.Objective,
		TotalDemand: out.Audit.Summary.TotalDemand,
		Filled:      out.Audit.Summary.Filled,
		Gap:         out.Audit.Summary.Gap,
		Summary:     out.Summary,
		WallTimeMS:  out.WallTime.Milliseconds(),
		Report:      report,
	}
	if err := h.jobs.Create(ctx, job, out.Complete, out.Audit); err != nil {
		logger.Warn().Err(err).Str("job_id", out.JobID).Msg("求解任务落库失败")
	}
}

// CheckRequest 查核请求：对既有班表独立复核
type CheckRequest struct {
	Employees   []normalize.RawEmployee `json:"employees"`
	Demand      []normalize.RawDemand   `json:"demand"`
	Presets     []normalize.RawPreset   `json:"presets,omitempty"`
	ShiftDefs   []normalize.RawShiftDef `json:"shift_defs,omitempty"`
	Rules       []rules.RawRule         `json:"rules,omitempty"`
	Assignments []*model.Assignment     `json:"assignments"`
	Audit       []model.SlotAudit       `json:"audit,omitempty"`
}

// CheckResponse 查核响应
type CheckResponse struct {
	HardViolations []model.Violation `json:"hard_violations"`
	SoftViolations []model.Violation `json:"soft_violations"`
	Report         string            `json:"report"`
}

// Check 复核既有班表
func (h *RosterHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Assignments) == 0 {
		respondError(w, errors.New(errors.CodeInvalidInput, "指派列表不能为空"))
		return
	}

	snap, err := normalize.Normalize(&normalize.Input{
		Employees: req.Employees,
		Demand:    req.Demand,
		Presets:   req.Presets,
		ShiftDefs: req.ShiftDefs,
	}, nil)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDataMissing, "输入数据不完整"))
		return
	}

	rs := rules.Compile(req.Rules, nil)
	hard := compliance.CheckHard(req.Assignments, snap)
	soft := compliance.CheckSoft(req.Assignments, snap, rs, req.Audit)
	report := compliance.GenerateReport(soft, req.Assignments, snap, rs, &model.Audit{ByKey: req.Audit})

	metrics.RecordViolations(len(hard), len(soft))

	respondJSON(w, http.StatusOK, CheckResponse{
		HardViolations: hard,
		SoftViolations: soft,
		Report:         report,
	})
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}
