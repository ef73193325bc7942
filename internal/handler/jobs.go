package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ariscare/roster/internal/repository"
	"github.com/ariscare/roster/pkg/errors"
)

// JobsHandler 求解任务历史处理器
type JobsHandler struct {
	jobs *repository.SolveJobRepository
}

// NewJobsHandler 创建任务历史处理器
func NewJobsHandler(jobs *repository.SolveJobRepository) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// JobListResponse 任务列表响应
type JobListResponse struct {
	Jobs  []*repository.SolveJob `json:"jobs"`
	Total int                    `json:"total"`
}

// JobDetailResponse 任务详情响应
type JobDetailResponse struct {
	Job         *repository.SolveJob `json:"job"`
	Assignments interface{}          `json:"assignments,omitempty"`
}

// List 列出历史求解任务
// GET /api/v1/jobs?status=&start_date=&end_date=&offset=&limit=
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	if h.jobs == nil {
		respondError(w, errors.New(errors.CodeDatabaseError, "未配置数据库，历史记录不可用"))
		return
	}

	q := r.URL.Query()
	filter := repository.DefaultListFilter().
		WithStatus(q.Get("status")).
		WithDateRange(q.Get("start_date"), q.Get("end_date"))
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter = filter.WithLimit(v)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter = filter.WithOffset(v)
	}

	jobs, total, err := h.jobs.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询任务列表失败"))
		return
	}

	respondJSON(w, http.StatusOK, JobListResponse{Jobs: jobs, Total: total})
}

// Detail 按路径分发单个任务的查询与删除
// GET/DELETE /api/v1/jobs/{job_id}
func (h *JobsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, errors.New(errors.CodeDatabaseError, "未配置数据库，历史记录不可用"))
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		respondError(w, errors.New(errors.CodeInvalidInput, "任务ID无效"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := h.jobs.GetByJobID(r.Context(), jobID)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询任务失败"))
			return
		}
		if job == nil {
			respondError(w, errors.New(errors.CodeNotFound, "任务不存在"))
			return
		}
		assignments, err := h.jobs.GetAssignments(r.Context(), jobID)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询指派失败"))
			return
		}
		respondJSON(w, http.StatusOK, JobDetailResponse{Job: job, Assignments: assignments})

	case http.MethodDelete:
		if err := h.jobs.Delete(r.Context(), jobID); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除任务失败"))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": jobID})

	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET或DELETE方法"))
	}
}
