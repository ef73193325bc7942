package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ariscare/roster/pkg/model"
)

// SolveJob 求解任务记录
// 保存一次完整求解的输入摘要、结果与查核报告，供追溯与重新下载
type SolveJob struct {
	ID          uuid.UUID `json:"id"`
	JobID       string    `json:"job_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Status      string    `json:"status"` // OPTIMAL/FEASIBLE/INFEASIBLE/UNKNOWN
	Objective   int64     `json:"objective"`
	TotalDemand int       `json:"total_demand"`
	Filled      int       `json:"filled"`
	Gap         int       `json:"gap"`
	Summary     string    `json:"summary"`
	WallTimeMS  int64     `json:"wall_time_ms"`
	Report      string    `json:"report,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SolveJobRepository 求解任务仓储
type SolveJobRepository struct {
	db DB
}

// NewSolveJobRepository 创建求解任务仓储
func NewSolveJobRepository(db DB) *SolveJobRepository {
	return &SolveJobRepository{db: db}
}

// Create 保存求解任务及其指派结果
func (r *SolveJobRepository) Create(ctx context.Context, job *SolveJob, assignments []*model.Assignment, audit *model.Audit) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.CreatedAt = time.Now()

	assignmentsJSON, err := json.Marshal(assignments)
	if err != nil {
		return fmt.Errorf("序列化指派结果失败: %w", err)
	}
	auditJSON, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("序列化审核结果失败: %w", err)
	}

	query := `
		INSERT INTO solve_jobs (
			id, job_id, start_date, end_date, status, objective,
			total_demand, filled, gap, summary, wall_time_ms,
			assignments, audit, report, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		job.ID, job.JobID, job.StartDate, job.EndDate, job.Status, job.Objective,
		job.TotalDemand, job.Filled, job.Gap, job.Summary, job.WallTimeMS,
		assignmentsJSON, auditJSON, job.Report, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存求解任务失败: %w", err)
	}

	return nil
}

// GetByJobID 按任务标识获取求解任务
func (r *SolveJobRepository) GetByJobID(ctx context.Context, jobID string) (*SolveJob, error) {
	query := `
		SELECT id, job_id, start_date, end_date, status, objective,
			total_demand, filled, gap, summary, wall_time_ms, report, created_at
		FROM solve_jobs
		WHERE job_id = $1
	`
	return scanSolveJob(r.db.QueryRowContext(ctx, query, jobID))
}

// GetAssignments 按任务标识获取保存的指派结果
func (r *SolveJobRepository) GetAssignments(ctx context.Context, jobID string) ([]*model.Assignment, error) {
	query := `SELECT assignments FROM solve_jobs WHERE job_id = $1`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, jobID).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("查询指派结果失败: %w", err)
	}

	var assignments []*model.Assignment
	if err := json.Unmarshal(raw, &assignments); err != nil {
		return nil, fmt.Errorf("反序列化指派结果失败: %w", err)
	}
	return assignments, nil
}

// List 按过滤器列出求解任务
func (r *SolveJobRepository) List(ctx context.Context, filter ListFilter) ([]*SolveJob, int, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", argIdx))
		args = append(args, filter.StartDate)
		argIdx++
	}
	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", argIdx))
		args = append(args, filter.EndDate)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM solve_jobs " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计求解任务失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		orderDir = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT id, job_id, start_date, end_date, status, objective,
			total_demand, filled, gap, summary, wall_time_ms, report, created_at
		FROM solve_jobs %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, orderBy, orderDir, argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询求解任务失败: %w", err)
	}
	defer rows.Close()

	var jobs []*SolveJob
	for rows.Next() {
		job, err := scanSolveJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("遍历求解任务失败: %w", err)
	}

	return jobs, total, nil
}

// Delete 按任务标识删除求解任务
func (r *SolveJobRepository) Delete(ctx context.Context, jobID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM solve_jobs WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("删除求解任务失败: %w", err)
	}
	return nil
}

func scanSolveJob(s Scanner) (*SolveJob, error) {
	var job SolveJob
	err := s.Scan(
		&job.ID, &job.JobID, &job.StartDate, &job.EndDate, &job.Status, &job.Objective,
		&job.TotalDemand, &job.Filled, &job.Gap, &job.Summary, &job.WallTimeMS,
		&job.Report, &job.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("扫描求解任务失败: %w", err)
	}
	return &job, nil
}
