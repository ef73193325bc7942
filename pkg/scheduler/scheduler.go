package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ariscare/roster/pkg/logger"
	"github.com/ariscare/roster/pkg/model"
	"github.com/ariscare/roster/pkg/rules"
	"github.com/ariscare/roster/pkg/solver"
)

// Options 单次求解选项
type Options struct {
	TimeLimit time.Duration `json:"time_limit"` // 墙钟时间预算，唯一节流手段
	Workers   int           `json:"workers"`    // 求解器内部并行搜索数
	Seed      int64         `json:"seed"`       // 随机种子，0 取当前时间
}

// DefaultOptions 默认求解选项
func DefaultOptions() Options {
	return Options{
		TimeLimit: 30 * time.Second,
		Workers:   8,
	}
}

// Outcome 一次完整求解的产出
type Outcome struct {
	JobID       string              `json:"job_id"`
	Status      solver.Status       `json:"status"`
	Objective   int64               `json:"objective"`
	Assignments []*model.Assignment `json:"final_assignments"`
	Complete    []*model.Assignment `json:"complete_assignments"`
	Audit       *model.Audit        `json:"audit"`
	Summary     string              `json:"summary"`
	WallTime    time.Duration       `json:"wall_time"`
}

// Solve 构建约束模型、求解并提取排班结果
// 无可行解不是错误：返回零指派结果与说明性汇总文案，由调用方决策。
// 每次调用独立持有模型与日志句柄，可并发调用
func Solve(ctx context.Context, snap *model.Snapshot, ruleRows []rules.RawRule, opts Options) (*Outcome, error) {
	jobID := uuid.NewString()
	log := logger.NewSolveLogger(jobID)

	if opts.TimeLimit <= 0 {
		opts.TimeLimit = DefaultOptions().TimeLimit
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}

	log.StartSolve(len(snap.Employees), len(snap.Demand), opts.TimeLimit)

	rs := rules.Compile(ruleRows, log)
	b := newBuilder(snap, rs, log)
	m := b.build()

	sv := solver.New(solver.Config{
		TimeLimit: opts.TimeLimit,
		Workers:   opts.Workers,
		Seed:      opts.Seed,
	})
	res, err := sv.Solve(ctx, m)
	if err != nil {
		return nil, err
	}

	assignments, audit := b.extract(res)
	out := &Outcome{
		JobID:       jobID,
		Status:      res.Status,
		Objective:   res.Objective,
		Assignments: assignments,
		Complete:    CompleteAssignments(assignments, snap),
		Audit:       audit,
		Summary:     audit.Summary.SummaryText,
		WallTime:    res.WallTime,
	}

	log.SolveComplete(res.Status.String(), len(assignments), res.WallTime)
	return out, nil
}
