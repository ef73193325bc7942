package solver

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ariscare/roster/pkg/logger"
)

// Status 求解状态
type Status int

const (
	// StatusUnknown 时间耗尽且未找到可行解
	StatusUnknown Status = iota
	// StatusOptimal 已证明最优
	StatusOptimal
	// StatusFeasible 找到可行解但未证明最优（时间受限）
	StatusFeasible
	// StatusInfeasible 已证明无可行解
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	default:
		return "UNKNOWN"
	}
}

// HasSolution 状态携带可用变量取值
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Config 求解配置
type Config struct {
	TimeLimit       time.Duration `json:"time_limit"`        // 墙钟时间预算
	Workers         int           `json:"workers"`           // 并行搜索工作数
	Seed            int64         `json:"seed"`              // 随机种子，0 取当前时间
	ExhaustiveLimit int           `json:"exhaustive_limit"`  // 判定变量数不超过该值时走穷举
	MaxIterations   int           `json:"max_iterations"`    // 退火最大迭代次数
	InitialTemp     float64       `json:"initial_temp"`      // 退火初始温度
	CoolingRate     float64       `json:"cooling_rate"`      // 冷却速率
	TabuSize        int           `json:"tabu_size"`         // 禁忌表大小
	PlateauLimit    int           `json:"plateau_limit"`     // 平台期阈值（无改进迭代次数）
}

// DefaultConfig 默认求解配置
func DefaultConfig() Config {
	return Config{
		TimeLimit:       30 * time.Second,
		Workers:         4,
		Seed:            0,
		ExhaustiveLimit: 22,
		MaxIterations:   200000,
		InitialTemp:     1e6,
		CoolingRate:     0.9995,
		TabuSize:        64,
		PlateauLimit:    20000,
	}
}

// Result 求解结果
type Result struct {
	Status    Status
	Objective int64
	WallTime  time.Duration

	bools []bool
	ints  []int64
}

// BoolValue 读取布尔变量取值，无解时恒为 false
func (r *Result) BoolValue(v BoolVar) bool {
	if r.bools == nil || int(v) >= len(r.bools) {
		return false
	}
	return r.bools[v]
}

// IntValue 读取整数变量取值，无解时恒为 0
func (r *Result) IntValue(v IntVar) int64 {
	if r.ints == nil || int(v) >= len(r.ints) {
		return 0
	}
	return r.ints[v]
}

// Solver 约束求解器
// 小模型穷举可给出 OPTIMAL/INFEASIBLE 判定，
// 大模型并行多起点退火只给出 FEASIBLE/UNKNOWN
type Solver struct {
	cfg Config
	log *zerolog.Logger
}

// New 创建求解器
func New(cfg Config) *Solver {
	def := DefaultConfig()
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = def.TimeLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ExhaustiveLimit <= 0 {
		cfg.ExhaustiveLimit = def.ExhaustiveLimit
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.InitialTemp <= 0 {
		cfg.InitialTemp = def.InitialTemp
	}
	if cfg.CoolingRate <= 0 || cfg.CoolingRate >= 1 {
		cfg.CoolingRate = def.CoolingRate
	}
	if cfg.TabuSize <= 0 {
		cfg.TabuSize = def.TabuSize
	}
	if cfg.PlateauLimit <= 0 {
		cfg.PlateauLimit = def.PlateauLimit
	}
	return &Solver{cfg: cfg, log: logger.Get()}
}

// Solve 求解模型
// 时间预算是唯一节流手段，预算内尽力搜索；
// ctx 取消时提前返回当前最优结果
func (s *Solver) Solve(ctx context.Context, m *Model) (*Result, error) {
	start := time.Now()

	ev, err := newEvaluator(m)
	if err != nil {
		return nil, err
	}

	deadline := start.Add(s.cfg.TimeLimit)
	s.log.Debug().
		Int("bools", m.NumBools()).
		Int("decisions", len(ev.decisions)).
		Int("ints", m.NumInts()).
		Msg("开始求解约束模型")

	var res *Result
	if len(ev.decisions) <= s.cfg.ExhaustiveLimit {
		res = s.solveExhaustive(ctx, ev, deadline)
	} else {
		res = s.solveAnnealing(ctx, ev, deadline)
	}
	res.WallTime = time.Since(start)

	s.log.Debug().
		Str("status", res.Status.String()).
		Int64("objective", res.Objective).
		Dur("wall_time", res.WallTime).
		Msg("约束模型求解结束")
	return res, nil
}
