package solver

import (
	"context"
	"time"
)

// solveExhaustive 穷举全部判定变量组合
// 完整跑完可给出 OPTIMAL 或 INFEASIBLE 判定；
// 时间预算内未跑完则退化为 FEASIBLE 或 UNKNOWN
func (s *Solver) solveExhaustive(ctx context.Context, ev *evaluator, deadline time.Time) *Result {
	n := len(ev.decisions)
	total := uint64(1) << uint(n)
	decisions := make([]bool, n)

	var best *evalResult
	complete := true

	for mask := uint64(0); mask < total; mask++ {
		if mask%1024 == 0 {
			select {
			case <-ctx.Done():
				complete = false
				mask = total
				continue
			default:
			}
			if time.Now().After(deadline) {
				complete = false
				break
			}
		}
		for i := 0; i < n; i++ {
			decisions[i] = mask&(1<<uint(i)) != 0
		}
		r := ev.evaluate(decisions)
		if !r.feasible() {
			continue
		}
		if best == nil || r.objective < best.objective {
			best = r
		}
	}

	switch {
	case best == nil && complete:
		return &Result{Status: StatusInfeasible}
	case best == nil:
		return &Result{Status: StatusUnknown}
	case complete:
		return &Result{Status: StatusOptimal, Objective: best.objective, bools: best.bools, ints: best.ints}
	default:
		return &Result{Status: StatusFeasible, Objective: best.objective, bools: best.bools, ints: best.ints}
	}
}
