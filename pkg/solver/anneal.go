package solver

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"
)

// solveAnnealing 并行多起点模拟退火
// 每个工作协程独立演化一条搜索链，结束后取全局最优；
// 找到可行解报 FEASIBLE，否则报 UNKNOWN
func (s *Solver) solveAnnealing(ctx context.Context, ev *evaluator, deadline time.Time) *Result {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	results := make([]*evalResult, s.cfg.Workers)
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			chain := newAnnealChain(ev, s.cfg, seed+int64(w))
			results[w] = chain.run(ctx, deadline)
		}(w)
	}
	wg.Wait()

	var best *evalResult
	for _, r := range results {
		if r == nil {
			continue
		}
		if best == nil || r.score() < best.score() {
			best = r
		}
	}

	if best == nil || !best.feasible() {
		return &Result{Status: StatusUnknown}
	}
	return &Result{Status: StatusFeasible, Objective: best.objective, bools: best.bools, ints: best.ints}
}

// annealChain 单条模拟退火搜索链
type annealChain struct {
	ev   *evaluator
	cfg  Config
	rng  *rand.Rand
	tabu *tabuList
}

func newAnnealChain(ev *evaluator, cfg Config, seed int64) *annealChain {
	return &annealChain{
		ev:   ev,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(seed)),
		tabu: newTabuList(cfg.TabuSize),
	}
}

func (c *annealChain) run(ctx context.Context, deadline time.Time) *evalResult {
	n := len(c.ev.decisions)
	current := make([]bool, n)
	// 起点带少量随机扰动，各链从不同区域出发
	for i := range current {
		current[i] = c.rng.Intn(8) == 0
	}

	currentRes := c.ev.evaluate(current)
	best := currentRes
	bestDecisions := cloneBools(current)

	temperature := c.cfg.InitialTemp
	noImprovement := 0

	for iter := 0; iter < c.cfg.MaxIterations; iter++ {
		if iter%256 == 0 {
			select {
			case <-ctx.Done():
				return best
			default:
			}
			if time.Now().After(deadline) {
				return best
			}
		}

		// 邻域移动：翻转 1~3 个判定变量
		flips := c.pickFlips(n)
		applyFlips(current, flips)
		candidate := c.ev.evaluate(current)

		key := hashBools(current)
		accept := false
		if candidate.score() < currentRes.score() {
			accept = true
		} else if !c.tabu.contains(key) {
			delta := float64(candidate.score() - currentRes.score())
			if c.rng.Float64() < boltzmannProbability(delta, temperature) {
				accept = true
			}
		}

		if accept {
			currentRes = candidate
			c.tabu.add(key)
			if candidate.score() < best.score() {
				best = candidate
				bestDecisions = cloneBools(current)
				noImprovement = 0
			} else {
				noImprovement++
			}
		} else {
			// 回退翻转
			applyFlips(current, flips)
			noImprovement++
		}

		// 平台期重启：回到历史最优并重置温度
		if noImprovement >= c.cfg.PlateauLimit {
			copy(current, bestDecisions)
			currentRes = best
			temperature = c.cfg.InitialTemp
			noImprovement = 0
			c.tabu.clear()
			continue
		}

		temperature *= c.cfg.CoolingRate
	}

	return best
}

// pickFlips 随机选取待翻转的变量下标
func (c *annealChain) pickFlips(n int) []int {
	count := 1 + c.rng.Intn(3)
	if count > n {
		count = n
	}
	flips := make([]int, count)
	for i := range flips {
		flips[i] = c.rng.Intn(n)
	}
	return flips
}

func applyFlips(bits []bool, flips []int) {
	for _, i := range flips {
		bits[i] = !bits[i]
	}
}

func cloneBools(b []bool) []bool {
	out := make([]bool, len(b))
	copy(out, b)
	return out
}

// hashBools 位向量哈希 (FNV-1a)
func hashBools(bits []bool) uint64 {
	h := fnv.New64a()
	var buf [1]byte
	for _, b := range bits {
		buf[0] = 0
		if b {
			buf[0] = 1
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

// boltzmannProbability 模拟退火接受概率
// delta 为能量差 (new - old)，temperature 为当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// tabuList 禁忌表，以解哈希为键
type tabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
}

func newTabuList(size int) *tabuList {
	return &tabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

func (t *tabuList) add(key uint64) {
	if _, exists := t.items[key]; exists {
		return
	}
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}
	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

func (t *tabuList) contains(key uint64) bool {
	_, exists := t.items[key]
	return exists
}

func (t *tabuList) clear() {
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
