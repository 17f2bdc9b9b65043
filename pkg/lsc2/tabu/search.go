package tabu

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Default search limits.
const (
	DefaultTabuLength       = 300
	DefaultMaxStall         = 400
	DefaultProgressInterval = 100

	// parallelThreshold is the changeable-node count above which benefits
	// are computed by several workers.
	parallelThreshold = 8192
)

// Progress reports the state of a running search.
type Progress struct {
	Iteration int
	Objective float64
	Best      float64
	Stall     int
}

// Result is the outcome of [Search.Optimize].
type Result struct {
	NLayer     []int   // best assignment found
	Initial    float64 // objective of the initial assignment
	Best       float64 // objective of NLayer
	Iterations int
	Changeable int
	Eligible   int
	Stalled    bool // stopped by the stall limit rather than running out of moves
}

// Improved reports whether the search lowered the objective.
func (r *Result) Improved() bool { return r.Best < r.Initial }

// Search is a tabu search over the per-node +1 layer decisions.
//
// Every iteration evaluates, for each changeable node, the objective
// decrease from flipping its decision. Moves whose reverse is on the tabu
// list are masked. The best move (lowest node index on ties) is taken even
// if it worsens the objective, and pushed onto the tabu list. The search
// stops after MaxStall iterations without beating the best objective, or
// when every move is masked, and returns the best assignment seen.
type Search struct {
	TabuLength int
	MaxStall   int

	// Workers caps parallelism of the benefit computation. Zero means
	// GOMAXPROCS.
	Workers int

	// OnProgress, if set, is called every ProgressInterval iterations.
	OnProgress       func(Progress)
	ProgressInterval int
}

// DefaultSearch returns a Search with a 300-move tabu list and a 400
// iteration stall limit.
func DefaultSearch() *Search {
	return &Search{
		TabuLength:       DefaultTabuLength,
		MaxStall:         DefaultMaxStall,
		ProgressInterval: DefaultProgressInterval,
	}
}

// Optimize runs the search. If no node is changeable the initial
// assignment is returned unchanged. On context cancellation the best
// assignment so far is returned together with the context error.
func (s *Search) Optimize(ctx context.Context, p *Problem) (*Result, error) {
	cur := p.Initial()
	obj := p.Objective(cur)
	res := &Result{
		NLayer:     p.Initial(),
		Initial:    obj,
		Best:       obj,
		Changeable: len(p.movable),
		Eligible:   len(p.edges),
	}
	if len(p.movable) == 0 {
		return res, nil
	}

	active := make([]bool, p.NodeCount())
	tabu := newTabuList(s.TabuLength)
	benefits := make([]float64, len(p.movable))
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	stall := 0
	for stall < s.MaxStall {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.evaluate(ctx, p, cur, active, tabu, benefits, workers); err != nil {
			return res, err
		}

		pick := argmax(benefits)
		if pick < 0 {
			break
		}
		i := p.movable[pick]
		if active[i] {
			cur[i]--
			tabu.push(-(i + 1))
		} else {
			cur[i]++
			tabu.push(i + 1)
		}
		active[i] = !active[i]
		obj -= benefits[pick]
		res.Iterations++

		if obj < res.Best {
			res.Best = obj
			copy(res.NLayer, cur)
			stall = 0
		} else {
			stall++
		}

		if s.OnProgress != nil && s.ProgressInterval > 0 && res.Iterations%s.ProgressInterval == 0 {
			s.OnProgress(Progress{Iteration: res.Iterations, Objective: obj, Best: res.Best, Stall: stall})
		}
	}
	res.Stalled = stall >= s.MaxStall
	return res, nil
}

// evaluate fills benefits for every changeable node from the current
// assignment, with -Inf for masked moves. It only reads cur, active, and
// tabu.
func (s *Search) evaluate(ctx context.Context, p *Problem, cur []int, active []bool, tabu *tabuList, benefits []float64, workers int) error {
	fill := func(lo, hi int) {
		for k := lo; k < hi; k++ {
			i := p.movable[k]
			move, next := i+1, cur[i]+1
			if active[i] {
				move, next = -(i + 1), cur[i]-1
			}
			if tabu.contains(-move) {
				benefits[k] = math.Inf(-1)
				continue
			}
			benefits[k] = p.flipBenefit(i, next, cur)
		}
	}

	n := len(p.movable)
	if n < parallelThreshold || workers == 1 {
		fill(0, n)
		return nil
	}

	chunk := (n + workers - 1) / workers
	g, _ := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fill(lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// argmax returns the index of the first largest finite value, or -1 if
// every value is -Inf.
func argmax(v []float64) int {
	best, idx := math.Inf(-1), -1
	for k, x := range v {
		if x > best {
			best, idx = x, k
		}
	}
	return idx
}

// tabuList is a bounded FIFO of recent moves with O(1) membership.
type tabuList struct {
	moves []int
	head  int
	size  int
	count map[int]int
}

func newTabuList(capacity int) *tabuList {
	return &tabuList{
		moves: make([]int, max(capacity, 0)),
		count: make(map[int]int),
	}
}

func (t *tabuList) push(move int) {
	if len(t.moves) == 0 {
		return
	}
	if t.size == len(t.moves) {
		old := t.moves[t.head]
		t.count[old]--
		if t.count[old] == 0 {
			delete(t.count, old)
		}
		t.head = (t.head + 1) % len(t.moves)
		t.size--
	}
	t.moves[(t.head+t.size)%len(t.moves)] = move
	t.size++
	t.count[move]++
}

func (t *tabuList) contains(move int) bool { return t.count[move] > 0 }
