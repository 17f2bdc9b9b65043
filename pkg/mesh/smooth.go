package mesh

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Default smoother parameters.
const (
	DefaultKappa      = 2.4
	DefaultDt         = 0.05
	DefaultIterations = 20

	// parallelThreshold is the node count above which iterations are split
	// across workers.
	parallelThreshold = 4096
)

// Smoother runs explicit graph diffusion with a per-node drift term.
//
// Each iteration computes, for every node i with at least one neighbour,
//
//	next[i] = cur[i] + Dt*Kappa*(mean(cur[j] for j in N(i)) - cur[i]) + Dt*bias[i]
//
// and for isolated nodes only the drift term. The whole of next is computed
// from cur before the buffers swap.
type Smoother struct {
	Kappa      float64
	Dt         float64
	Iterations int

	// Workers caps parallelism for large meshes. Zero means GOMAXPROCS.
	Workers int
}

// DefaultSmoother returns a Smoother with kappa=2.4, dt=0.05, and 20 iterations.
func DefaultSmoother() Smoother {
	return Smoother{
		Kappa:      DefaultKappa,
		Dt:         DefaultDt,
		Iterations: DefaultIterations,
	}
}

// Smooth diffuses field0 over the mesh and returns a new field. A nil bias
// is treated as zero. field0 is not modified.
func (s Smoother) Smooth(ctx context.Context, m *Mesh, field0, bias []float64) ([]float64, error) {
	n := m.NodeCount()
	if len(field0) != n {
		return nil, fmt.Errorf("%w: field has %d entries, mesh has %d nodes", ErrLengthMismatch, len(field0), n)
	}
	if bias != nil && len(bias) != n {
		return nil, fmt.Errorf("%w: bias has %d entries, mesh has %d nodes", ErrLengthMismatch, len(bias), n)
	}

	cur := make([]float64, n)
	copy(cur, field0)
	next := make([]float64, n)

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	for it := 0; it < s.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n < parallelThreshold || workers == 1 {
			s.step(m, cur, next, bias, 0, n)
		} else if err := s.parallelStep(ctx, m, cur, next, bias, workers); err != nil {
			return nil, err
		}
		cur, next = next, cur
	}
	return cur, nil
}

func (s Smoother) parallelStep(ctx context.Context, m *Mesh, cur, next, bias []float64, workers int) error {
	n := len(cur)
	chunk := (n + workers - 1) / workers

	g, _ := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			s.step(m, cur, next, bias, lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// step writes next[lo:hi] from cur.
func (s Smoother) step(m *Mesh, cur, next, bias []float64, lo, hi int) {
	for i := lo; i < hi; i++ {
		v := cur[i]
		if nb := m.Neighbors(i); len(nb) > 0 {
			var sum float64
			for _, j := range nb {
				sum += cur[j]
			}
			mean := sum / float64(len(nb))
			v += s.Dt * s.Kappa * (mean - cur[i])
		}
		if bias != nil {
			v += s.Dt * bias[i]
		}
		next[i] = v
	}
}
