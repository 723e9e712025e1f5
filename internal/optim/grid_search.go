// Package optim searches controller gains against a scalar objective.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ErrNoFeasible is returned when every evaluation failed.
var ErrNoFeasible = errors.New("optim: no parameter set could be evaluated")

type Param struct {
	Name   string
	Values []float64
}

// Objective scores one parameter set; lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type Result struct {
	Best  map[string]float64
	Score float64
	// Trials are sorted by score, failed trials last.
	Trials []Trial
}

type GridSearch struct {
	params  []Param
	workers int
}

// NewGridSearch evaluates the cartesian product of params with up to workers
// objectives in flight; workers < 1 means one.
func NewGridSearch(params []Param, workers int) (*GridSearch, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("optim: no parameters to search")
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("optim: parameter %s has no values", p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("optim: parameter %s given twice", p.Name)
		}
		seen[p.Name] = true
	}
	if workers < 1 {
		workers = 1
	}
	return &GridSearch{params: params, workers: workers}, nil
}

// Points returns every parameter combination.
func (g *GridSearch) Points() []map[string]float64 {
	var points []map[string]float64
	g.collect(0, make(map[string]float64), &points)
	return points
}

func (g *GridSearch) collect(depth int, current map[string]float64, points *[]map[string]float64) {
	if depth == len(g.params) {
		*points = append(*points, current)
		return
	}

	p := g.params[depth]
	for _, val := range p.Values {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[p.Name] = val

		g.collect(depth+1, newParams, points)
	}
}

// Search evaluates every point. A failing or non-finite evaluation is kept
// as a failed trial and does not stop the search.
func (g *GridSearch) Search(ctx context.Context, obj Objective) (*Result, error) {
	points := g.Points()
	trials := make([]Trial, len(points))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, params := range points {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := obj(gctx, params)
			if err == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
				err = fmt.Errorf("non-finite score %v", score)
			}
			trials[i] = Trial{Params: params, Score: score, Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(trials, func(i, j int) bool {
		a, b := trials[i], trials[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		return a.Score < b.Score
	})

	if trials[0].Err != nil {
		return &Result{Trials: trials, Score: math.Inf(1)}, ErrNoFeasible
	}
	return &Result{Best: trials[0].Params, Score: trials[0].Score, Trials: trials}, nil
}
