// Package pipeline runs client-side row transformations over a listing page.
package pipeline

import "fmt"

// Stage narrows or reorders rows. Stages must not modify rows in place.
type Stage[T any] func(rows []T) ([]T, error)

// Pipeline is an ordered list of stages.
type Pipeline[T any] struct {
	stages []Stage[T]
}

// New creates a pipeline with the given stages.
func New[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{stages: stages}
}

// AddStage appends a stage. Stages run in registration order.
func (p *Pipeline[T]) AddStage(stage Stage[T]) {
	p.stages = append(p.stages, stage)
}

// Len returns the number of stages.
func (p *Pipeline[T]) Len() int {
	return len(p.stages)
}

// Run folds every stage over a copy of raw. The first failing stage aborts
// the run.
func (p *Pipeline[T]) Run(raw []T) ([]T, error) {
	rows := make([]T, len(raw))
	copy(rows, raw)

	for i, stage := range p.stages {
		next, err := stage(rows)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %d: %w", i, err)
		}

		rows = next
	}

	return rows, nil
}

// Filter returns a stage keeping the rows for which keep returns true.
func Filter[T any](keep func(T) bool) Stage[T] {
	return func(rows []T) ([]T, error) {
		kept := make([]T, 0, len(rows))

		for _, row := range rows {
			if keep(row) {
				kept = append(kept, row)
			}
		}

		return kept, nil
	}
}
