package filter

import (
	"context"

	"github.com/abelbrown/fmconsole/internal/model"
)

// Stage transforms a record set. Stages are the building blocks of a
// Pipeline.
//
// Implementations must not modify the input slice and should return
// ctx.Err() promptly once ctx is cancelled.
type Stage interface {
	Name() string
	Run(ctx context.Context, records []model.Record) ([]model.Record, error)
}

// checkEvery is how often (in records) long loops look at ctx.
const checkEvery = 1000

// SyncStage adapts a plain function into a Stage.
type SyncStage struct {
	name string
	fn   func(ctx context.Context, records []model.Record) ([]model.Record, error)
}

// NewSyncStage creates a Stage from fn.
func NewSyncStage(name string, fn func(ctx context.Context, records []model.Record) ([]model.Record, error)) *SyncStage {
	return &SyncStage{name: name, fn: fn}
}

func (s *SyncStage) Name() string { return s.name }

func (s *SyncStage) Run(ctx context.Context, records []model.Record) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fn(ctx, records)
}

// TextStage is the free-text search as a Stage.
func TextStage(term string, fields []string) Stage {
	return NewSyncStage("text", func(ctx context.Context, records []model.Record) ([]model.Record, error) {
		if len(records) <= checkEvery {
			return Text(records, term, fields), nil
		}
		return chunked(ctx, records, func(chunk []model.Record) []model.Record {
			return Text(chunk, term, fields)
		})
	})
}

// PredicateStage is the structured filter as a Stage.
func PredicateStage(predicates map[string]Predicate) Stage {
	return NewSyncStage("predicates", func(ctx context.Context, records []model.Record) ([]model.Record, error) {
		if len(records) <= checkEvery {
			return Structured(records, predicates), nil
		}
		return chunked(ctx, records, func(chunk []model.Record) []model.Record {
			return Structured(chunk, predicates)
		})
	})
}

// SortStage is Sort as a Stage. Sorting is not interruptible; ctx is only
// checked before it starts.
func SortStage(key string, dir model.SortDirection) Stage {
	return NewSyncStage("sort", func(_ context.Context, records []model.Record) ([]model.Record, error) {
		return Sort(records, key, dir), nil
	})
}

// chunked runs fn over blocks of checkEvery records, checking ctx between
// blocks. Outputs are concatenated in order.
func chunked(ctx context.Context, records []model.Record, fn func([]model.Record) []model.Record) ([]model.Record, error) {
	result := make([]model.Record, 0, len(records))
	for start := 0; start < len(records); start += checkEvery {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+checkEvery, len(records))
		result = append(result, fn(records[start:end:end])...)
	}
	return result, nil
}

// Pipeline runs stages in order.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline. nil stages are skipped.
func NewPipeline(stages ...Stage) *Pipeline {
	p := &Pipeline{}
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}
	return p
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run feeds records through every stage. On error the partial result is
// discarded.
func (p *Pipeline) Run(ctx context.Context, records []model.Record) ([]model.Record, error) {
	out := records
	for _, s := range p.stages {
		var err error
		out, err = s.Run(ctx, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
