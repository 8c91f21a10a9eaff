package mock

import (
	"context"
	"sync"

	"github.com/ahnaf005/llm-bug-report/internal/artifact"
)

// Provider is an in-memory artifact.Provider for tests.
type Provider struct {
	Records  []artifact.Record
	Diffs    map[string]artifact.Diff
	Logs     map[string]string
	DiffErr  map[string]error
	LogErr   map[string]error
	FindErr  map[string]error
	FilterFn func(ctx context.Context, q artifact.Query) ([]artifact.Record, error)

	mu    sync.Mutex
	calls []string
}

// Calls returns the operations invoked, in order ("diff:<id>", "log:<job>", ...).
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Provider) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *Provider) Filter(ctx context.Context, q artifact.Query) ([]artifact.Record, error) {
	p.record("filter")
	if p.FilterFn != nil {
		return p.FilterFn(ctx, q)
	}
	return append([]artifact.Record(nil), p.Records...), nil
}

func (p *Provider) Find(ctx context.Context, id string) (artifact.Record, error) {
	p.record("find:" + id)
	if err := p.FindErr[id]; err != nil {
		return artifact.Record{}, err
	}
	for _, r := range p.Records {
		if r.ImageTag == id {
			return r, nil
		}
	}
	return artifact.Record{}, artifact.NotFound("artifact", id)
}

func (p *Provider) Diff(ctx context.Context, id string) (artifact.Diff, error) {
	p.record("diff:" + id)
	if err := p.DiffErr[id]; err != nil {
		return nil, err
	}
	return p.Diffs[id], nil
}

func (p *Provider) BuildLog(ctx context.Context, jobID string) (string, error) {
	p.record("log:" + jobID)
	if err := p.LogErr[jobID]; err != nil {
		return "", err
	}
	log, ok := p.Logs[jobID]
	if !ok {
		return "", artifact.NotFound("build log", jobID)
	}
	return log, nil
}
