package llm

import (
	"context"
	"sync"

	"github.com/aden-hq/hive/internal/types"
)

// StaticProvider is a deterministic in-process provider for tests and
// offline use. Responses are keyed by instructions; unseeded instructions
// fail with a completion error.
type StaticProvider struct {
	name string

	mu        sync.RWMutex
	responses map[string]Response
	errs      map[string]error
}

// NewStaticProvider creates a StaticProvider with the given name.
func NewStaticProvider(name string) *StaticProvider {
	return &StaticProvider{
		name:      name,
		responses: make(map[string]Response),
		errs:      make(map[string]error),
	}
}

// Seed maps an instructions string to a canned response.
func (p *StaticProvider) Seed(instructions string, resp Response) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[instructions] = resp
	return p
}

// SeedError maps an instructions string to a canned failure.
func (p *StaticProvider) SeedError(instructions string, err error) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[instructions] = err
	return p
}

// Name implements Provider.
func (p *StaticProvider) Name() string {
	return p.name
}

// Complete implements Provider with canned, deterministic responses.
func (p *StaticProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if err, ok := p.errs[req.Instructions]; ok {
		return nil, err
	}
	if resp, ok := p.responses[req.Instructions]; ok {
		out := resp
		return &out, nil
	}
	return nil, types.NewError(ErrCompletionFailed, "no canned response for instructions")
}
