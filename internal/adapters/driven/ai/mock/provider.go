// Package mock provides a deterministic AI provider for tests and offline runs.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.AIProvider = (*Provider)(nil)

// Responder answers one request.
type Responder func(req driven.GenerateRequest) (json.RawMessage, error)

// Response is one scripted answer.
type Response struct {
	Body string
	Err  error
}

// Provider records every request and answers through its Responder.
type Provider struct {
	mu         sync.Mutex
	respond    Responder
	multiField bool
	calls      []driven.GenerateRequest
}

// New creates a mock provider. A nil responder uses Offline.
func New(respond Responder) *Provider {
	if respond == nil {
		respond = Offline()
	}
	return &Provider{respond: respond, multiField: true}
}

// SetMultiField sets the reported multi-field capability.
func (p *Provider) SetMultiField(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.multiField = v
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// Capabilities returns the configured capabilities.
func (p *Provider) Capabilities() driven.AICapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return driven.AICapabilities{MultiField: p.multiField}
}

// Generate records req and returns the responder's answer.
func (p *Provider) Generate(ctx context.Context, req driven.GenerateRequest) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.calls = append(p.calls, req)
	respond := p.respond
	p.mu.Unlock()
	return respond(req)
}

// Calls returns a copy of the recorded requests.
func (p *Provider) Calls() []driven.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]driven.GenerateRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of requests for task, or all requests when task is empty.
func (p *Provider) CallCount(task string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if task == "" {
		return len(p.calls)
	}
	n := 0
	for _, c := range p.calls {
		if c.Task == task {
			n++
		}
	}
	return n
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

// Sequence answers with responses in order, repeating the last one.
func Sequence(responses ...Response) Responder {
	var mu sync.Mutex
	i := 0
	return func(driven.GenerateRequest) (json.RawMessage, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(responses) == 0 {
			return nil, fmt.Errorf("%w: mock has no responses", domain.ErrEnhancementProvider)
		}
		r := responses[i]
		if i < len(responses)-1 {
			i++
		}
		return json.RawMessage(r.Body), r.Err
	}
}

// ByTask routes requests to a responder per task name.
func ByTask(routes map[string]Responder) Responder {
	return func(req driven.GenerateRequest) (json.RawMessage, error) {
		r, ok := routes[req.Task]
		if !ok {
			return nil, fmt.Errorf("%w: mock has no route for task %q", domain.ErrEnhancementProvider, req.Task)
		}
		return r(req)
	}
}

// Offline answers from the request context alone: enhanced titles gain the
// source name, excerpts are rebuilt from the title, and every record is
// classified as General with moderate confidence.
func Offline() Responder {
	return func(req driven.GenerateRequest) (json.RawMessage, error) {
		out := make(map[string]any)
		switch req.Task {
		case "classify":
			out["category"] = string(domain.CategoryGeneral)
			out["confidence"] = 0.6
		default:
			title := strings.TrimSpace(req.Context["title"])
			for _, target := range req.Targets {
				switch target {
				case string(domain.FieldTitle):
					out[target] = strings.TrimSpace(title + " | " + req.Context["source"])
				case string(domain.FieldExcerpt):
					out[target] = strings.TrimSpace("Read more about " + title + ". " + req.Context["excerpt"])
				}
			}
		}
		return json.Marshal(out)
	}
}
