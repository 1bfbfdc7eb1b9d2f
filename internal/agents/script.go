package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campflow/campflow/pkg/api"
)

// ScriptedPort replays canned responses per role, in order. It is the
// offline stand-in for real agent backends in tests and demos.
type ScriptedPort struct {
	mu      sync.Mutex
	queues  map[api.Role][]scripted
	calls   map[api.Role]int
	Latency time.Duration // optional per-call delay, context-aware
}

type scripted struct {
	text string
	err  error
}

// NewScriptedPort creates an empty ScriptedPort.
func NewScriptedPort() *ScriptedPort {
	return &ScriptedPort{
		queues: make(map[api.Role][]scripted),
		calls:  make(map[api.Role]int),
	}
}

// Respond queues a successful response for the role.
func (p *ScriptedPort) Respond(role api.Role, text string) *ScriptedPort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues[role] = append(p.queues[role], scripted{text: text})
	return p
}

// Fail queues a failing invocation for the role.
func (p *ScriptedPort) Fail(role api.Role, err error) *ScriptedPort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues[role] = append(p.queues[role], scripted{err: err})
	return p
}

// Calls returns how many invocations the role has received.
func (p *ScriptedPort) Calls(role api.Role) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[role]
}

// Invoke pops the next scripted response for the role. Running out of
// responses is an agent failure, so a test that over-invokes fails loudly.
func (p *ScriptedPort) Invoke(ctx context.Context, role api.Role, prompt api.Prompt) (string, error) {
	if p.Latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.Latency):
		}
	}

	p.mu.Lock()
	p.calls[role]++
	q := p.queues[role]
	if len(q) == 0 {
		p.mu.Unlock()
		return "", api.NewAgentError(role, fmt.Errorf("no scripted response left (call %d)", p.calls[role]))
	}
	next := q[0]
	p.queues[role] = q[1:]
	p.mu.Unlock()

	if next.err != nil {
		return "", api.NewAgentError(role, next.err)
	}
	return next.text, nil
}
