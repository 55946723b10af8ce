package portstest

import (
	"context"
	"strings"
	"sync"

	"TruthFilter/internal/ports"
)

// LanguageModel answers prompts through Respond and records every request.
type LanguageModel struct {
	Respond func(req ports.GenerateRequest) (ports.Generation, error)

	mu       sync.Mutex
	Requests []ports.GenerateRequest
}

var _ ports.LanguageModel = (*LanguageModel)(nil)

func (m *LanguageModel) GenerateContent(_ context.Context, req ports.GenerateRequest) (ports.Generation, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Respond == nil {
		return ports.Generation{}, nil
	}
	return m.Respond(req)
}

// Calls returns how many requests used model.
func (m *LanguageModel) Calls(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.Requests {
		if r.Model == model {
			n++
		}
	}
	return n
}

// PromptContains reports whether any recorded prompt contains fragment.
func (m *LanguageModel) PromptContains(fragment string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Requests {
		if strings.Contains(r.Prompt, fragment) {
			return true
		}
	}
	return false
}
