package billing

import (
	"context"
	"sync"
)

// MemoryGuard SubmissionGuard en memoria; suficiente con una sola instancia de la API.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, invoiceID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[invoiceID]; ok {
		return nil, ErrAlreadySubmitting
	}
	g.held[invoiceID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, invoiceID)
			g.mu.Unlock()
		})
	}, nil
}
