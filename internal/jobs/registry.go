package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Scope carries the claimed job and a logger pre-tagged with its identity
// into the handler.
type Scope struct {
	Job entity.BackgroundJob
	Log *logrus.Entry
}

// HandlerFunc is a type-erased job handler over the raw stored payload.
// Register wraps typed handlers into this form.
type HandlerFunc func(ctx context.Context, scope Scope, payload []byte) (datatypes.JSON, error)

// Registry maps job types to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register installs a typed handler for jobType. The payload is unmarshaled
// into T before the handler runs and the returned value is marshaled into the
// job's result column.
//
// Package-level because Go does not allow generic methods.
func Register[T any](r *Registry, jobType string, handler func(ctx context.Context, scope Scope, payload T) (any, error)) {
	wrapped := func(ctx context.Context, scope Scope, raw []byte) (datatypes.JSON, error) {
		var payload T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, fmt.Errorf("decode %s payload: %w", jobType, err)
			}
		}
		out, err := handler(ctx, scope, payload)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("encode %s result: %w", jobType, err)
		}
		return datatypes.JSON(data), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = wrapped
}

// Get returns the handler for jobType, false when none is registered.
func (r *Registry) Get(jobType string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types returns all registered job types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
