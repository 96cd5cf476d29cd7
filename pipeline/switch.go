package pipeline

import (
	"fmt"
	"sync"
	"time"

	"context"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

const (
	SwitchProcessedTotal = metricz.Key("switch.processed.total")
	SwitchRoutedTotal    = metricz.Key("switch.routed.total")
	SwitchUnroutedTotal  = metricz.Key("switch.unrouted.total")
	SwitchDurationMs     = metricz.Key("switch.duration.ms")

	SwitchProcessSpan = tracez.Key("switch.process")
	SwitchTagRouteKey = tracez.Tag("switch.route_key")
	SwitchTagRouted   = tracez.Tag("switch.routed")

	SwitchEventRouted   = hookz.Key("switch.routed")
	SwitchEventUnrouted = hookz.Key("switch.unrouted")
)

// SwitchEvent describes one routing decision made by a Switch.
type SwitchEvent[K comparable] struct {
	Name          Name
	RouteKey      K
	ProcessorName Name
	Routed        bool
	Success       bool
	Timestamp     time.Time
}

// Condition inspects data and returns the route key that should handle it.
type Condition[T any, K comparable] func(context.Context, T) K

// Switch routes to one of several Chainables based on a condition over the
// data. If no route matches, the input passes through unchanged — this is
// the orchestrator's primary tool for conditional edges between agents.
type Switch[T any, K comparable] struct {
	condition Condition[T, K]
	routes    map[K]Chainable[T]
	name      Name
	mu        sync.RWMutex
	metrics   *metricz.Registry
	tracer    *tracez.Tracer
	hooks     *hookz.Hooks[SwitchEvent[K]]
}

// NewSwitch creates a Switch with the given routing condition.
func NewSwitch[T any, K comparable](name Name, condition Condition[T, K]) *Switch[T, K] {
	metrics := metricz.New()
	metrics.Counter(SwitchProcessedTotal)
	metrics.Counter(SwitchRoutedTotal)
	metrics.Counter(SwitchUnroutedTotal)
	metrics.Gauge(SwitchDurationMs)

	return &Switch[T, K]{
		name:      name,
		condition: condition,
		routes:    make(map[K]Chainable[T]),
		metrics:   metrics,
		tracer:    tracez.New(),
		hooks:     hookz.New[SwitchEvent[K]](),
	}
}

// Process implements Chainable.
func (s *Switch[T, K]) Process(ctx context.Context, data T) (result T, err *Error[T]) {
	defer recoverFromPanic(&result, &err, s.name, data)

	s.metrics.Counter(SwitchProcessedTotal).Inc()
	start := time.Now()
	ctx, span := s.tracer.StartSpan(ctx, SwitchProcessSpan)
	defer func() {
		s.metrics.Gauge(SwitchDurationMs).Set(float64(time.Since(start).Milliseconds()))
		span.Finish()
	}()

	s.mu.RLock()
	condition := s.condition
	route := condition(ctx, data)
	processor, exists := s.routes[route]
	s.mu.RUnlock()

	span.SetTag(SwitchTagRouteKey, fmt.Sprintf("%v", route))

	if !exists {
		span.SetTag(SwitchTagRouted, "false")
		s.metrics.Counter(SwitchUnroutedTotal).Inc()
		_ = s.hooks.Emit(ctx, SwitchEventUnrouted, SwitchEvent[K]{
			Name:      s.name,
			RouteKey:  route,
			Timestamp: time.Now(),
		})
		return data, nil
	}

	span.SetTag(SwitchTagRouted, "true")
	s.metrics.Counter(SwitchRoutedTotal).Inc()

	result, stepErr := processor.Process(ctx, data)
	_ = s.hooks.Emit(ctx, SwitchEventRouted, SwitchEvent[K]{
		Name:          s.name,
		RouteKey:      route,
		ProcessorName: processor.Name(),
		Routed:        true,
		Success:       stepErr == nil,
		Timestamp:     time.Now(),
	})
	if stepErr != nil {
		stepErr.Path = append([]Name{s.name}, stepErr.Path...)
		return result, stepErr
	}
	return result, nil
}

// AddRoute adds or replaces a route.
func (s *Switch[T, K]) AddRoute(key K, processor Chainable[T]) *Switch[T, K] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key] = processor
	return s
}

// RemoveRoute deletes a route.
func (s *Switch[T, K]) RemoveRoute(key K) *Switch[T, K] {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.routes, key)
	return s
}

// HasRoute reports whether a route exists for key.
func (s *Switch[T, K]) HasRoute(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.routes[key]
	return ok
}

// SetCondition replaces the routing function.
func (s *Switch[T, K]) SetCondition(condition Condition[T, K]) *Switch[T, K] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.condition = condition
	return s
}

// Name implements Chainable.
func (s *Switch[T, K]) Name() Name {
	return s.name
}

// Metrics returns the metrics registry for this connector.
func (s *Switch[T, K]) Metrics() *metricz.Registry {
	return s.metrics
}

// Tracer returns the tracer for this connector.
func (s *Switch[T, K]) Tracer() *tracez.Tracer {
	return s.tracer
}

// OnRouted registers a handler fired after a matched route's processor runs.
func (s *Switch[T, K]) OnRouted(handler func(context.Context, SwitchEvent[K]) error) error {
	_, err := s.hooks.Hook(SwitchEventRouted, handler)
	return err
}

// OnUnrouted registers a handler fired when no route matches.
func (s *Switch[T, K]) OnUnrouted(handler func(context.Context, SwitchEvent[K]) error) error {
	_, err := s.hooks.Hook(SwitchEventUnrouted, handler)
	return err
}

// Close shuts down observability resources held by this connector.
func (s *Switch[T, K]) Close() error {
	if s.tracer != nil {
		s.tracer.Close()
	}
	s.hooks.Close()
	return nil
}
