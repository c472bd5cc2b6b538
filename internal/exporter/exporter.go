// Package exporter defines the source contract and the registry the HTTP
// layer serves from.
package exporter

import (
	"context"
	"log/slog"
)

// ValidationError reports a bad request before any upstream call is made.
// The HTTP layer maps it to a 400.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// ErrAddressRequired is returned by every source that needs an account.
const ErrAddressRequired = ValidationError("Address is required")

// Request carries the validated query inputs a source may use. Addresses
// holds the multi-account form some sources accept; Address is the common
// single-account case.
type Request struct {
	Address   string
	Addresses []string
}

// Source produces one snapshot of exposition-format metric lines for one
// upstream service. Implementations are stateless across calls: every
// Collect performs a full upstream round trip.
type Source interface {
	// Name is the unique route segment for this source (e.g. "zapper").
	Name() string

	// Collect fetches, normalizes and renders the metrics for req. The
	// returned body is newline-joined metric lines with no trailing
	// metadata.
	Collect(ctx context.Context, req Request) (string, error)
}

// Registry holds the registered sources in registration order.
type Registry struct {
	logger  *slog.Logger
	sources map[string]Source
	order   []string
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		sources: make(map[string]Source),
	}
}

// Register adds a source. Re-registering a name replaces the source but
// keeps its position.
func (r *Registry) Register(src Source) {
	if _, exists := r.sources[src.Name()]; !exists {
		r.order = append(r.order, src.Name())
	}
	r.sources[src.Name()] = src
	r.logger.Info("registered source", "source", src.Name())
}

// Get returns the source registered under name, or nil.
func (r *Registry) Get(name string) Source {
	return r.sources[name]
}

// Names returns the registered source names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
