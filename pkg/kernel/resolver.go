// Package kernel picks the execution kernel a notebook runs on.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrResolution is returned when no installed kernel can be used.
var ErrResolution = errors.New("error getting kernel")

// DefaultFamily is the runtime family token kernels are matched on.
const DefaultFamily = "python"

// Registry lists installed kernel identifiers. The order of the
// returned slice decides ties during resolution.
type Registry interface {
	Kernels(ctx context.Context) ([]string, error)
}

type Resolver struct {
	registry Registry
	family   string
	log      *zap.Logger
}

func NewResolver(registry Registry, family string, log *zap.Logger) *Resolver {
	if family == "" {
		family = DefaultFamily
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{registry: registry, family: strings.ToLower(family), log: log}
}

// Resolve returns the first kernel whose name contains family+version,
// else the first containing the family alone. Matching is case-insensitive.
func (r *Resolver) Resolve(ctx context.Context, version string) (string, error) {
	names, err := r.registry.Kernels(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResolution, err)
	}

	exact := r.family + strings.ToLower(version)
	if name, ok := firstContaining(names, exact); ok {
		return name, nil
	}

	if name, ok := firstContaining(names, r.family); ok {
		// Any kernel of the family is accepted, even another minor version.
		r.log.Warn("No exact kernel match, falling back",
			zap.String("requested", exact),
			zap.String("kernel", name),
		)
		return name, nil
	}

	return "", fmt.Errorf("%w: no %s kernel found for version %s", ErrResolution, r.family, version)
}

func firstContaining(names []string, needle string) (string, bool) {
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), needle) {
			return name, true
		}
	}
	return "", false
}
