package ai

import (
	"context"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
)

// secondaryMarkers are the model-family substrings that route a request to
// the secondary capability. Matching is case-sensitive.
var secondaryMarkers = []string{"Qwen", "huggingface"}

// Router maps a requested model identifier, with an optional explicit
// provider override, to one of two capabilities. Pure classification: no
// network calls, deterministic for a given input.
type Router struct {
	primary   Provider
	secondary Provider
}

func NewRouter(primary, secondary Provider) *Router {
	return &Router{primary: primary, secondary: secondary}
}

// Route picks the capability for a request. An explicit provider name wins;
// otherwise the model identifier is classified by family marker, defaulting
// to the primary capability.
func (r *Router) Route(modelID, explicitProvider string) Provider {
	switch explicitProvider {
	case ProviderGemini:
		return r.primary
	case ProviderHuggingFace:
		return r.secondary
	}
	for _, marker := range secondaryMarkers {
		if strings.Contains(modelID, marker) {
			return r.secondary
		}
	}
	return r.primary
}

// CheckAvailability probes both capabilities with a minimal request and
// reports true if either answers. The probes run concurrently; the result
// is the same OR the sequential short-circuit would produce. Advisory only.
func (r *Router) CheckAvailability(ctx context.Context) bool {
	var primaryOK, secondaryOK bool

	var wg conc.WaitGroup
	wg.Go(func() { primaryOK = r.primary.CheckAvailability(ctx) })
	wg.Go(func() { secondaryOK = r.secondary.CheckAvailability(ctx) })
	wg.Wait()

	return primaryOK || secondaryOK
}

// Primary exposes the primary capability for operations that always use it,
// such as title generation.
func (r *Router) Primary() Provider { return r.primary }

// ProbeTimeout bounds a single availability check.
const ProbeTimeout = 10 * time.Second
