package recommend

import (
	"strings"

	"github.com/kailas-cloud/healthrec/internal/domain"
	"github.com/kailas-cloud/healthrec/internal/metrics"
)

// Sentinel responses the model is instructed to use. Matching is exact
// (after trimming surrounding whitespace) except for the out-of-scope
// prefix.
const (
	emergencySentinel  = "EMERGENCY"
	outOfScopePrefix   = "Response:"
	noServicesSentinel = "NO_SERVICES_FOUND"
)

// classify maps the model's raw answer onto a terminal outcome.
func classify(answer string, services []domain.Service) domain.RecommendationResponse {
	trimmed := strings.TrimSpace(answer)

	switch {
	case trimmed == emergencySentinel:
		metrics.RecommendationsTotal.WithLabelValues("emergency").Inc()
		return domain.NewEmergencyResponse(EmergencyMessage)
	case strings.HasPrefix(trimmed, outOfScopePrefix):
		metrics.RecommendationsTotal.WithLabelValues("out_of_scope").Inc()
		return domain.NewOutOfScopeResponse(trimmed)
	case trimmed == noServicesSentinel:
		metrics.RecommendationsTotal.WithLabelValues("no_services").Inc()
		return domain.NewNoServicesResponse(NoServicesMessage)
	default:
		metrics.RecommendationsTotal.WithLabelValues("normal").Inc()
		return domain.NewRecommendation(trimmed, services)
	}
}
