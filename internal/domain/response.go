package domain

// RecommendationResponse is the terminal outcome of a recommendation query.
// Exactly one of the three flags may be set; when IsEmergency or
// IsOutOfScope is true the services list is always empty and the message
// alone carries the outcome.
type RecommendationResponse struct {
	Message         string    `json:"message"`
	IsEmergency     bool      `json:"is_emergency"`
	IsOutOfScope    bool      `json:"is_out_of_scope"`
	Services        []Service `json:"services,omitempty"`
	NoServicesFound bool      `json:"no_services_found"`
}

// NewEmergencyResponse builds the emergency terminal outcome.
func NewEmergencyResponse(message string) RecommendationResponse {
	return RecommendationResponse{Message: message, IsEmergency: true}
}

// NewOutOfScopeResponse builds the out-of-scope terminal outcome, passing
// the model's explanatory text through verbatim.
func NewOutOfScopeResponse(message string) RecommendationResponse {
	return RecommendationResponse{Message: message, IsOutOfScope: true}
}

// NewNoServicesResponse builds the no-services-found terminal outcome.
func NewNoServicesResponse(message string) RecommendationResponse {
	return RecommendationResponse{Message: message, NoServicesFound: true}
}

// NewRecommendation builds the normal terminal outcome with the ranked,
// deduplicated service list attached.
func NewRecommendation(message string, services []Service) RecommendationResponse {
	return RecommendationResponse{Message: message, Services: services}
}
