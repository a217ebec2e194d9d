package ranking

import (
	"sort"

	"github.com/kailas-cloud/healthrec/internal/domain"
	"github.com/kailas-cloud/healthrec/internal/domain/geo"
)

// referenceDistanceKm normalizes geographic distance into [0,1]: anything
// at or beyond this range counts as maximally far.
const referenceDistanceKm = 100.0

// Engine orders documents by a weighted blend of semantic relevancy and
// geographic proximity.
//
// The index reports cosine distance (lower = more similar); the engine
// converts to similarity via 1 - score at this boundary and sorts
// higher-is-better everywhere. This is the single place the score
// convention is fixed; mixing conventions inverts rankings.
type Engine struct {
	relevancyWeight float64
	distanceWeight  float64
}

// New creates a ranking engine. relevancyWeight must be in [0,1];
// the distance weight is its complement.
func New(relevancyWeight float64) *Engine {
	return &Engine{
		relevancyWeight: relevancyWeight,
		distanceWeight:  1 - relevancyWeight,
	}
}

// Rank orders documents best-first. Without a user location the order is by
// similarity alone. With a location, each document's distance is computed
// and stored, and the composite score blends similarity with proximity.
// The sort is stable: ties keep their original (relevancy) order.
func (e *Engine) Rank(docs []domain.ServiceDocument, userLocation *domain.Location) []domain.ServiceDocument {
	if userLocation == nil {
		sort.SliceStable(docs, func(i, j int) bool {
			return similarity(&docs[i]) > similarity(&docs[j])
		})
		return docs
	}

	for i := range docs {
		lat, lon := domain.ParseCoordinates(docs[i].Metadata)
		d := geo.Distance(lat, lon, userLocation.Latitude, userLocation.Longitude)
		docs[i].Distance = &d
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return e.compositeScore(&docs[i]) > e.compositeScore(&docs[j])
	})
	return docs
}

// FilterByRadius drops documents whose computed distance exceeds radiusKm.
// Documents with no computed distance are kept. A non-positive radius
// disables filtering.
func FilterByRadius(docs []domain.ServiceDocument, radiusKm float64) []domain.ServiceDocument {
	if radiusKm <= 0 {
		return docs
	}
	filtered := docs[:0]
	for _, doc := range docs {
		if doc.Distance != nil && *doc.Distance > radiusKm {
			continue
		}
		filtered = append(filtered, doc)
	}
	return filtered
}

// similarity converts the stored cosine distance to cosine similarity.
func similarity(doc *domain.ServiceDocument) float64 {
	return 1 - doc.RelevancyScore
}

func (e *Engine) compositeScore(doc *domain.ServiceDocument) float64 {
	var dist float64
	if doc.Distance != nil {
		dist = *doc.Distance
	}

	normalized := dist / referenceDistanceKm
	if normalized > 1 {
		normalized = 1
	}

	return e.relevancyWeight*similarity(doc) + e.distanceWeight*(1-normalized)
}
