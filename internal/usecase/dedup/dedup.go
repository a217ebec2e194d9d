// Package dedup collapses near-duplicate service records. Several upstream
// directories register the same physical service; records are considered
// duplicates when their normalized name and rounded coordinates match.
package dedup

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/healthrec/internal/domain"
)

// Strategy selects which occurrence survives within a duplicate group.
type Strategy string

const (
	// First keeps the first occurrence in input order.
	First Strategy = "first"
	// Last keeps the last occurrence in input order.
	Last Strategy = "last"
	// MostRecent keeps the occurrence with the latest last-updated
	// timestamp; entries without a timestamp sort as the oldest possible.
	MostRecent Strategy = "most_recent"
	// BestScore keeps the occurrence with the numerically lowest relevancy
	// score (cosine distance, lower is better). Documents only; for
	// services it degrades to First.
	BestScore Strategy = "best_score"
)

// ParseStrategy validates a strategy name from configuration or a request.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case First, Last, MostRecent, BestScore:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown dedup strategy %q", s)
	}
}

// DefaultPrecision is the coordinate rounding used by the identity key:
// six decimals is roughly one meter of resolution.
const DefaultPrecision = 6

// Engine deduplicates documents and services by identity key.
type Engine struct {
	precision int
}

// New creates a deduplication engine with the given coordinate precision.
func New(precision int) *Engine {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return &Engine{precision: precision}
}

// Key builds the identity key for duplicate detection:
// normalized name plus coordinates rounded to the configured precision.
func (e *Engine) Key(name string, lat, lon float64) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	return normalized + "|" + e.formatCoord(lat) + "|" + e.formatCoord(lon)
}

func (e *Engine) formatCoord(v float64) string {
	p := math.Pow10(e.precision)
	return strconv.FormatFloat(math.Round(v*p)/p, 'f', -1, 64)
}

// Documents removes duplicate documents, returning the survivors in their
// original relative order and the number of entries removed. Documents
// whose name or coordinates cannot be determined are never dropped.
// Applying the same strategy twice yields the same result as applying it once.
func (e *Engine) Documents(docs []domain.ServiceDocument, strategy Strategy) ([]domain.ServiceDocument, int) {
	if len(docs) == 0 {
		return docs, 0
	}

	winners := make(map[string]int)
	keys := make([]string, len(docs))

	for i := range docs {
		key, ok := e.documentKey(&docs[i])
		if !ok {
			keys[i] = ""
			continue
		}
		keys[i] = key

		current, seen := winners[key]
		if !seen || e.beats(strategy, docBasis(&docs[i]), docBasis(&docs[current])) {
			winners[key] = i
		}
	}

	return collectDocs(docs, keys, winners)
}

// Services removes duplicate services. Identity comes from the structural
// name and coordinates; services with an empty name are never dropped.
func (e *Engine) Services(services []domain.Service, strategy Strategy) ([]domain.Service, int) {
	if len(services) == 0 {
		return services, 0
	}

	winners := make(map[string]int)
	keys := make([]string, len(services))

	for i := range services {
		if services[i].Name == "" {
			keys[i] = ""
			continue
		}
		key := e.Key(services[i].Name, services[i].Latitude, services[i].Longitude)
		keys[i] = key

		current, seen := winners[key]
		if !seen || e.beats(strategy, serviceBasis(&services[i]), serviceBasis(&services[current])) {
			winners[key] = i
		}
	}

	return collectServices(services, keys, winners)
}

// basis carries the per-record fields a strategy compares on.
type basis struct {
	lastUpdated time.Time
	score       float64
	hasScore    bool
}

func docBasis(doc *domain.ServiceDocument) basis {
	b := basis{score: doc.RelevancyScore, hasScore: true}
	if t := domain.ParseLastUpdated(doc.Metadata["last_updated"]); t != nil {
		b.lastUpdated = *t
	}
	return b
}

func serviceBasis(svc *domain.Service) basis {
	var b basis
	if svc.LastUpdated != nil {
		b.lastUpdated = *svc.LastUpdated
	}
	return b
}

// beats reports whether the challenger should replace the current winner.
func (e *Engine) beats(strategy Strategy, challenger, current basis) bool {
	switch strategy {
	case Last:
		return true
	case MostRecent:
		return challenger.lastUpdated.After(current.lastUpdated)
	case BestScore:
		if !challenger.hasScore {
			return false
		}
		return challenger.score < current.score
	default: // First
		return false
	}
}

func (e *Engine) documentKey(doc *domain.ServiceDocument) (string, bool) {
	name, _ := doc.Metadata["name"].(string)
	if name == "" {
		return "", false
	}
	latRaw, latPresent := doc.Metadata["latitude"]
	lonRaw, lonPresent := doc.Metadata["longitude"]
	if !latPresent || !lonPresent {
		return "", false
	}
	lat, lon := domain.ParseCoordinates(map[string]any{"latitude": latRaw, "longitude": lonRaw})
	return e.Key(name, lat, lon), true
}

func collectDocs(docs []domain.ServiceDocument, keys []string, winners map[string]int) ([]domain.ServiceDocument, int) {
	unique := make([]domain.ServiceDocument, 0, len(winners))
	removed := 0
	for i := range docs {
		if keys[i] != "" && winners[keys[i]] != i {
			removed++
			continue
		}
		unique = append(unique, docs[i])
	}
	return unique, removed
}

func collectServices(services []domain.Service, keys []string, winners map[string]int) ([]domain.Service, int) {
	unique := make([]domain.Service, 0, len(winners))
	removed := 0
	for i := range services {
		if keys[i] != "" && winners[keys[i]] != i {
			removed++
			continue
		}
		unique = append(unique, services[i])
	}
	return unique, removed
}
