package health

import "context"

// DBPinger checks vector index availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks embedding/chat provider availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}
