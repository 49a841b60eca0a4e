package llm

import (
	"go.uber.org/zap"

	"github.com/procureiq/deepresearch/internal/cache"
	"github.com/procureiq/deepresearch/internal/model"
)

// Clients bundles the two providers behind one constructor.
type Clients struct {
	Reasoner Reasoner
	Schema   *SchemaClient
}

// NewClients wires both providers from configuration. The reasoner is nil
// plus an error when its key is missing; the schema client degrades to
// returning nil results instead.
func NewClients(cfg *model.Config, logger *zap.Logger) (*Clients, error) {
	limiter := NewLimiter(cfg.Reasoner.RateRPS, cfg.Reasoner.RateBurst)
	limiter.SetProviderRate(providerSchema, cfg.Schema.RateRPS, cfg.Schema.RateBurst)

	reasoner, err := NewReasonerClient(cfg.Reasoner, limiter)
	if err != nil {
		return nil, err
	}

	var responses cache.Cache
	if cfg.Cache.Enabled {
		responses = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.TTL)
	}

	return &Clients{
		Reasoner: reasoner,
		Schema:   NewSchemaClient(cfg.Schema, limiter, responses, logger),
	}, nil
}
