package server

import (
	"fmt"

	r "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/clickguard/pkg/answer"
	"github.com/ethpandaops/clickguard/pkg/api"
	"github.com/ethpandaops/clickguard/pkg/api/handlers"
	"github.com/ethpandaops/clickguard/pkg/assistant"
	"github.com/ethpandaops/clickguard/pkg/clarification"
	"github.com/ethpandaops/clickguard/pkg/conversation"
	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/ethpandaops/clickguard/pkg/querycache"
	"github.com/ethpandaops/clickguard/pkg/redis"
	"github.com/ethpandaops/clickguard/pkg/warehouse"
)

// Components are the services a server runs
type Components struct {
	Redis        *r.Client
	Cache        *querycache.Store
	Warehouse    warehouse.ClientInterface
	Gateway      *gateway.Gateway
	Tracker      *clarification.Tracker
	Formatter    *answer.Formatter
	Conversation *conversation.Service
	API          api.Service
}

// NewComponents wires every service from config. Redis backs the cache and
// the clarification state when it is configured.
func NewComponents(log *logrus.Logger, cfg *Config) (*Components, error) {
	c := &Components{}

	if cfg.Redis != nil {
		client, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}

		c.Redis = client
	}

	c.Cache = newCache(log, cfg, c.Redis)

	wh, err := warehouse.NewClient(log, &cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse client: %w", err)
	}

	c.Warehouse = wh
	c.Gateway = gateway.New(log, &cfg.Gateway, c.Cache, wh)

	var states clarification.StateStore = clarification.NewMemoryStore()
	if c.Redis != nil {
		states = clarification.NewRedisStore(c.Redis, cfg.Redis.KeyPrefix(), cfg.Clarification.StateTTL)
	}

	c.Tracker = clarification.NewTracker(log, &cfg.Clarification, states,
		clarification.WithDetector(cfg.Clarification.Detector()))
	c.Formatter = answer.New(cfg.MaxAnswerRows)

	// A nil Chat keeps the chat route answering 503
	var chat handlers.Chat

	if cfg.Assistant.Enabled() {
		c.Conversation = conversation.NewService(log, &cfg.Sessions,
			assistant.NewAnthropic(log, &cfg.Assistant), c.Tracker, c.Gateway, c.Formatter)
		chat = c.Conversation
	}

	h := handlers.NewServer(chat, c.Gateway, c.Cache, c.Tracker, c.Formatter, log)
	c.API = api.NewService(&cfg.API, h, log)

	return c, nil
}

func newCache(log logrus.FieldLogger, cfg *Config, client *r.Client) *querycache.Store {
	classifier := querycache.WithClassifier(cfg.Cache.Classifier())

	if cfg.Cache.Backend != querycache.BackendRedis || client == nil {
		return querycache.NewMemoryStore(log, &cfg.Cache, classifier)
	}

	prefix := cfg.Redis.KeyPrefix()

	return querycache.NewStore(log, &cfg.Cache,
		querycache.NewRedisIndex(client, prefix, querycache.IndexQuestion),
		querycache.NewRedisIndex(client, prefix, querycache.IndexSQL),
		classifier,
	)
}
