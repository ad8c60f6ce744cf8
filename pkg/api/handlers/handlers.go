// Package handlers implements the request handlers of the clickguard API.
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/clickguard/pkg/clarification"
	"github.com/ethpandaops/clickguard/pkg/conversation"
	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/ethpandaops/clickguard/pkg/querycache"
)

// Chat handles conversation turns
type Chat interface {
	HandleTurn(ctx context.Context, sessionID, message string) (*conversation.Reply, error)
}

// Executor runs SQL through the cache
type Executor interface {
	Execute(ctx context.Context, sql, question string) (*gateway.Result, error)
	PreviewTable(ctx context.Context, table string) (*gateway.Result, error)
}

// Cache exposes cache administration
type Cache interface {
	Explain(sql string) (bool, string)
	Stats(ctx context.Context) querycache.Stats
	Clear(ctx context.Context) error
}

// Clarifications exposes clarification state
type Clarifications interface {
	Get(ctx context.Context, base string) (clarification.State, error)
	Clear(ctx context.Context, base string) error
	DetectProvidedField(reply string, awaited clarification.Field) clarification.Field
}

// Formatter renders results as chat answers
type Formatter interface {
	Format(res *gateway.Result) string
}

// Server holds the API dependencies. chat may be nil when no assistant is configured.
type Server struct {
	chat           Chat
	executor       Executor
	cache          Cache
	clarifications Clarifications
	formatter      Formatter
	log            logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(chat Chat, executor Executor, cache Cache, clarifications Clarifications, formatter Formatter, log logrus.FieldLogger) *Server {
	return &Server{
		chat:           chat,
		executor:       executor,
		cache:          cache,
		clarifications: clarifications,
		formatter:      formatter,
		log:            log.WithField("component", "api.handlers"),
	}
}

// Register mounts every route on router
func (s *Server) Register(router fiber.Router) {
	router.Post("/chat", s.PostChat)
	router.Post("/execute", s.PostExecute)
	router.Post("/cacheable", s.PostCacheable)
	router.Get("/cache/stats", s.GetCacheStats)
	router.Delete("/cache", s.DeleteCache)
	router.Get("/clarifications", s.GetClarification)
	router.Delete("/clarifications", s.DeleteClarification)
	router.Post("/clarifications/detect", s.PostDetect)
	router.Get("/tables/:table/preview", s.GetTablePreview)
}

// Health handles GET /health
func (s *Server) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
