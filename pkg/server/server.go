// Package server exposes the intent engine over HTTP: chat, health, artifact
// reload, aggregate stats, and a nearest-pattern debug endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/tripleminds/intentd/pkg/config"
	"github.com/tripleminds/intentd/pkg/intent"
	"github.com/tripleminds/intentd/pkg/ratelimit"
	"github.com/tripleminds/intentd/pkg/semantic"
	"github.com/tripleminds/intentd/pkg/store"
)

// Server wires the engine, conversation log, and rate limiter behind the
// HTTP surface.
type Server struct {
	app     *fiber.App
	cfg     *config.Config
	engine  *intent.Engine
	source  intent.Source
	log     store.Store
	limiter ratelimit.Limiter
	index   atomic.Pointer[semantic.PatternIndex]
	started time.Time
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Mode    string `json:"mode"`
}

// ChatResponse is the POST /chat reply.
type ChatResponse struct {
	Reply      string   `json:"reply"`
	Intent     string   `json:"intent,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Allowed    bool     `json:"allowed"`
	LatencyMs  int64    `json:"latency_ms"`
	UserID     string   `json:"user_id"`
}

// New builds the server. The registry behind engine must already hold a
// bundle; the pattern index is built from it at startup and rebuilt on every
// successful reload.
func New(cfg *config.Config, engine *intent.Engine, source intent.Source, chatLog store.Store, limiter ratelimit.Limiter) (*Server, error) {
	if chatLog == nil {
		chatLog = store.Noop{}
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		source:  source,
		log:     chatLog,
		limiter: limiter,
		started: time.Now(),
	}
	if err := s.rebuildIndex(context.Background()); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "intentd",
		ErrorHandler: errorHandler,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	})

	app.Get("/health", s.handleHealth)
	app.Post("/chat", s.handleChat)
	app.Get("/similar", s.handleSimilar)
	// v3 routing: handler first, middleware after.
	app.Get("/stats", s.handleStats, s.requireAPIKey)
	app.Post("/reload", s.handleReload, s.requireAPIKey)

	s.app = app
	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen() error {
	log.Printf("[Server] listening on %s", s.cfg.Addr())
	return s.app.Listen(s.cfg.Addr())
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) rebuildIndex(ctx context.Context) error {
	bundle, err := s.engine.Registry().Current()
	if err != nil {
		return fmt.Errorf("cannot build pattern index: %w", err)
	}
	ix, err := semantic.BuildPatternIndex(ctx, bundle.Catalog, bundle.Vectorizer)
	if err != nil {
		return fmt.Errorf("pattern index build failed: %w", err)
	}
	s.index.Store(ix)
	return nil
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// validMode accepts only the documented moderation modes; ParseMode itself
// folds unknown values to the default, which would silently mask typos from
// API clients.
func validMode(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "safe", "nsfw":
		return true
	}
	return false
}

// requireAPIKey guards administrative endpoints. With no key configured the
// endpoints stay open, matching local development defaults.
func (s *Server) requireAPIKey(c fiber.Ctx) error {
	if s.cfg.APIKey != "" && c.Get("X-API-Key") != s.cfg.APIKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid api key"})
	}
	return c.Next()
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	resp := fiber.Map{
		"status":         "ok",
		"model_loaded":   s.engine.Registry().Loaded(),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if bundle, err := s.engine.Registry().Current(); err == nil {
		resp["bundle_version"] = bundle.Version
		resp["intents"] = len(bundle.Catalog.Intents())
	}
	return c.JSON(resp)
}

func (s *Server) handleChat(c fiber.Ctx) error {
	var req ChatRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}
	if len(req.Message) > s.cfg.MaxMessageLen {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("message exceeds %d bytes", s.cfg.MaxMessageLen),
		})
	}

	userID := req.UserID
	if userID == "" {
		userID = intent.NewUserID("web")
	}

	limitKey := userID
	if req.UserID == "" {
		limitKey = c.IP()
	}
	allowed, remaining, err := s.limiter.Allow(c.Context(), limitKey)
	if err != nil {
		return err
	}
	if !allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
	}
	if remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	}

	modeStr := req.Mode
	if modeStr == "" {
		modeStr = s.cfg.ModerationMode
	}
	if !validMode(modeStr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown mode"})
	}
	mode := intent.ParseMode(modeStr)

	ex, err := s.engine.Chat(c.Context(), req.Message, mode)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no model loaded")
	}

	s.persist(userID, req.Message, ex)

	resp := ChatResponse{
		Reply:     ex.Reply,
		Intent:    ex.Intent,
		Allowed:   ex.Allowed,
		LatencyMs: ex.Latency.Milliseconds(),
		UserID:    userID,
	}
	if v, ok := ex.Confidence.Value(); ok {
		resp.Confidence = &v
	}
	return c.JSON(resp)
}

// persist writes the exchange to the conversation log without blocking the
// reply. Store failures are logged and dropped.
func (s *Server) persist(userID, message string, ex intent.Exchange) {
	rec := store.ChatRecord{
		UserID:    userID,
		Message:   message,
		Reply:     ex.Reply,
		Intent:    ex.Intent,
		LatencyMs: ex.Latency.Milliseconds(),
		Allowed:   ex.Allowed,
		Timestamp: time.Now(),
	}
	if v, ok := ex.Confidence.Value(); ok {
		rec.Confidence = &v
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.log.EnsureUser(ctx, userID); err != nil {
			log.Printf("[Server] ensure user failed: %v", err)
		}
		if err := s.log.SaveChat(ctx, rec); err != nil {
			log.Printf("[Server] chat log write failed: %v", err)
		}
	}()
}

func (s *Server) handleReload(c fiber.Ctx) error {
	bundle, err := s.engine.Registry().Reload(s.source)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("reload failed: %v", err),
		})
	}
	if err := s.rebuildIndex(c.Context()); err != nil {
		// The new bundle is installed; a stale index only degrades /similar.
		log.Printf("[Server] pattern index rebuild failed: %v", err)
	}
	return c.JSON(fiber.Map{
		"status":  "reloaded",
		"version": bundle.Version,
		"intents": len(bundle.Catalog.Intents()),
	})
}

func (s *Server) handleStats(c fiber.Ctx) error {
	ctx := c.Context()

	counts, err := s.log.CountsByIntent(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "stats query failed")
	}
	avg, err := s.log.AvgLatencyMs(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "stats query failed")
	}

	intents := make([]fiber.Map, 0, len(counts))
	for _, ic := range counts {
		intents = append(intents, fiber.Map{"intent": ic.Intent, "count": ic.Count})
	}
	return c.JSON(fiber.Map{
		"intents":        intents,
		"avg_latency_ms": avg,
	})
}

func (s *Server) handleSimilar(c fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q is required"})
	}
	k, err := strconv.Atoi(c.Query("k", "5"))
	if err != nil || k <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "k must be a positive integer"})
	}

	ix := s.index.Load()
	if ix == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "pattern index not built")
	}
	matches, err := ix.Similar(c.Context(), q, k)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "similarity query failed")
	}

	out := make([]fiber.Map, 0, len(matches))
	for _, m := range matches {
		out = append(out, fiber.Map{
			"pattern":    m.Pattern,
			"tag":        m.Tag,
			"similarity": m.Similarity,
		})
	}
	return c.JSON(fiber.Map{"query": q, "matches": out})
}
