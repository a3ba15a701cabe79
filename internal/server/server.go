// Package server exposes the aggregator over a small HTTP API. This is the
// integration surface for UI clients; rendering stays out of scope.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/newspulse-hq/newspulse/internal/aggregator"
	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/internal/enrich"
	"github.com/newspulse-hq/newspulse/internal/logger"
)

// Posts reads the external post tables mapped into the Article shape.
type Posts interface {
	Enabled() bool
	GalleryPosts(ctx context.Context) ([]domain.Article, error)
	TelegramPosts(ctx context.Context) ([]domain.Article, error)
}

// Server wires the HTTP routes.
type Server struct {
	echo     *echo.Echo
	agg      *aggregator.Aggregator
	enricher *enrich.Service
	posts    Posts
	log      logger.Logger
}

// New builds the server. posts may be nil or disabled; the post routes then
// answer with empty batches.
func New(agg *aggregator.Aggregator, enricher *enrich.Service, posts Posts, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		agg:      agg,
		enricher: enricher,
		posts:    posts,
		log:      log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/v1/news/:category", s.news)
	s.echo.GET("/v1/gallery", s.gallery)
	s.echo.GET("/v1/telegram", s.telegram)
	s.echo.POST("/v1/articles/:id/enhance", s.enhance)
	s.echo.POST("/v1/audio", s.audio)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type newsResponse struct {
	Category domain.Category  `json:"category"`
	Articles []domain.Article `json:"articles"`
}

// news serves the tiered read -> live fetch -> stale fallback pipeline.
// It always answers 200; a fully failed fetch degrades to an empty batch.
func (s *Server) news(c echo.Context) error {
	category := domain.Category(strings.ToLower(strings.TrimSpace(c.Param("category"))))
	if category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category is required")
	}

	articles := s.agg.Articles(c.Request().Context(), category)
	return c.JSON(http.StatusOK, newsResponse{Category: category, Articles: articles})
}

func (s *Server) gallery(c echo.Context) error {
	return s.externalPosts(c, "gallery", func(ctx context.Context) ([]domain.Article, error) {
		return s.posts.GalleryPosts(ctx)
	})
}

func (s *Server) telegram(c echo.Context) error {
	return s.externalPosts(c, "telegram", func(ctx context.Context) ([]domain.Article, error) {
		return s.posts.TelegramPosts(ctx)
	})
}

func (s *Server) externalPosts(c echo.Context, name string, read func(context.Context) ([]domain.Article, error)) error {
	if s.posts == nil || !s.posts.Enabled() {
		return c.JSON(http.StatusOK, []domain.Article{})
	}

	articles, err := read(c.Request().Context())
	if err != nil {
		s.log.WarnObj("external posts read failed", "posts_read_failed", map[string]any{
			"table": name,
			"error": err.Error(),
		})
		return c.JSON(http.StatusOK, []domain.Article{})
	}
	return c.JSON(http.StatusOK, articles)
}

// enhance expands one article. The service never fails; a degraded result
// still answers 200.
func (s *Server) enhance(c echo.Context) error {
	var article domain.Article
	if err := c.Bind(&article); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid article payload")
	}

	if id := strings.TrimSpace(c.Param("id")); id != "" {
		article.ID = id
	}
	if article.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "article id is required")
	}

	return c.JSON(http.StatusOK, s.enricher.EnhanceArticle(c.Request().Context(), article))
}

type audioRequest struct {
	Text string `json:"text"`
}

type audioResponse struct {
	AudioData string `json:"audio_data"`
}

// audio narrates text. This is the one enrichment path that surfaces
// errors: unusable input is a 422, generation failure a 502.
func (s *Server) audio(c echo.Context) error {
	var req audioRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid audio payload")
	}

	clip, err := s.enricher.NarrateText(c.Request().Context(), req.Text)
	if err != nil {
		if errors.Is(err, enrich.ErrEmptyNarration) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		s.log.ErrorObj("audio generation failed", "audio_generate_failed", map[string]any{
			"error": err.Error(),
		})
		return echo.NewHTTPError(http.StatusBadGateway, "audio generation failed")
	}

	return c.JSON(http.StatusOK, audioResponse{AudioData: clip})
}
