// Package enrich expands short articles into long-form multi-language text
// and audio narrations via a generative service. Results are cached in an
// in-process map and in the remote tables; entries never expire.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/internal/logger"
	"github.com/newspulse-hq/newspulse/pkg/newsid"
)

const (
	maxNarrationChars = 4000

	remoteWriteTimeout = 15 * time.Second

	fallbackTranslation = "Translation unavailable."
)

// ErrEmptyNarration is returned when narration input is empty after
// cleaning. Audio is the one enrichment path that surfaces errors: there is
// no meaningful fallback for absent audio.
var ErrEmptyNarration = errors.New("narration text is empty after cleaning")

var (
	narrationPolicy = bluemonday.StrictPolicy()
	urlPattern      = regexp.MustCompile(`https?://\S+`)
)

// RemoteCache is the subset of the remote client used by the service.
type RemoteCache interface {
	Enabled() bool
	EnhancedArticle(ctx context.Context, articleID string) (domain.EnhancedArticle, bool, error)
	UpsertEnhancedArticle(ctx context.Context, articleID string, data domain.EnhancedArticle) error
	AudioClip(ctx context.Context, textHash string) (string, bool, error)
	UpsertAudioClip(ctx context.Context, textHash, audioData string) error
}

// Service coordinates the per-article enrichment state machine:
// uncached -> (memory hit | remote hit | generate) -> cached.
type Service struct {
	mu       sync.Mutex
	articles map[string]domain.EnhancedArticle
	audio    map[string]string

	remote RemoteCache
	gen    Generator
	log    logger.Logger
}

// NewService wires the enrichment service. remote may be a disabled client;
// gen may be nil, in which case every generation degrades to the fallback.
func NewService(remoteCache RemoteCache, gen Generator, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		articles: make(map[string]domain.EnhancedArticle),
		audio:    make(map[string]string),
		remote:   remoteCache,
		gen:      gen,
		log:      log,
	}
}

// EnhanceArticle returns the expanded multi-language content for an
// article. It never fails: any generation problem degrades to a
// deterministic fallback built from the original description.
func (s *Service) EnhanceArticle(ctx context.Context, article domain.Article) domain.EnhancedArticle {
	s.mu.Lock()
	if cached, ok := s.articles[article.ID]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	if s.remote != nil && s.remote.Enabled() {
		if data, ok, err := s.remote.EnhancedArticle(ctx, article.ID); err != nil {
			s.log.WarnObj("remote enhanced-article read failed", "enrich_remote_read_failed", map[string]any{
				"article_id": article.ID,
				"error":      err.Error(),
			})
		} else if ok {
			s.memorizeArticle(article.ID, data)
			return data
		}
	}

	data, err := s.generate(ctx, article)
	if err != nil {
		s.log.WarnObj("article generation failed, serving fallback", "enrich_generate_failed", map[string]any{
			"article_id": article.ID,
			"error":      err.Error(),
		})
		// Fallback is memorized in-process only, so a later session can
		// still attempt a real generation.
		fallback := FallbackContent(article)
		s.memorizeArticle(article.ID, fallback)
		return fallback
	}

	s.memorizeArticle(article.ID, data)
	s.writeThroughArticle(article.ID, data)
	return data
}

// NarrateText returns a base64 audio narration for the text. Unlike text
// enrichment this surfaces errors: empty-after-cleaning input and
// generation failures are returned to the caller.
func (s *Service) NarrateText(ctx context.Context, text string) (string, error) {
	cleaned := CleanNarration(text)
	if cleaned == "" {
		return "", ErrEmptyNarration
	}

	key := newsid.ForText(cleaned)

	s.mu.Lock()
	if cached, ok := s.audio[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	if s.remote != nil && s.remote.Enabled() {
		if clip, ok, err := s.remote.AudioClip(ctx, key); err != nil {
			s.log.WarnObj("remote audio read failed", "enrich_audio_read_failed", map[string]any{
				"text_hash": key,
				"error":     err.Error(),
			})
		} else if ok {
			s.memorizeAudio(key, clip)
			return clip, nil
		}
	}

	if s.gen == nil {
		return "", ErrMissingAPIKey
	}

	clip, err := s.gen.GenerateSpeech(ctx, cleaned)
	if err != nil {
		return "", fmt.Errorf("generate narration: %w", err)
	}

	s.memorizeAudio(key, clip)
	s.writeThroughAudio(key, clip)
	return clip, nil
}

func (s *Service) generate(ctx context.Context, article domain.Article) (domain.EnhancedArticle, error) {
	if s.gen == nil {
		return domain.EnhancedArticle{}, ErrMissingAPIKey
	}

	raw, err := s.gen.GenerateStructured(ctx, articlePrompt(article))
	if err != nil {
		return domain.EnhancedArticle{}, err
	}

	var data domain.EnhancedArticle
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.EnhancedArticle{}, fmt.Errorf("decode generated article: %w", err)
	}
	if data.FullText == "" {
		return domain.EnhancedArticle{}, errors.New("generated article has no body")
	}
	return data, nil
}

func (s *Service) memorizeArticle(id string, data domain.EnhancedArticle) {
	s.mu.Lock()
	s.articles[id] = data
	s.mu.Unlock()
}

func (s *Service) memorizeAudio(key, clip string) {
	s.mu.Lock()
	s.audio[key] = clip
	s.mu.Unlock()
}

// writeThroughArticle pushes generated content to the remote tier without
// blocking the caller. Failures are logged, never retried.
func (s *Service) writeThroughArticle(id string, data domain.EnhancedArticle) {
	if s.remote == nil || !s.remote.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
		defer cancel()
		if err := s.remote.UpsertEnhancedArticle(ctx, id, data); err != nil {
			s.log.WarnObj("remote enhanced-article write failed", "enrich_remote_write_failed", map[string]any{
				"article_id": id,
				"error":      err.Error(),
			})
		}
	}()
}

func (s *Service) writeThroughAudio(key, clip string) {
	if s.remote == nil || !s.remote.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
		defer cancel()
		if err := s.remote.UpsertAudioClip(ctx, key, clip); err != nil {
			s.log.WarnObj("remote audio write failed", "enrich_audio_write_failed", map[string]any{
				"text_hash": key,
				"error":     err.Error(),
			})
		}
	}()
}

// articlePrompt is the fixed template sent to the generative service.
func articlePrompt(article domain.Article) string {
	return fmt.Sprintf(
		"You are a news desk editor. Expand the following headline and summary into a "+
			"complete news article of 4-6 paragraphs, plus a two-sentence summary. "+
			"Provide translations of both the article and the summary into Hindi (hi), "+
			"Spanish (es), French (fr) and German (de). Respond with JSON only.\n\n"+
			"Headline: %s\nSource: %s\nSummary: %s",
		article.Title, article.Source, article.Description,
	)
}

// FallbackContent builds the deterministic degraded result used when
// generation fails. It is a pure function of the article.
func FallbackContent(article domain.Article) domain.EnhancedArticle {
	translations := func() map[string]string {
		out := make(map[string]string, len(domain.TranslationLanguages))
		for code := range domain.TranslationLanguages {
			out[code] = fallbackTranslation
		}
		return out
	}

	return domain.EnhancedArticle{
		FullText:  article.Description,
		Summary:   article.Description,
		FullTextT: translations(),
		SummaryT:  translations(),
		Fallback:  true,
	}
}

// CleanNarration strips markup and URLs from narration input and bounds its
// length.
func CleanNarration(text string) string {
	cleaned := narrationPolicy.Sanitize(text)
	cleaned = html.UnescapeString(cleaned)
	cleaned = urlPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if runes := []rune(cleaned); len(runes) > maxNarrationChars {
		cleaned = string(runes[:maxNarrationChars])
	}
	return strings.TrimSpace(cleaned)
}
