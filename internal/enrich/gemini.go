package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/newspulse-hq/newspulse/pkg/httpclient"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

	defaultTextModel   = "gemini-2.0-flash"
	defaultSpeechModel = "gemini-2.5-flash-preview-tts"
	defaultVoice       = "Kore"

	generateTimeout = 45 * time.Second
)

// ErrMissingAPIKey is returned when generation is attempted without a key.
var ErrMissingAPIKey = errors.New("generative api key is not configured")

// Generator produces structured article text and audio narrations. The
// production implementation talks to the Gemini REST API; tests substitute
// fakes.
type Generator interface {
	// GenerateStructured runs the prompt with a strict-JSON response schema
	// and returns the raw JSON text of the first candidate.
	GenerateStructured(ctx context.Context, prompt string) ([]byte, error)
	// GenerateSpeech narrates text with the fixed voice and returns the
	// base64 payload.
	GenerateSpeech(ctx context.Context, text string) (string, error)
}

type geminiClient struct {
	apiKey      string
	textModel   string
	speechModel string
	voice       string
	http        httpclient.Client
}

// NewGeminiClient builds the REST generator. Empty model/voice values fall
// back to defaults; an empty apiKey yields a client whose calls fail with
// ErrMissingAPIKey so callers can degrade.
func NewGeminiClient(apiKey, textModel, speechModel, voice string, client httpclient.Client) Generator {
	if textModel == "" {
		textModel = defaultTextModel
	}
	if speechModel == "" {
		speechModel = defaultSpeechModel
	}
	if voice == "" {
		voice = defaultVoice
	}
	if client == nil {
		client = httpclient.NewRestyClient(generateTimeout)
	}
	return &geminiClient{
		apiKey:      apiKey,
		textModel:   textModel,
		speechModel: speechModel,
		voice:       voice,
		http:        client,
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings   []safetySetting   `json:"safetySettings,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     json.RawMessage `json:"responseSchema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig   `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// permissiveSafety relaxes the content filters; news narration routinely
// trips the default thresholds.
func permissiveSafety() []safetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	out := make([]safetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, safetySetting{Category: c, Threshold: "BLOCK_NONE"})
	}
	return out
}

// enhancedArticleSchema constrains the text response to the enhanced-article
// shape, with one translated variant per supported language.
var enhancedArticleSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "full_text": {"type": "string"},
    "summary": {"type": "string"},
    "full_text_translations": {
      "type": "object",
      "properties": {
        "hi": {"type": "string"},
        "es": {"type": "string"},
        "fr": {"type": "string"},
        "de": {"type": "string"}
      },
      "required": ["hi", "es", "fr", "de"]
    },
    "summary_translations": {
      "type": "object",
      "properties": {
        "hi": {"type": "string"},
        "es": {"type": "string"},
        "fr": {"type": "string"},
        "de": {"type": "string"}
      },
      "required": ["hi", "es", "fr", "de"]
    }
  },
  "required": ["full_text", "summary", "full_text_translations", "summary_translations"]
}`)

func (c *geminiClient) endpoint(model string) string {
	return fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, model, c.apiKey)
}

func (c *geminiClient) call(ctx context.Context, model string, req generateRequest) (*generateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	resp, err := c.http.Post(ctx, c.endpoint(model), map[string]string{"Content-Type": "application/json"}, req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", model, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%s returned status %d", model, resp.StatusCode())
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", model, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%s returned no candidates", model)
	}
	return &out, nil
}

func (c *geminiClient) GenerateStructured(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := c.call(ctx, c.textModel, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   enhancedArticleSchema,
		},
	})
	if err != nil {
		return nil, err
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return nil, fmt.Errorf("%s returned an empty text part", c.textModel)
	}
	return []byte(text), nil
}

func (c *geminiClient) GenerateSpeech(ctx context.Context, text string) (string, error) {
	resp, err := c.call(ctx, c.speechModel, generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoice{VoiceName: c.voice},
				},
			},
		},
		SafetySettings: permissiveSafety(),
	})
	if err != nil {
		return "", err
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData.Data, nil
		}
	}
	return "", fmt.Errorf("%s returned no audio payload", c.speechModel)
}
