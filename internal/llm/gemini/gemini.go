// Package gemini answers questions with Google Gemini, constrained to a lecture context.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"lecturetutor/internal/domain"
	"lecturetutor/internal/logger"
)

// NotCoveredPhrase is the reply the model is instructed to give when the context has no answer.
const NotCoveredPhrase = "This topic is not covered in the lecture."

// Config configures the generator.
type Config struct {
	APIKey            string
	Model             string
	Temperature       float32
	Timeout           time.Duration
	RequestsPerMinute int
}

type generateFunc func(ctx context.Context, prompt string) (string, error)

// Generator implements domain.Generator. Each call makes a single attempt.
type Generator struct {
	client   *genai.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	timeout  time.Duration
	generate generateFunc
}

var _ domain.Generator = (*Generator)(nil)

// New connects to the Gemini API.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)

	g := newGenerator(cfg, func(ctx context.Context, prompt string) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		return responseText(resp), nil
	})
	g.client = client
	return g, nil
}

func newGenerator(cfg Config, fn generateFunc) *Generator {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// quota refusals say nothing about service health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrQuota)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &Generator{
		breaker:  breaker,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), max(1, rpm/10)),
		timeout:  cfg.Timeout,
		generate: fn,
	}
}

// Generate answers question using only lectureContext.
func (g *Generator) Generate(ctx context.Context, question, lectureContext string) (string, error) {
	if !g.limiter.Allow() {
		return "", fmt.Errorf("%w: local request budget spent", domain.ErrQuota)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		text, err := g.generate(ctx, BuildPrompt(question, lectureContext))
		if err != nil {
			return nil, Classify(err)
		}
		return text, nil
	})
	if err != nil {
		return "", Classify(err)
	}
	return strings.TrimSpace(out.(string)), nil
}

// Close releases the underlying client.
func (g *Generator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// BuildPrompt renders the tutoring prompt for a single retrieved chunk.
func BuildPrompt(question, lectureContext string) string {
	var b strings.Builder
	b.WriteString("You are an AI tutor.\n")
	b.WriteString("Answer the question using ONLY the lecture context below.\n")
	b.WriteString("If the answer is not in the context, say:\n")
	fmt.Fprintf(&b, "%q\n\n", NotCoveredPhrase)
	fmt.Fprintf(&b, "Lecture Context:\n%s\n\n", strings.TrimSpace(lectureContext))
	fmt.Fprintf(&b, "Question:\n%s\n\n", strings.TrimSpace(question))
	b.WriteString("Answer:\n")
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		// first candidate only
		break
	}
	return b.String()
}

// ModelInfo describes a model available to the API key.
type ModelInfo struct {
	Name        string
	DisplayName string
	Methods     []string
}

// ListModels enumerates the models visible to apiKey.
func ListModels(ctx context.Context, apiKey string) ([]ModelInfo, error) {
	if apiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	var out []ModelInfo
	it := client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, Classify(err)
		}
		out = append(out, ModelInfo{Name: m.Name, DisplayName: m.DisplayName, Methods: m.SupportedGenerationMethods})
	}
	return out, nil
}
