// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"

	"github.com/pdiddy/roi-brief/pkg/types"
)

// Defaults applied when neither the run input nor the config sets a value.
const (
	DefaultBedrockModel   = "anthropic.claude-3-sonnet-20240229-v1:0"
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultRegion         = "us-west-2"
	DefaultMaxTokens      = 1500
	DefaultTemperature    = 0.3
)

// Model produces a reply for a prompt. Implementations must be safe for
// concurrent use.
type Model interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// ModelSpec selects and tunes a model for one call.
type ModelSpec struct {
	Region    string
	ModelID   string
	MaxTokens int

	// Temperature is nil to use the configured value.
	Temperature *float64
}

// ModelSource hands out models. ModelFactory is the production source.
type ModelSource interface {
	Model(ctx context.Context, spec ModelSpec) (Model, error)
}

// simulatedReply is the canned insight returned in simulate mode.
const simulatedReply = `{
  "pain_points": ["Unclear sales enablement content", "Long rep ramp time"],
  "value_hypothesis": "Reduce ramp time and improve win-rate by improving content findability and guided plays.",
  "next_best_action": "Run a 30-day pilot with 3 sales teams."
}`

// Simulated returns a fixed valid reply without any network access.
type Simulated struct{}

// Complete returns the canned reply.
func (Simulated) Complete(ctx context.Context, _ Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return simulatedReply, nil
}

// ClaudeModel calls Claude through the Anthropic Messages API, either
// directly or through Bedrock.
type ClaudeModel struct {
	client      *anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// Complete sends one message and returns the concatenated text blocks.
func (m *ClaudeModel) Complete(ctx context.Context, p Prompt) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
		Temperature: anthropic.Float(m.temperature),
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	return reply.String(), nil
}

// ModelFactory builds ClaudeModels and caches one API client per region.
type ModelFactory struct {
	cfg types.ModelConfig
	log zerolog.Logger

	mu      sync.Mutex
	clients map[string]*anthropic.Client
}

// NewModelFactory creates a factory. cfg supplies the provider and the
// defaults for fields a ModelSpec leaves zero.
func NewModelFactory(cfg types.ModelConfig, log zerolog.Logger) *ModelFactory {
	return &ModelFactory{cfg: cfg, log: log, clients: make(map[string]*anthropic.Client)}
}

// Model returns a model for spec, creating the region's client on first use.
func (f *ModelFactory) Model(ctx context.Context, spec ModelSpec) (Model, error) {
	spec = f.resolve(spec)

	client, err := f.client(ctx, spec.Region)
	if err != nil {
		return nil, err
	}
	return &ClaudeModel{
		client:      client,
		model:       spec.ModelID,
		maxTokens:   int64(spec.MaxTokens),
		temperature: *spec.Temperature,
	}, nil
}

// resolve fills unset fields from the config and then the package defaults.
func (f *ModelFactory) resolve(spec ModelSpec) ModelSpec {
	if spec.Region == "" {
		spec.Region = firstNonEmpty(f.cfg.Region, DefaultRegion)
	}
	if spec.ModelID == "" {
		spec.ModelID = f.cfg.ModelID
	}
	if spec.ModelID == "" {
		spec.ModelID = DefaultBedrockModel
		if f.cfg.Provider == types.ProviderAnthropic {
			spec.ModelID = DefaultAnthropicModel
		}
	}
	if spec.MaxTokens <= 0 {
		spec.MaxTokens = f.cfg.MaxTokens
	}
	if spec.MaxTokens <= 0 {
		spec.MaxTokens = DefaultMaxTokens
	}
	if spec.Temperature == nil {
		t := f.cfg.Temperature
		spec.Temperature = &t
	}
	return spec
}

func (f *ModelFactory) client(ctx context.Context, region string) (*anthropic.Client, error) {
	key := region
	if f.cfg.Provider == types.ProviderAnthropic {
		key = string(types.ProviderAnthropic)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[key]; ok {
		return c, nil
	}

	opts := []option.RequestOption{}
	if f.cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(f.cfg.Timeout))
	}
	switch f.cfg.Provider {
	case types.ProviderAnthropic:
		if f.cfg.APIKey == "" {
			return nil, errors.New("anthropic provider: API key required")
		}
		opts = append(opts, option.WithAPIKey(f.cfg.APIKey))
		if f.cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(f.cfg.BaseURL))
		}
	case types.ProviderBedrock, "":
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, config.WithRegion(region)))
	default:
		return nil, fmt.Errorf("unknown model provider %q (want bedrock or anthropic)", f.cfg.Provider)
	}

	c := anthropic.NewClient(opts...)
	f.clients[key] = &c
	f.log.Debug().Str("provider", string(f.cfg.Provider)).Str("region", region).Msg("created model client")
	return &c, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
