// Package analyzer composes the analysis prompt, sends it to the configured
// generative backend and classifies what comes back.
package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/analyzer/providers"
	"github.com/ibeckermayer/postlens/internal/apperr"
	"github.com/ibeckermayer/postlens/internal/config"
	"github.com/ibeckermayer/postlens/internal/debugdump"
)

// Provider defines the interface for generative backends
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (providers.Completion, error)
}

// NewProvider creates the provider named in the analysis config
func NewProvider(ctx context.Context, cfg config.AnalysisConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return providers.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature)
	case config.ProviderAnthropic:
		return providers.NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// lazyProvider builds the configured provider on the first Complete, so
// processes that never analyze do not need backend credentials
type lazyProvider struct {
	cfg config.AnalysisConfig

	once     sync.Once
	provider Provider
	err      error
}

// NewLazyProvider returns a Provider that defers NewProvider until first use.
// A construction failure is returned from every Complete call.
func NewLazyProvider(cfg config.AnalysisConfig) Provider {
	return &lazyProvider{cfg: cfg}
}

func (l *lazyProvider) Name() string  { return l.cfg.Provider }
func (l *lazyProvider) Model() string { return l.cfg.Model }

func (l *lazyProvider) Complete(ctx context.Context, prompt string) (providers.Completion, error) {
	l.once.Do(func() {
		l.provider, l.err = NewProvider(context.WithoutCancel(ctx), l.cfg)
	})
	if l.err != nil {
		return providers.Completion{}, l.err
	}
	return l.provider.Complete(ctx, prompt)
}

// Analyzer sends prompts to a provider with a bounded timeout
type Analyzer struct {
	provider Provider
	timeout  time.Duration
	dumper   *debugdump.Dumper
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an analyzer. dumper may be nil.
func New(provider Provider, timeout time.Duration, dumper *debugdump.Dumper, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		provider: provider,
		timeout:  timeout,
		dumper:   dumper,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyze returns the backend's raw text unmodified. A refusal with no
// content is AnalysisBlocked with the backend's reason; a failed call, a
// timeout or an empty reply is AnalysisBackendError.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	completion, err := a.provider.Complete(ctx, prompt)
	a.dump(prompt, completion, err)

	if err != nil {
		return "", apperr.Wrap(apperr.AnalysisBackendError, err, "%s request failed", a.provider.Name())
	}
	if len(completion.Parts) == 0 {
		if completion.BlockReason != "" {
			a.logger.Warn("analysis blocked",
				zap.String("provider", a.provider.Name()),
				zap.String("reason", completion.BlockReason),
			)
			return "", apperr.Blocked(completion.BlockReason)
		}
		return "", apperr.New(apperr.AnalysisBackendError, "%s returned an empty response", a.provider.Name())
	}
	return completion.Text(), nil
}

func (a *Analyzer) dump(prompt string, completion providers.Completion, callErr error) {
	if !a.dumper.Enabled() {
		return
	}

	exchange := debugdump.LLMExchange{
		Timestamp:   a.now(),
		Provider:    a.provider.Name(),
		Model:       a.provider.Model(),
		Prompt:      prompt,
		Response:    completion.Text(),
		BlockReason: completion.BlockReason,
	}
	if callErr != nil {
		exchange.Error = callErr.Error()
	}

	path, err := a.dumper.SaveLLMExchange(exchange)
	if err != nil {
		a.logger.Warn("failed to dump LLM exchange", zap.Error(err))
		return
	}
	a.logger.Debug("dumped LLM exchange", zap.String("path", path))
}
