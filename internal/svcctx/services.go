package svcctx

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jackzampolin/intake/internal/config"
	"github.com/jackzampolin/intake/internal/extraction"
	"github.com/jackzampolin/intake/internal/home"
	"github.com/jackzampolin/intake/internal/imaging"
	"github.com/jackzampolin/intake/internal/metrics"
	"github.com/jackzampolin/intake/internal/pipeline"
	"github.com/jackzampolin/intake/internal/prompts"
	"github.com/jackzampolin/intake/internal/prompts/analyze"
	"github.com/jackzampolin/intake/internal/providers"
	"github.com/jackzampolin/intake/internal/render"
	"github.com/jackzampolin/intake/internal/textextract"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Registry      *providers.Registry
	ConfigManager *config.Manager // nil when built from a static config
	Logger        *slog.Logger
	Home          *home.Dir
	Metrics       *metrics.Recorder
	Prompts       *prompts.Resolver

	mu         sync.Mutex
	cfg        atomic.Pointer[config.Config]
	controller atomic.Pointer[pipeline.Controller]
}

// New builds the service graph from cfg. When cm is non-nil, cfg is taken
// from it and later config changes rebuild the registry and controller.
func New(cm *config.Manager, cfg *config.Config, h *home.Dir, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	if cm != nil {
		cfg = cm.Get()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	registry := providers.NewRegistry()
	registry.SetLogger(logger)

	s := &Services{
		Registry:      registry,
		ConfigManager: cm,
		Logger:        logger,
		Home:          h,
		Metrics:       metrics.NewRecorder(metrics.DefaultCapacity),
		Prompts:       prompts.NewResolver("", logger),
	}
	analyze.RegisterPrompts(s.Prompts)
	s.Apply(cfg)

	if cm != nil {
		cm.OnChange(func(c *config.Config) {
			s.Apply(c)
			logger.Info("services reloaded from config")
		})
	}
	return s
}

// Apply swaps in a new configuration. In-flight requests keep the
// controller they started with.
func (s *Services) Apply(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Registry.Reload(cfg.ToProviderRegistryConfig())

	overrideDir := cfg.Prompts.OverrideDir
	if overrideDir == "" && s.Home != nil && s.Home.PromptsExist() {
		overrideDir = s.Home.PromptsPath()
	}
	s.Prompts.SetOverrideDir(overrideDir)

	s.cfg.Store(cfg)
	s.controller.Store(s.buildController(cfg))
}

func (s *Services) buildController(cfg *config.Config) *pipeline.Controller {
	oracle := &extraction.LLMOracle{
		Registry:    s.Registry,
		Provider:    cfg.Defaults.LLMProvider,
		Model:       cfg.Defaults.Model,
		Temperature: cfg.Defaults.Temperature,
		MaxTokens:   cfg.Defaults.MaxTokens,
	}
	orch := extraction.New(oracle, s.Prompts, s.Logger)
	orch.Metrics = s.Metrics

	text := textextract.New(s.Logger)
	text.MinChars = cfg.Pipeline.MinTextChars
	text.MaxPages = cfg.Pipeline.MaxTextPages

	renderer := render.New(s.Logger)
	if cfg.Pipeline.Pdftoppm != "" {
		renderer.Pdftoppm = cfg.Pipeline.Pdftoppm
	}
	if cfg.Pipeline.RenderDPI > 0 {
		renderer.DPI = cfg.Pipeline.RenderDPI
	}

	policy, err := pipeline.ParsePolicy(cfg.Pipeline.Mode)
	if err != nil {
		s.Logger.Warn("invalid pipeline mode, using auto", "mode", cfg.Pipeline.Mode, "error", err)
		policy = pipeline.PolicyAuto
	}

	return &pipeline.Controller{
		Text:       text,
		Renderer:   renderer,
		Normalizer: imaging.New(),
		Extractor:  orch,
		Policy:     policy,
		Logger:     s.Logger,
	}
}

// Controller returns the current pipeline controller.
func (s *Services) Controller() *pipeline.Controller {
	return s.controller.Load()
}

// Config returns the configuration the services were last built from.
func (s *Services) Config() *config.Config {
	return s.cfg.Load()
}

// OracleReady reports whether the configured oracle provider is registered.
func (s *Services) OracleReady() bool {
	cfg := s.Config()
	return cfg != nil && s.Registry.HasLLM(cfg.Defaults.LLMProvider)
}
