package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	llmdeployment "github.com/ericmichael/llm-deployment"
	"github.com/ericmichael/llm-deployment/agent"
	"github.com/ericmichael/llm-deployment/config"
	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/logging"
	"github.com/ericmichael/llm-deployment/model"
	anthropicmodel "github.com/ericmichael/llm-deployment/model/anthropic"
	openaimodel "github.com/ericmichael/llm-deployment/model/openai"
	"github.com/ericmichael/llm-deployment/runner"
	"github.com/ericmichael/llm-deployment/session"
	"github.com/ericmichael/llm-deployment/tool/builtin"
)

// app holds the wired dependencies shared by the chat and serve commands.
type app struct {
	cfg         *config.Config
	logger      *logging.StructuredLogger
	store       core.ConversationStore
	model       model.Model
	transcriber agent.Transcriber
	assistant   *llmdeployment.Assistant
	runner      *runner.Runner

	closers []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logging.NewSlogLogger(logging.ParseLevel(cfg.LogLevel), strings.ToLower(cfg.LogFormat), cfg.LogAddSource),
	}

	// Libraries logging through log/slog share the configured handler.
	slog.SetDefault(a.logger.Slog())

	if cfg.DBPath != "" {
		db, err := session.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open history database: %w", err)
		}

		a.store = db
		a.closers = append(a.closers, db.Close)
	} else {
		a.store = session.NewInMemoryStore()
	}

	a.model, a.transcriber = buildModel(cfg)

	a.assistant = llmdeployment.New(a.model, func(o *llmdeployment.Options) {
		o.Store = a.store
		o.Logger = a.logger
		o.BuiltinOptions = append(o.BuiltinOptions, a.builtinOptions)
		o.AgentOptions = append(o.AgentOptions, a.agentOptions)
	})
	a.runner = a.assistant.Runner

	return a, nil
}

// buildModel selects the provider. Only OpenAI offers transcription.
func buildModel(cfg *config.Config) (model.Model, agent.Transcriber) {
	switch cfg.ResolveProvider() {
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}), nil
	default:
		m := openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.APIKey = os.Getenv("OPENAI_API_KEY")
			o.BaseURL = cfg.OpenAIBaseURL
		})

		return m, openaimodel.NewTranscriber(m.Client())
	}
}

func (a *app) builtinOptions(o *builtin.Options) {
	o.HTTPClient = &http.Client{Timeout: a.cfg.ToolTimeout}
	o.Location = a.cfg.Location
	o.SerpAPIKey = a.cfg.SerpAPIKey
}

func (a *app) agentOptions(o *agent.Options) {
	if a.cfg.SystemPrompt != "" {
		o.Instruction = agent.NewInstructionFromText(a.cfg.SystemPrompt)
	}

	o.Name = a.cfg.Name
	o.Location = a.cfg.Location
	o.MaxToolCalls = a.cfg.MaxToolCalls
	o.Temperature = model.Float(a.cfg.Temperature)
	o.Stream = a.cfg.Stream
	o.ModelTimeout = a.cfg.ModelTimeout
	o.ToolTimeout = a.cfg.ToolTimeout
	o.Transcriber = a.transcriber
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Error("app.close.failed", "error", err)
		}
	}
}
