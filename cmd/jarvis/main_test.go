package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericmichael/llm-deployment/agent"
	"github.com/ericmichael/llm-deployment/config"
	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/model"
	"github.com/ericmichael/llm-deployment/runner"
	"github.com/ericmichael/llm-deployment/tool"
)

type transcriberFunc func(ctx context.Context, filename string, audio []byte) (string, error)

func (f transcriberFunc) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	return f(ctx, filename, audio)
}

func newTestRunner(t *testing.T, m model.Model, optFns ...func(o *agent.Options)) (*runner.Runner, string) {
	t.Helper()

	r := runner.New(func(threadID string, store core.ConversationStore) (*agent.Agent, error) {
		fns := append([]func(o *agent.Options){func(o *agent.Options) { o.Store = store }}, optFns...)
		return agent.New(threadID, m, tool.MustRegistry(), fns...), nil
	})

	thread, err := r.CreateThread(context.Background(), "test")
	require.NoError(t, err)

	return r, thread.ID
}

func TestRun_Help(t *testing.T) {
	var status int

	stdout := testboil.CaptureStdout(t, func(t *testing.T) {
		status = run([]string{"help"})
	})

	testboil.FailTestIfDiff(t, status, 0)
	testboil.AssertStringContains(t, stdout, "Usage: jarvis")
}

func TestRun_UnknownCommand(t *testing.T) {
	var status int

	stdout := testboil.CaptureStdout(t, func(t *testing.T) {
		status = run([]string{"dance"})
	})

	assert.Equal(t, 1, status)
	testboil.AssertStringContains(t, stdout, "Commands:")
}

func TestChatLoop(t *testing.T) {
	m := model.NewScriptedModel("Hello! How can I help?", "It is 3 PM.")
	r, threadID := newTestRunner(t, m)

	in := strings.NewReader("hi\n\nwhat time is it?\nexit\nnever sent\n")

	var err error

	stdout := testboil.CaptureStdout(t, func(t *testing.T) {
		err = chatLoop(context.Background(), in, r, threadID, "Jarvis")
	})

	require.NoError(t, err)
	testboil.AssertStringContains(t, stdout, "Hello! How can I help?")
	testboil.AssertStringContains(t, stdout, "It is 3 PM.")
	assert.Equal(t, 2, m.Calls())

	history, err := r.History(context.Background(), threadID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestChatLoop_ModelErrorKeepsGoing(t *testing.T) {
	m := model.NewScriptedModel().Fail(assert.AnError).Reply("Recovered.")
	r, threadID := newTestRunner(t, m)

	var err error

	stdout := testboil.CaptureStdout(t, func(t *testing.T) {
		err = chatLoop(context.Background(), strings.NewReader("one\ntwo\n"), r, threadID, "Jarvis")
	})

	require.NoError(t, err)
	testboil.AssertStringContains(t, stdout, "Recovered.")
}

func TestChatLoop_Audio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "question.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	var gotName string

	m := model.NewScriptedModel("Tomorrow is Friday.")
	r, threadID := newTestRunner(t, m, func(o *agent.Options) {
		o.Transcriber = transcriberFunc(func(_ context.Context, filename string, _ []byte) (string, error) {
			gotName = filename
			return "What day is tomorrow?", nil
		})
	})

	stdout := testboil.CaptureStdout(t, func(t *testing.T) {
		require.NoError(t, chatLoop(context.Background(), strings.NewReader("/audio "+path+"\n"), r, threadID, "Jarvis"))
	})

	testboil.AssertStringContains(t, stdout, "Tomorrow is Friday.")
	assert.Equal(t, "question.wav", gotName)
}

func TestBuildModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "test")

	cfg := config.Default()

	m, tr := buildModel(cfg)
	assert.Equal(t, "anthropic", m.Info().Provider)
	assert.Nil(t, tr)

	cfg.Provider = config.ProviderOpenAI
	cfg.Model = "gpt-4o"

	m, tr = buildModel(cfg)
	assert.Equal(t, "openai", m.Info().Provider)
	assert.Equal(t, "gpt-4o", m.Info().Name)
	assert.NotNil(t, tr)
}

func TestNewApp_InMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderOpenAI
	cfg.Location = "Austin, Texas"

	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	thread, err := a.runner.CreateThread(context.Background(), "t1")
	require.NoError(t, err)

	ag, err := a.runner.Session(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, ag.Registry().Len())
	assert.Equal(t, thread.ID, ag.ThreadID())
	assert.Same(t, a.model, ag.Model())
}

func TestNewApp_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderOpenAI
	cfg.DBPath = filepath.Join(t.TempDir(), "jarvis.db")
	cfg.SerpAPIKey = "key"

	a, err := newApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	thread, err := a.runner.CreateThread(context.Background(), "persisted")
	require.NoError(t, err)

	got, err := a.store.GetThread(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Name)

	ag, err := a.runner.Session(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, ag.Registry().Len())
}
