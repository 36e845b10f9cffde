// Command jarvis runs the tool-augmented assistant, either as an interactive
// chat in the terminal or as an HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/shutdown"

	"github.com/ericmichael/llm-deployment/config"
	"github.com/ericmichael/llm-deployment/server"
)

const usage = `jarvis - a tool-augmented assistant

Usage: jarvis [flags] <command>

Flags:
  -config string  optional YAML configuration file
  -thread string  resume an existing thread (chat only)

Commands:
  chat, c   interactive chat in the terminal (default)
  serve, s  HTTP JSON API on JARVIS_HTTP_ADDR
  help, h   print this help

Configuration is read from .env, the optional YAML file and JARVIS_* environment
variables. OPENAI_API_KEY or ANTHROPIC_API_KEY selects the provider unless
JARVIS_PROVIDER is set.

Inside chat:
  /audio <path>  send a recorded question (OpenAI only)
  exit, quit     leave
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("jarvis", flag.ContinueOnError)
	fs.Usage = func() { fmt.Print(usage) }

	configPath := fs.String("config", "", "optional YAML configuration file")
	threadID := fs.String("thread", "", "resume an existing thread")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cmd := "chat"
	if fs.NArg() > 0 {
		cmd = fs.Arg(0)
	}

	switch cmd {
	case "help", "h":
		fmt.Print(usage)
		return 0
	case "chat", "c", "serve", "s":
	default:
		ancli.PrintErr(fmt.Sprintf("unknown command: %q\n", cmd))
		fmt.Print(usage)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to load configuration: %v\n", err))
		return 1
	}

	app, err := newApp(cfg)
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to setup: %v\n", err))
		return 1
	}
	defer app.Close()

	switch cmd {
	case "serve", "s":
		err = serve(app)
	default:
		err = chat(app, *threadID)
	}

	if err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to run: %v\n", err))
		return 1
	}

	return 0
}

func serve(app *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(app.runner, func(o *server.Options) {
		o.Addr = app.cfg.HTTPAddr
		o.Logger = app.logger
	})

	return srv.ListenAndServe(ctx)
}

func chat(app *app, threadID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { shutdown.Monitor(cancel) }()

	if threadID == "" {
		thread, err := app.runner.CreateThread(ctx, "Terminal chat")
		if err != nil {
			return err
		}

		threadID = thread.ID
	} else if _, err := app.runner.History(ctx, threadID); err != nil {
		return fmt.Errorf("resume thread %s: %w", threadID, err)
	}

	ancli.PrintOK(fmt.Sprintf("thread %s, provider %s (%s)\n", threadID, app.model.Info().Provider, app.model.Info().Name))

	err := chatLoop(ctx, os.Stdin, app.runner, threadID, app.cfg.Name)
	if err == nil || errors.Is(err, context.Canceled) {
		ancli.Okf("Seems like you wanted out. Byebye!\n")
		return nil
	}

	return err
}
