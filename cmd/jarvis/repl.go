package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"

	"github.com/ericmichael/llm-deployment/agent"
	"github.com/ericmichael/llm-deployment/runner"
)

const audioCommand = "/audio "

// chatLoop reads one user input per line and prints the assistant's answer
// until exit, quit, EOF or cancellation.
func chatLoop(ctx context.Context, in io.Reader, r *runner.Runner, threadID, name string) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Printf("%v: ", ancli.ColoredMessage(ancli.CYAN, "you"))

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read user input: %w", err)
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}

		answer, err := ask(ctx, r, threadID, line)

		var limitErr *agent.ChainLimitError

		switch {
		case errors.As(err, &limitErr):
			ancli.PrintWarn(fmt.Sprintf("%v, answer is incomplete\n", limitErr))
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			ancli.PrintErr(fmt.Sprintf("%v\n", err))
			continue
		}

		fmt.Printf("%v: %v\n", ancli.ColoredMessage(ancli.MAGENTA, name), answer.Text)
	}
}

func ask(ctx context.Context, r *runner.Runner, threadID, line string) (agent.Answer, error) {
	if !strings.HasPrefix(line, audioCommand) {
		return r.Chat(ctx, threadID, line)
	}

	path := strings.TrimSpace(strings.TrimPrefix(line, audioCommand))

	audio, err := os.ReadFile(path)
	if err != nil {
		return agent.Answer{}, fmt.Errorf("read audio: %w", err)
	}

	return r.ChatAudio(ctx, threadID, filepath.Base(path), audio)
}
