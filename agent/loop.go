package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/logging"
	"github.com/ericmichael/llm-deployment/model"
	"github.com/ericmichael/llm-deployment/tool"
)

const (
	// LimitReachedMessage is the tool error recorded when an exchange is truncated.
	LimitReachedMessage = "tool call limit reached"

	// PartialFallback is the answer text of a truncated exchange that produced
	// neither a plain reply nor a tool result.
	PartialFallback = "I couldn't finish looking that up."
)

type stepKind int

const (
	stepContinue stepKind = iota
	stepDone
	stepAborted
)

// stepResult is the tagged outcome of one MODEL_CALL (and, for tool calls,
// the TOOL_CALL that follows it).
type stepResult struct {
	kind  stepKind
	reply string
	err   error
}

// run drives one exchange to a terminal state. The caller holds a.mu.
func (a *Agent) run(ctx context.Context, text string) (Answer, error) {
	start := time.Now()

	system, err := a.systemPrompt(ctx)
	if err != nil {
		return Answer{}, err
	}

	ex := a.conv.Begin()
	limiter := core.NewChainLimiter(a.opts.MaxToolCalls)

	userTurn := core.NewUserTurn(text)
	input := &userTurn

	a.logger.Info("agent.exchange.start", "input_len", len(text), "history", a.conv.Len())

	for {
		if err := ctx.Err(); err != nil {
			return a.abandon(ex, limiter, start, err)
		}

		res := a.step(ctx, ex, system, input, limiter)
		input = nil

		if res.kind != stepContinue && ctx.Err() != nil {
			// A reply that arrives after cancellation is not committed.
			return a.abandon(ex, limiter, start, ctx.Err())
		}

		switch res.kind {
		case stepContinue:
			continue
		case stepDone:
			answer, err := a.commit(ctx, ex, res.reply, limiter.Count())
			logging.LogExchange(a.logger, limiter.Count(), time.Since(start), err, "turns", len(answer.Turns))

			return answer, err
		case stepAborted:
			var limitErr *ChainLimitError
			if !errors.As(res.err, &limitErr) {
				return a.abandon(ex, limiter, start, res.err)
			}

			answer, err := a.commit(ctx, ex, partialAnswer(ex.Staged()), limiter.Count())
			if err != nil {
				return answer, err
			}

			answer.Partial = true
			a.logger.Warn("agent.chain.limit_exceeded", "limit", limitErr.Limit)
			logging.LogExchange(a.logger, limiter.Count(), time.Since(start), res.err, "turns", len(answer.Turns))

			return answer, res.err
		}
	}
}

// abandon discards the staged turns and reports err.
func (a *Agent) abandon(ex *core.Exchange, limiter *core.ChainLimiter, start time.Time, err error) (Answer, error) {
	ex.Discard()
	logging.LogExchange(a.logger, limiter.Count(), time.Since(start), err, "discarded", true)

	return Answer{}, err
}

// step performs MODEL_CALL and, when the reply requests one, TOOL_CALL.
func (a *Agent) step(
	ctx context.Context,
	ex *core.Exchange,
	system string,
	input *core.Turn,
	limiter *core.ChainLimiter,
) stepResult {
	messages := Compose(system, ex.Transcript(), input)

	reply, err := a.callModel(ctx, messages)
	if err != nil {
		return stepResult{kind: stepAborted, err: err}
	}

	// The round succeeded: record what was sent and what came back.
	if input != nil {
		ex.Stage(*input)
	}

	ex.Stage(core.NewAssistantTurn(reply))

	call, ok, parseErr := tool.Parse(reply)
	if !ok && parseErr == nil {
		return stepResult{kind: stepDone, reply: reply}
	}

	if err := limiter.Increment(); err != nil {
		ex.Stage(core.NewToolErrorTurn(errors.New(LimitReachedMessage)))
		return stepResult{kind: stepAborted, err: &ChainLimitError{Limit: limiter.Max()}}
	}

	if parseErr != nil {
		a.logger.Warn("agent.tool.error", "error", parseErr.Error())
		ex.Stage(core.NewToolErrorTurn(parseErr))

		return stepResult{kind: stepContinue, reply: reply}
	}

	a.logger.Info("agent.tool.invoke",
		"tool", call.Name,
		"args", len(call.Arguments),
		"call", limiter.Count(),
		"remaining", limiter.Remaining(),
	)

	result, err := a.invoker.Invoke(ctx, call)
	if err != nil {
		a.logger.Warn("agent.tool.error", "tool", call.Name, "error", err.Error())
		ex.Stage(core.NewToolErrorTurn(err))

		return stepResult{kind: stepContinue, reply: reply}
	}

	ex.Stage(core.NewToolResultTurn(result))

	return stepResult{kind: stepContinue, reply: reply}
}

func (a *Agent) callModel(ctx context.Context, messages []core.Turn) (string, error) {
	if a.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, a.opts.ModelTimeout)
		defer cancel()
	}

	start := time.Now()

	resp, err := model.Send(ctx, a.llm, model.Request{
		Messages:    messages,
		Model:       a.opts.Model,
		Temperature: a.opts.Temperature,
		Stream:      a.opts.Stream,
	})

	name := a.llm.Info().Name
	if err != nil {
		logging.LogModelCall(a.logger, name, time.Since(start), err, "messages", len(messages))
		return "", err
	}

	logging.LogModelCall(a.logger, name, time.Since(start), nil,
		"messages", len(messages),
		"finish_reason", resp.FinishReason,
	)

	return resp.Content, nil
}

// commit makes the staged turns part of the conversation. A store failure is
// logged; the in-memory history remains authoritative. Only a closed
// conversation fails the commit.
func (a *Agent) commit(ctx context.Context, ex *core.Exchange, text string, toolCalls int) (Answer, error) {
	turns := ex.Staged()

	if err := ex.Commit(context.WithoutCancel(ctx)); err != nil {
		if errors.Is(err, core.ErrConversationClosed) {
			a.logger.Warn("agent.history.closed", "turns", len(turns))
			return Answer{}, err
		}

		a.logger.Error("agent.history.persist_failed", "error", err.Error())
	}

	return Answer{Text: text, ToolCalls: toolCalls, Turns: turns}, nil
}

// partialAnswer picks the text shown for an exchange truncated by the chain
// limit: the last reply that was not a tool call, else the last tool result,
// else PartialFallback.
func partialAnswer(staged []core.Turn) string {
	for i := len(staged) - 1; i >= 0; i-- {
		if t := staged[i]; t.Role == core.RoleAssistant && !tool.HasMarker(t.Content) {
			return t.Content
		}
	}

	for i := len(staged) - 1; i >= 0; i-- {
		if t := staged[i]; t.Role == core.RoleTool && strings.HasPrefix(t.Content, core.ToolResultPrefix) {
			return strings.TrimPrefix(t.Content, core.ToolResultPrefix)
		}
	}

	return PartialFallback
}
