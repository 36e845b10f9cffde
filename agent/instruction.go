package agent

import (
	"context"

	"github.com/ericmichael/llm-deployment/internal/util"
)

// DefaultPrompt is the system prompt used when no instruction is configured.
// It is rendered with PromptData.
const DefaultPrompt = `You are a helpful AI assistant named {{.Name}}.

You do have access to the following real-time information:
- Current date and time: {{.Date}}
- My location: {{default "unknown" .Location}}

## Tools

You have access to the following tools:
{{.Tools}}

## Tool Rules

When the user asks a question that can be answered by using a tool, you MUST do so. Do not answer from your training data.
Infer what tool to be used based on the conversation and follow through with execution of the tool without asking for permission.
If you suspect a tool can be used, USE IT.

## Using Tools

To use a tool, reply with the following prefix "Tool: " then append the tool call (like a function call), for example:
Tool: geocode("New York")

Behind the scenes, your software will pick up that you want to invoke a tool and invoke it for you. The result is sent back to you prefixed with "Tool Result: ", or "Tool Error: " if the call failed.

## Using Tool Responses

Answer the user's question using the response from the tool. Feel free to make it conversational.

## Chaining Tools

You are allowed to chain together multiple calls to tools before giving an answer, if needed.

## Responses

Aside from when you decide to invoke a tool, your responses may be spoken out loud by a text-to-speech engine.
When producing your responses make sure to write them in the way you intend for them to be spoken out loud.
For example, 11/1/2023 should be written as November 1st, 2023.`

// PromptData is the data available to instruction templates.
type PromptData struct {
	Name     string
	Date     string
	Location string
	// Tools lists the registered tools, one "- name(params): description" per line.
	Tools string
}

func (d PromptData) state() map[string]any {
	return map[string]any{
		"Name":     d.Name,
		"Date":     d.Date,
		"Location": d.Location,
		"Tools":    d.Tools,
	}
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(ctx context.Context, data PromptData) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(ctx context.Context, data PromptData) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ctx context.Context, data PromptData) (string, error) { return f(ctx, data) }

// Instruction represents either a template string or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a template string. An
// empty text means no system turn is sent.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, data PromptData) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider or rendering
// the template as needed.
func (i Instruction) Resolve(ctx context.Context, data PromptData) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, data)
	}

	return util.RenderTemplate(i.text, data.state())
}
