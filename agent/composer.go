package agent

import "github.com/ericmichael/llm-deployment/core"

// Compose assembles the message list sent to the model: the system turn (when
// system is non-empty), then history in stored order, then input (when not
// nil). It never mutates history.
func Compose(system string, history []core.Turn, input *core.Turn) []core.Turn {
	n := len(history)
	if system != "" {
		n++
	}

	if input != nil {
		n++
	}

	messages := make([]core.Turn, 0, n)

	if system != "" {
		messages = append(messages, core.Turn{Role: core.RoleSystem, Content: system})
	}

	messages = append(messages, history...)

	if input != nil {
		messages = append(messages, *input)
	}

	return messages
}
