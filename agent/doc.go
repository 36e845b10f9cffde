// Package agent contains the tool-augmented conversational agent: one Agent
// per conversation thread, driving the model until it produces a plain answer.
// The package focuses on three concerns:
//
//  1. Prompt assembly (Instruction, Compose)
//  2. The bounded model/tool loop (Agent.Chat, Agent.ChatAudio)
//  3. History bookkeeping (staged exchanges committed to a core.Conversation)
//
// Execution Model:
//   - The loop starts in AWAITING_INPUT, calls the model (MODEL_CALL) and
//     parses the reply; a plain reply is FINAL, a `Tool: name(args)` reply is a
//     TOOL_CALL whose result is fed back for another MODEL_CALL
//   - Every step yields a tagged result: continue, done or aborted
//   - At most MaxToolCalls tool calls are made per user input; the next
//     request aborts the exchange with *ChainLimitError and a partial answer
//   - Tool failures (unknown tool, bad arguments, handler errors, unparsable
//     calls) become "Tool Error: ..." turns the model can react to
//   - Model failures are fatal for the exchange: nothing is committed and the
//     input can be retried
//
// The package keeps persistence, model specifics and tool registry
// abstractions in their respective packages to avoid cyclic deps.
package agent
