// Package runner manages the lifetime of per-thread agent sessions.
//
// The Runner is the coordination hub between transports (HTTP server, CLI)
// and agents. Each conversation thread gets exactly one *agent.Agent, built
// lazily by a Factory and loaded from the ConversationStore on first use.
// Sessions never share a Conversation or tool Registry; requests for the same
// thread are serialised by the agent, requests for different threads run
// concurrently.
//
// # Responsibilities
//   - Thread creation and deletion (store rows plus in-memory session)
//   - Lazy session construction with explicit history load
//   - Cancellation of the in-flight exchange of a thread
//   - Optional cap on exchanges running at once (MaxConcurrentRuns)
package runner
