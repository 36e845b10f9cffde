// Package session houses concrete implementations of core.ConversationStore,
// the durable persistence collaborator for conversation threads. The
// interface itself lives in the core package to centralize domain contracts.
// Keeping only implementations here prevents higher level packages (agent,
// runner) from depending on concrete storage.
//
// Backends:
//   - InMemoryStore: process local, for tests and ephemeral servers
//   - SQLiteStore: file backed via modernc.org/sqlite (pure Go, no cgo)
//
// Both order loaded turns by (timestamp, id) and treat a repeated Append of the
// same turn id as a no-op.
package session
