// Package core provides the foundational domain types and small interfaces
// shared by every other package:
//
//   - Turns (immutable role + content records of a conversation)
//   - Conversations (the append-only history of one thread) and Exchanges
//     (staged turns of a single user-facing exchange, committed atomically)
//   - ConversationStore (the durable persistence collaborator contract)
//   - ChainLimiter (the counter bounding consecutive tool calls)
//
// Concrete storage, model providers and the agent loop live in their own
// packages so they can be swapped without touching these contracts.
package core
