// Package model defines the provider-agnostic Model Client contract the agent
// loop talks to, plus helpers shared by the concrete providers.
//
// Core goals:
//   - Keep request/response shapes minimal: an ordered list of core.Turn in,
//     one assistant message out
//   - Unify streaming and non-streaming generation behind a single interface
//   - Surface every provider failure as *CallError (errors.Is ErrModelCall)
//   - Facilitate deterministic tests (ScriptedModel)
//
// Providers (model/openai, model/anthropic) implement Model so the agent stays
// decoupled from vendor SDKs.
package model
