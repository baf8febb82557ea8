// Package llm defines the provider abstraction the generation
// orchestrator talks to: chat request/response types, a minimal
// Provider interface, rate limiting, and helpers for pulling usable
// text out of responses across both response layouts providers emit.
package llm
