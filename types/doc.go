// Package types holds the shared error model for the schemaflow pipeline.
//
// It is the lowest-level package in the module and depends on nothing
// internal, so every layer (schema, translate, workspace, extract, llm)
// can agree on one structured error contract: a stable ErrorCode, a
// Retryable flag the orchestrator's retry loop keys off, and an optional
// schema path for translation failures.
package types
