// Package openai adapts the OpenAI chat completions API (and any
// compatible endpoint) to the llm.Provider interface.
package openai
