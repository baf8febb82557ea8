// Package tokenizer provides token counting for prompt budget checks,
// with exact counts via tiktoken for OpenAI-family models and a CJK
// aware estimator for everything else.
package tokenizer
