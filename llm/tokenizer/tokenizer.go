package tokenizer

import (
	"fmt"
	"sync"
)

// Tokenizer is the uniform token counting interface used for prompt
// budget checks before a generation call goes out.
type Tokenizer interface {
	// CountTokens returns the token count of the given text.
	CountTokens(text string) (int, error)

	// CountMessages returns the total token count of a message list,
	// including per-message overhead (role markers, separators).
	CountMessages(messages []Message) (int, error)

	// Encode converts text into a token ID list.
	Encode(text string) ([]int, error)

	// Decode converts token IDs back into text.
	Decode(tokens []int) (string, error)

	// MaxTokens returns the model's maximum context length.
	MaxTokens() int

	// Name returns the tokenizer's name.
	Name() string
}

// Message is a lightweight message shape used by this package to avoid
// a cycle with the llm package.
type Message struct {
	Role    string
	Content string
}

var (
	modelTokenizers   = make(map[string]Tokenizer)
	modelTokenizersMu sync.RWMutex
)

// RegisterTokenizer registers a tokenizer for the given model name.
func RegisterTokenizer(model string, t Tokenizer) {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	modelTokenizers[model] = t
}

// GetTokenizer returns the tokenizer registered for the model, also
// trying prefix matches (so "gpt-4o" serves "gpt-4o-mini").
func GetTokenizer(model string) (Tokenizer, error) {
	modelTokenizersMu.RLock()
	defer modelTokenizersMu.RUnlock()

	if t, ok := modelTokenizers[model]; ok {
		return t, nil
	}
	for prefix, t := range modelTokenizers {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// GetTokenizerOrEstimator returns the registered tokenizer for the
// model, falling back to the generic estimator when none is registered.
func GetTokenizerOrEstimator(model string) Tokenizer {
	t, err := GetTokenizer(model)
	if err != nil {
		return NewEstimatorTokenizer(model, 0)
	}
	return t
}
