package extract

import (
	"github.com/BaSui01/schemaflow/llm"
)

// Prompt is the caller's side of an extraction request: either a bare
// instruction string or a prepared message sequence.
type Prompt struct {
	text     string
	messages []llm.Message
	fromText bool
}

// TextPrompt wraps a bare instruction string.
func TextPrompt(text string) Prompt {
	return Prompt{text: text, fromText: true}
}

// MessagesPrompt wraps a prepared message sequence.
func MessagesPrompt(messages ...llm.Message) Prompt {
	return Prompt{messages: messages}
}

// MergeHint folds the schema hint into the prompt and returns the
// message sequence to send.
//
// For a text prompt the hint is concatenated onto the instruction and
// the whole becomes a single user message. For a message sequence the
// hint is appended to the leading system message; when the sequence
// does not start with one, a new leading system message is inserted so
// the hint keeps positional priority. An empty sequence becomes a lone
// system message carrying the hint. The input is never mutated.
func MergeHint(p Prompt, hint string) []llm.Message {
	if p.fromText {
		content := p.text
		if content == "" {
			content = hint
		} else if hint != "" {
			content = content + "\n\n" + hint
		}
		return []llm.Message{{Role: llm.RoleUser, Content: content}}
	}

	if len(p.messages) == 0 {
		return []llm.Message{{Role: llm.RoleSystem, Content: hint}}
	}

	merged := make([]llm.Message, len(p.messages))
	copy(merged, p.messages)

	if merged[0].Role == llm.RoleSystem {
		if merged[0].Content == "" {
			merged[0].Content = hint
		} else if hint != "" {
			merged[0].Content = merged[0].Content + "\n\n" + hint
		}
		return merged
	}

	return append([]llm.Message{{Role: llm.RoleSystem, Content: hint}}, merged...)
}
