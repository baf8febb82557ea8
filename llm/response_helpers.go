package llm

import "fmt"

// FirstChoice safely returns the first choice from a ChatResponse.
// Returns an error if the response is nil or has no choices.
func FirstChoice(resp *ChatResponse) (ChatChoice, error) {
	if resp == nil {
		return ChatChoice{}, fmt.Errorf("nil ChatResponse")
	}
	if len(resp.Choices) == 0 {
		return ChatChoice{}, fmt.Errorf("empty choices in ChatResponse (model returned no choices)")
	}
	return resp.Choices[0], nil
}

// ExtractText pulls the completion text out of a response, checking the
// choices layout first and the legacy flat text field second. The second
// value reports whether any usable text was found.
func ExtractText(resp *ChatResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		return resp.Choices[0].Message.Content, true
	}
	if resp.Text != "" {
		return resp.Text, true
	}
	return "", false
}
