package retry

import "context"

// DoWithResultTyped is a type-safe generic wrapper around
// Retryer.DoWithResult. It eliminates the need for type assertions on
// the return value.
//
// Usage:
//
//	resp, err := retry.DoWithResultTyped[*llm.ChatResponse](r, ctx, func() (*llm.ChatResponse, error) {
//	    return provider.Completion(ctx, req)
//	})
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func() (T, error)) (T, error) {
	result, err := r.DoWithResult(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
