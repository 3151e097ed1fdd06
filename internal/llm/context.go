package llm

import "context"

// DefaultPurpose labels model calls made without WithPurpose.
const DefaultPurpose = "unlabeled"

type purposeKey struct{}

// WithPurpose tags model calls made with ctx. The tag is stored with each
// request event and groups usage in "llm stats". An empty purpose leaves ctx
// unchanged.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	if purpose == "" {
		return ctx
	}
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the tag set by WithPurpose, or DefaultPurpose.
func PurposeFrom(ctx context.Context) string {
	if p, ok := ctx.Value(purposeKey{}).(string); ok {
		return p
	}
	return DefaultPurpose
}

type singleAttemptKey struct{}

// SingleAttempt marks calls made with ctx as not retryable: RetryProvider
// makes exactly one attempt. Callers that run their own retry loop, or must
// never retry, use it.
func SingleAttempt(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleAttemptKey{}, true)
}

func isSingleAttempt(ctx context.Context) bool {
	v, _ := ctx.Value(singleAttemptKey{}).(bool)
	return v
}
