package reqid

import "context"

type key struct{}

// With attaches a request correlation ID to the context.
func With(ctx context.Context, id string) context.Context {
    if ctx == nil {
        ctx = context.Background()
    }
    return context.WithValue(ctx, key{}, id)
}

// From returns the correlation ID carried by ctx, if any.
func From(ctx context.Context) (string, bool) {
    if ctx == nil {
        return "", false
    }
    s, ok := ctx.Value(key{}).(string)
    return s, ok && s != ""
}
