package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey struct{}

const (
	// HeaderTraceID 请求方传入的 trace id
	HeaderTraceID = "X-Trace-ID"
	// HeaderRequestID 网关常用的备选 header
	HeaderRequestID = "X-Request-ID"
)

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// Ensure 返回 ctx 中已有的 trace_id，没有则生成一个新的
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateTraceID()
	return WithContext(ctx, id), id
}

// FromHeaders 优先 X-Trace-ID，其次 X-Request-ID
func FromHeaders(get func(string) string) string {
	if v := get(HeaderTraceID); v != "" {
		return v
	}
	return get(HeaderRequestID)
}
