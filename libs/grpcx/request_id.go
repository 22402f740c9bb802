package grpcx

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

// RequestIDMetadataKey mirrors the HTTP X-Request-Id header in gRPC metadata.
const RequestIDMetadataKey = "x-request-id"

type requestIDKey struct{}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// incomingRequestID returns the caller-supplied id, or a fresh one when the
// caller sent none or one longer than 128 bytes.
func incomingRequestID(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get(RequestIDMetadataKey) {
		if v != "" && len(v) <= 128 {
			return v
		}
	}
	return uuid.NewString()
}
