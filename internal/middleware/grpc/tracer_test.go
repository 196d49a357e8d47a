package middleware_grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func Test_MetadataTextMapCarrier(t *testing.T) {
	carrier := MetadataTextMapCarrier(metadata.MD{})

	carrier.Set("Traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")

	assert.Equal(t, "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01", carrier.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, carrier.Keys())
	assert.Empty(t, carrier.Get("missing"))
}

func Test_UnaryTracingInterceptor(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	parent := "0af7651916cd43dd8448eb211c80319c"

	md := metadata.Pairs("traceparent", "00-"+parent+"-b7ad6b7169203331-01")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	testCases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "ok"},
		{name: "handler error", err: status.Error(codes.NotFound, "unknown service"), code: codes.NotFound},
		{name: "plain error", err: errors.New("boom"), code: codes.Unknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var seen trace.SpanContext
			handler := func(ctx context.Context, req any) (any, error) {
				seen = trace.SpanContextFromContext(ctx)
				if tc.err != nil {
					return nil, tc.err
				}
				return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
			}

			resp, err := UnaryTracingInterceptor()(ctx, &healthpb.HealthCheckRequest{}, info, handler)

			assert.Equal(t, parent, seen.TraceID().String())
			assert.Equal(t, tc.code, status.Code(err))
			if tc.err == nil {
				require.NotNil(t, resp)
			}
		})
	}
}
