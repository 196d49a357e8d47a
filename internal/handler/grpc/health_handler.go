package grpc

import (
	"context"

	"product-store/internal/logger"
	"product-store/internal/service"

	"go.opentelemetry.io/otel"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ProductServiceName is the service name reported by Check when callers ask for it explicitly.
const ProductServiceName = "product.ProductService"

// HealthGRPCHandler answers grpc.health.v1 checks from the same dependency probe as /healthz.
type HealthGRPCHandler struct {
	healthpb.UnimplementedHealthServer
	Service *service.HealthService
}

var GrpcHealthHandlerTracer = otel.Tracer("GrpcHealthHandler")

func NewHealthGRPCHandler(svc *service.HealthService) *HealthGRPCHandler {
	return &HealthGRPCHandler{
		Service: svc,
	}
}

func (h *HealthGRPCHandler) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	ctx, span := GrpcHealthHandlerTracer.Start(ctx, "GrpcHealthHandler.Check")
	defer span.End()
	logger.Info(ctx, "GrpcHealthHandler.Check")

	switch req.GetService() {
	case "", ProductServiceName:
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}

	if !h.Service.Check(ctx).Healthy() {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
