package full_node

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HEALTH_SERVICE is the service name reported next to the overall "" status.
const HEALTH_SERVICE = "chain_in_go.FullNode"

// HealthServer serves the standard gRPC health protocol for a full node. It reports
// NOT_SERVING once the node is poisoned or shutting down.
type HealthServer struct {
	fullNode   *FullNode
	health     *health.Server
	grpcServer *grpc.Server
	// How often the node is polled.
	interval time.Duration
}

func NewHealthServer(fullNode *FullNode) *HealthServer {
	hs := &HealthServer{
		fullNode:   fullNode,
		health:     health.NewServer(),
		grpcServer: grpc.NewServer(),
		interval:   time.Second,
	}
	healthpb.RegisterHealthServer(hs.grpcServer, hs.health)
	hs.setStatus(healthpb.HealthCheckResponse_SERVING)
	return hs
}

func (hs *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	hs.health.SetServingStatus("", status)
	hs.health.SetServingStatus(HEALTH_SERVICE, status)
}

// Serve blocks until Stop. While serving, the node is polled and the status drops to
// NOT_SERVING for good once it is poisoned.
func (hs *HealthServer) Serve(lis net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hs.watch(ctx)
	log.Println("Starting to serve gRPC health at:", lis.Addr())
	return hs.grpcServer.Serve(lis)
}

func (hs *HealthServer) watch(ctx context.Context) {
	ticker := time.NewTicker(hs.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if hs.fullNode.IsPoisoned() {
				log.Println("ledger is poisoned, reporting NOT_SERVING")
				hs.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
				return
			}
		}
	}
}

// Stop reports NOT_SERVING to watchers, then stops the gRPC server.
func (hs *HealthServer) Stop() {
	hs.health.Shutdown()
	hs.grpcServer.GracefulStop()
}
