package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/storefront/internal/adapter/rpcjson"
	"github.com/rl1809/storefront/internal/core/domain"
)

var ErrRejected = errors.New("order rejected by backend")

// GRPCGateway submits orders to the commerce backend over gRPC.
type GRPCGateway struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
	logger  *zap.Logger
}

func NewGRPCGateway(conn grpc.ClientConnInterface, timeout time.Duration, logger *zap.Logger) *GRPCGateway {
	return &GRPCGateway{conn: conn, timeout: timeout, logger: logger.Named("checkout_gateway")}
}

// Dial opens a plaintext client connection to the backend.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpcjson.Name)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial checkout backend %s: %w", addr, err)
	}
	return conn, nil
}

func (g *GRPCGateway) Submit(ctx context.Context, order domain.Order) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var resp SubmitOrderResponse
	err := g.conn.Invoke(ctx, submitOrderMethod, newSubmitOrderRequest(order), &resp,
		grpc.CallContentSubtype(rpcjson.Name))
	if err != nil {
		return "", fmt.Errorf("submit order %s: %w", order.ID, err)
	}
	if !resp.Accepted {
		g.logger.Warn("backend rejected order", zap.String("order_id", order.ID), zap.String("reason", resp.Reason))
		return "", fmt.Errorf("%w: %s", ErrRejected, resp.Reason)
	}
	if resp.RemoteID == "" {
		return "", fmt.Errorf("submit order %s: backend returned no id", order.ID)
	}
	return resp.RemoteID, nil
}
