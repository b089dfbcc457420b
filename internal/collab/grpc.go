package collab

// #region imports
import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #endregion

// #region types

// GenerateMethod is the full gRPC method name of the remote text generator.
// Request and response are google.protobuf.StringValue.
const GenerateMethod = "/merchant.v1.TextGenerator/Generate"

// Invoker is the unary-call surface of *grpc.ClientConn.
type Invoker interface {
	Invoke(ctx context.Context, method string, args any, reply any, opts ...grpc.CallOption) error
}

// #endregion

// #region client-struct
// GRPCClient calls a remote text-generation service over gRPC.
type GRPCClient struct {
	conn *grpc.ClientConn
	inv  Invoker
}

// #endregion client-struct

// #region constructor
// NewGRPCClient connects to the generation service at addr. The connection
// is lazy; failures surface on the first call.
func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn, inv: conn}, nil
}

// NewGRPCClientWithInvoker creates a client over an injected invoker.
// Used for testing without a real gRPC connection.
func NewGRPCClientWithInvoker(inv Invoker) *GRPCClient {
	return &GRPCClient{inv: inv}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region generate
// Generate sends prompt to the remote generator.
func (c *GRPCClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp := &wrapperspb.StringValue{}
	if err := c.inv.Invoke(ctx, GenerateMethod, wrapperspb.String(prompt), resp); err != nil {
		return "", fmt.Errorf("generate rpc: %w", err)
	}
	return resp.GetValue(), nil
}

// #endregion generate
