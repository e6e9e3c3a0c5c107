package remote

import (
	"context"

	"google.golang.org/grpc"
)

const (
	checkoutServiceName = "commerce.v1.CheckoutService"
	submitOrderMethod   = "/" + checkoutServiceName + "/SubmitOrder"
)

// CheckoutServer is the backend side of commerce.v1.CheckoutService.
type CheckoutServer interface {
	SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResponse, error)
}

func RegisterCheckoutServer(s grpc.ServiceRegistrar, srv CheckoutServer) {
	s.RegisterService(&checkoutServiceDesc, srv)
}

func submitOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CheckoutServer).SubmitOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitOrderMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CheckoutServer).SubmitOrder(ctx, req.(*SubmitOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var checkoutServiceDesc = grpc.ServiceDesc{
	ServiceName: checkoutServiceName,
	HandlerType: (*CheckoutServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitOrder", Handler: submitOrderHandler},
	},
	Streams: []grpc.StreamDesc{},
}
