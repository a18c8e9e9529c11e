// Package pb holds the gRPC contracts of the detector. Messages are protobuf
// well-known types, so no generated message code is needed.
//
//	service deepfake.v1.Classifier {
//	  rpc Score(google.protobuf.BytesValue) returns (google.protobuf.FloatValue);
//	  rpc Health(google.protobuf.Empty) returns (google.protobuf.Empty);
//	}
//
// Score takes one NHWC float32 little-endian tensor. Its shape is sent in the
// "x-tensor-shape" metadata key ("1,224,224,3") and the model name in "x-model-name".
package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	Classifier_Score_FullMethodName  = "/deepfake.v1.Classifier/Score"
	Classifier_Health_FullMethodName = "/deepfake.v1.Classifier/Health"

	MetadataTensorShape = "x-tensor-shape"
	MetadataModelName   = "x-model-name"
)

type ClassifierClient interface {
	Score(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.FloatValue, error)
	Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type classifierClient struct {
	cc grpc.ClientConnInterface
}

func NewClassifierClient(cc grpc.ClientConnInterface) ClassifierClient {
	return &classifierClient{cc}
}

func (c *classifierClient) Score(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.FloatValue, error) {
	out := new(wrapperspb.FloatValue)
	if err := c.cc.Invoke(ctx, Classifier_Score_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *classifierClient) Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, Classifier_Health_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ClassifierServer is implemented by model servers; the Go side only uses it
// for in-process fakes.
type ClassifierServer interface {
	Score(context.Context, *wrapperspb.BytesValue) (*wrapperspb.FloatValue, error)
	Health(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

type UnimplementedClassifierServer struct{}

func (UnimplementedClassifierServer) Score(context.Context, *wrapperspb.BytesValue) (*wrapperspb.FloatValue, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Score not implemented")
}

func (UnimplementedClassifierServer) Health(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Health not implemented")
}

func RegisterClassifierServer(s grpc.ServiceRegistrar, srv ClassifierServer) {
	s.RegisterService(&Classifier_ServiceDesc, srv)
}

func _Classifier_Score_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).Score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Classifier_Score_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClassifierServer).Score(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Classifier_Health_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Classifier_Health_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClassifierServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var Classifier_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "deepfake.v1.Classifier",
	HandlerType: (*ClassifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: _Classifier_Score_Handler},
		{MethodName: "Health", Handler: _Classifier_Health_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "deepfake/v1/classifier.proto",
}
