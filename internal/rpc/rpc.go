// Package rpc defines the givecal.v1.PledgeService gRPC contract. Messages
// are google.protobuf.Struct values carrying the pledge record JSON shape, so
// the service needs no generated code.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/givecal/internal/model"
)

const ServiceName = "givecal.v1.PledgeService"

// Full method names.
const (
	MethodPut   = "/" + ServiceName + "/Put"
	MethodList  = "/" + ServiceName + "/List"
	MethodWatch = "/" + ServiceName + "/Watch"
)

// Message field names.
const (
	FieldID      = "id"
	FieldPledge  = "pledge"
	FieldPledges = "pledges"
)

// PledgeServiceServer is the server API for PledgeService.
type PledgeServiceServer interface {
	// Put upserts {"id", "pledge"} and returns {"pledge"} as stored.
	Put(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// List returns {"pledges": [...]}.
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Watch streams {"pledge"} for every stored record, then for each new one.
	Watch(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterPledgeServiceServer registers srv on s.
func RegisterPledgeServiceServer(s grpc.ServiceRegistrar, srv PledgeServiceServer) {
	s.RegisterService(&PledgeServiceDesc, srv)
}

func putHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PledgeServiceServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodPut}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PledgeServiceServer).Put(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PledgeServiceServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodList}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PledgeServiceServer).List(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PledgeServiceServer).Watch(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// PledgeServiceDesc is the grpc.ServiceDesc for PledgeService.
var PledgeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PledgeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: putHandler},
		{MethodName: "List", Handler: listHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "givecal/v1/pledges.proto",
}

// PledgeServiceClient is the client API for PledgeService.
type PledgeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPledgeServiceClient returns a client bound to cc.
func NewPledgeServiceClient(cc grpc.ClientConnInterface) *PledgeServiceClient {
	return &PledgeServiceClient{cc: cc}
}

func (c *PledgeServiceClient) Put(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodPut, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PledgeServiceClient) List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodList, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PledgeServiceClient) Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &PledgeServiceDesc.Streams[0], MethodWatch, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// RecordToStruct converts rec to its Struct form (the record JSON shape).
func RecordToStruct(rec *model.PledgeRecord) (*structpb.Struct, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// StructToRecord converts a Struct in the record JSON shape to a record.
func StructToRecord(s *structpb.Struct) (*model.PledgeRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("missing pledge")
	}
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return nil, err
	}
	var rec model.PledgeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding pledge: %w", err)
	}
	return &rec, nil
}

// PutRequest builds the Put request message.
func PutRequest(id string, rec *model.PledgeRecord) (*structpb.Struct, error) {
	p, err := RecordToStruct(rec)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID:     structpb.NewStringValue(id),
		FieldPledge: structpb.NewStructValue(p),
	}}, nil
}

// PledgeMessage wraps rec as {"pledge": rec}, the Put response and Watch
// item shape.
func PledgeMessage(rec *model.PledgeRecord) (*structpb.Struct, error) {
	p, err := RecordToStruct(rec)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldPledge: structpb.NewStructValue(p),
	}}, nil
}

// ListMessage wraps recs as {"pledges": [...]}.
func ListMessage(recs []*model.PledgeRecord) (*structpb.Struct, error) {
	values := make([]*structpb.Value, 0, len(recs))
	for _, rec := range recs {
		p, err := RecordToStruct(rec)
		if err != nil {
			return nil, err
		}
		values = append(values, structpb.NewStructValue(p))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldPledges: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}, nil
}

// PledgeField extracts the "pledge" field of msg.
func PledgeField(msg *structpb.Struct) (*model.PledgeRecord, error) {
	return StructToRecord(msg.GetFields()[FieldPledge].GetStructValue())
}

// PledgesField extracts the "pledges" list of msg.
func PledgesField(msg *structpb.Struct) ([]*model.PledgeRecord, error) {
	list := msg.GetFields()[FieldPledges].GetListValue()
	out := make([]*model.PledgeRecord, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		rec, err := StructToRecord(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// IDField returns the "id" field of msg.
func IDField(msg *structpb.Struct) string {
	return msg.GetFields()[FieldID].GetStringValue()
}
