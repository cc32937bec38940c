package rpcproto

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the gRPC service path agents register under.
const ServiceName = "docktail.fleet.Agent"

// AgentServer is implemented by the agent's RPC handler (internal/agent/rpc)
// and invoked through the hand-registered ServiceDesc below.
type AgentServer interface {
	ListContainers(context.Context, *ListContainersRequest) (*ListContainersResponse, error)
	InspectContainer(context.Context, *InspectContainerRequest) (*InspectContainerResponse, error)
	Control(context.Context, *ControlRequest) (*ControlResponse, error)
	ListNodes(context.Context, *ListNodesRequest) (*ListNodesResponse, error)
	ExecCommand(context.Context, *ExecCommandRequest) (*ExecCommandResponse, error)

	StreamLogs(*StreamLogsRequest, AgentStreamLogsServer) error
	StreamStats(*StatsRequest, AgentStreamStatsServer) error
	StreamEvents(*StreamEventsRequest, AgentStreamEventsServer) error
}

type AgentStreamLogsServer interface {
	Send(*LogEntryFrame) error
	grpc.ServerStream
}

type AgentStreamStatsServer interface {
	Send(*StatsFrame) error
	grpc.ServerStream
}

type AgentStreamEventsServer interface {
	Send(*EventFrame) error
	grpc.ServerStream
}

type agentStreamLogsServer struct{ grpc.ServerStream }

func (s *agentStreamLogsServer) Send(f *LogEntryFrame) error { return s.ServerStream.SendMsg(f) }

type agentStreamStatsServer struct{ grpc.ServerStream }

func (s *agentStreamStatsServer) Send(f *StatsFrame) error { return s.ServerStream.SendMsg(f) }

type agentStreamEventsServer struct{ grpc.ServerStream }

func (s *agentStreamEventsServer) Send(f *EventFrame) error { return s.ServerStream.SendMsg(f) }

func listContainersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListContainersRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AgentServer).ListContainers(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/ListContainers"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AgentServer).ListContainers(ctx, req.(*ListContainersRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func inspectContainerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(InspectContainerRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AgentServer).InspectContainer(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/InspectContainer"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AgentServer).InspectContainer(ctx, req.(*InspectContainerRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func controlHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ControlRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AgentServer).Control(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Control"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AgentServer).Control(ctx, req.(*ControlRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func listNodesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListNodesRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AgentServer).ListNodes(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/ListNodes"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AgentServer).ListNodes(ctx, req.(*ListNodesRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func execCommandHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ExecCommandRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AgentServer).ExecCommand(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/ExecCommand"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AgentServer).ExecCommand(ctx, req.(*ExecCommandRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func streamLogsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(StreamLogsRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(AgentServer).StreamLogs(req, &agentStreamLogsServer{stream})
}

func streamStatsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(StatsRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(AgentServer).StreamStats(req, &agentStreamStatsServer{stream})
}

func streamEventsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(StreamEventsRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(AgentServer).StreamEvents(req, &agentStreamEventsServer{stream})
}

// AgentServiceDesc is registered on the agent's *grpc.Server in place of
// protoc-gen-go-grpc output; method dispatch is hand-wired above instead of
// generated.
var AgentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListContainers", Handler: listContainersHandler},
		{MethodName: "InspectContainer", Handler: inspectContainerHandler},
		{MethodName: "Control", Handler: controlHandler},
		{MethodName: "ListNodes", Handler: listNodesHandler},
		{MethodName: "ExecCommand", Handler: execCommandHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamLogs", Handler: streamLogsHandler, ServerStreams: true},
		{StreamName: "StreamStats", Handler: streamStatsHandler, ServerStreams: true},
		{StreamName: "StreamEvents", Handler: streamEventsHandler, ServerStreams: true},
	},
}
