package rpcproto

import (
	"context"

	"google.golang.org/grpc"
)

// AgentClient is a thin typed wrapper over a *grpc.ClientConn dialed against
// AgentServiceDesc. The cluster's agent pool (C13) holds one of these per
// connection.
type AgentClient struct {
	cc *grpc.ClientConn
}

func NewAgentClient(cc *grpc.ClientConn) *AgentClient {
	return &AgentClient{cc: cc}
}

func (c *AgentClient) ListContainers(ctx context.Context, in *ListContainersRequest, opts ...grpc.CallOption) (*ListContainersResponse, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	out := new(ListContainersResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/ListContainers", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) InspectContainer(ctx context.Context, in *InspectContainerRequest, opts ...grpc.CallOption) (*InspectContainerResponse, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	out := new(InspectContainerResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/InspectContainer", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) Control(ctx context.Context, in *ControlRequest, opts ...grpc.CallOption) (*ControlResponse, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	out := new(ControlResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/Control", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) ListNodes(ctx context.Context, in *ListNodesRequest, opts ...grpc.CallOption) (*ListNodesResponse, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	out := new(ListNodesResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/ListNodes", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) ExecCommand(ctx context.Context, in *ExecCommandRequest, opts ...grpc.CallOption) (*ExecCommandResponse, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	out := new(ExecCommandResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/ExecCommand", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type AgentStreamLogsClient interface {
	Recv() (*LogEntryFrame, error)
	grpc.ClientStream
}

type agentStreamLogsClient struct{ grpc.ClientStream }

func (s *agentStreamLogsClient) Recv() (*LogEntryFrame, error) {
	out := new(LogEntryFrame)
	if err := s.ClientStream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) StreamLogs(ctx context.Context, in *StreamLogsRequest, opts ...grpc.CallOption) (AgentStreamLogsClient, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	desc := &AgentServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, ServiceName+"/StreamLogs", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &agentStreamLogsClient{stream}, nil
}

type AgentStreamStatsClient interface {
	Recv() (*StatsFrame, error)
	grpc.ClientStream
}

type agentStreamStatsClient struct{ grpc.ClientStream }

func (s *agentStreamStatsClient) Recv() (*StatsFrame, error) {
	out := new(StatsFrame)
	if err := s.ClientStream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) StreamStats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (AgentStreamStatsClient, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	desc := &AgentServiceDesc.Streams[1]
	stream, err := c.cc.NewStream(ctx, desc, ServiceName+"/StreamStats", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &agentStreamStatsClient{stream}, nil
}

type AgentStreamEventsClient interface {
	Recv() (*EventFrame, error)
	grpc.ClientStream
}

type agentStreamEventsClient struct{ grpc.ClientStream }

func (s *agentStreamEventsClient) Recv() (*EventFrame, error) {
	out := new(EventFrame)
	if err := s.ClientStream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) StreamEvents(ctx context.Context, in *StreamEventsRequest, opts ...grpc.CallOption) (AgentStreamEventsClient, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	desc := &AgentServiceDesc.Streams[2]
	stream, err := c.cc.NewStream(ctx, desc, ServiceName+"/StreamEvents", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &agentStreamEventsClient{stream}, nil
}
