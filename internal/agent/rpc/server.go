// Package rpc is the agent's gRPC surface: unary inventory,
// control and health RPCs plus server-streaming logs, stats and events,
// backed by the already-wired C9 inventory synchronizer, C10 stats
// projector, C11 health evaluator and C12 log service orchestrator.
package rpc

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/docktail/fleet/internal/agent/exec"
	"github.com/docktail/fleet/internal/agent/filter"
	"github.com/docktail/fleet/internal/agent/health"
	"github.com/docktail/fleet/internal/agent/inventory"
	"github.com/docktail/fleet/internal/agent/logservice"
	"github.com/docktail/fleet/internal/agent/metrics"
	"github.com/docktail/fleet/internal/agent/runtime"
	"github.com/docktail/fleet/internal/agent/stats"
	"github.com/docktail/fleet/internal/shared/apierrors"
	"github.com/docktail/fleet/internal/shared/model"
	"github.com/docktail/fleet/internal/shared/rpcproto"
)

// Server implements rpcproto.AgentServer over the agent's component graph.
type Server struct {
	rt     runtime.Runtime
	inv    *inventory.Synchronizer
	orch   *logservice.Orchestrator
	mx     *metrics.Metrics
	execer *exec.Runner
	log    *logrus.Entry
}

// New builds a Server. execer may be nil when the runtime's exec client
// couldn't be constructed (e.g. in tests); ExecCommand then fails with
// Unavailable instead of panicking.
func New(rt runtime.Runtime, inv *inventory.Synchronizer, orch *logservice.Orchestrator, mx *metrics.Metrics, execer *exec.Runner, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{rt: rt, inv: inv, orch: orch, mx: mx, execer: execer, log: log}
}

var _ rpcproto.AgentServer = (*Server)(nil)

func (s *Server) ListContainers(ctx context.Context, req *rpcproto.ListContainersRequest) (*rpcproto.ListContainersResponse, error) {
	return &rpcproto.ListContainersResponse{Containers: s.inv.List()}, nil
}

func (s *Server) InspectContainer(ctx context.Context, req *rpcproto.InspectContainerRequest) (*rpcproto.InspectContainerResponse, error) {
	info, ok := s.inv.Get(req.ID)
	if ok {
		return &rpcproto.InspectContainerResponse{Container: info}, nil
	}
	info, err := s.rt.InspectContainer(ctx, req.ID)
	if err != nil {
		return nil, apierrors.ToStatus(apierrors.Wrap(apierrors.KindContainerNotFound, "inspect container", err))
	}
	return &rpcproto.InspectContainerResponse{Container: info}, nil
}

func (s *Server) Control(ctx context.Context, req *rpcproto.ControlRequest) (*rpcproto.ControlResponse, error) {
	var err error
	switch req.Op {
	case rpcproto.ControlStart:
		err = s.rt.Start(ctx, req.ContainerID)
	case rpcproto.ControlStop:
		err = s.rt.Stop(ctx, req.ContainerID)
	case rpcproto.ControlRestart:
		err = s.rt.Restart(ctx, req.ContainerID)
	case rpcproto.ControlPause:
		err = s.rt.Pause(ctx, req.ContainerID)
	case rpcproto.ControlUnpause:
		err = s.rt.Unpause(ctx, req.ContainerID)
	case rpcproto.ControlRemove:
		err = s.rt.Remove(ctx, req.ContainerID)
	default:
		return nil, apierrors.ToStatus(apierrors.New(apierrors.KindInvalidArgument, "unknown control op"))
	}
	if err != nil {
		return nil, apierrors.ToStatus(err)
	}
	return &rpcproto.ControlResponse{OK: true}, nil
}

// ExecCommand runs req.Cmd inside req.ContainerID, killing it with SIGKILL
// if TimeoutMS trips (spec §5/§7's exec contract).
func (s *Server) ExecCommand(ctx context.Context, req *rpcproto.ExecCommandRequest) (*rpcproto.ExecCommandResponse, error) {
	if s.execer == nil {
		return nil, apierrors.ToStatus(apierrors.New(apierrors.KindConnectionFailed, "exec not available on this agent"))
	}
	if req.ContainerID == "" || len(req.Cmd) == 0 {
		return nil, apierrors.ToStatus(apierrors.New(apierrors.KindInvalidArgument, "container_id and cmd are required"))
	}
	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	res, err := s.execer.Run(ctx, req.ContainerID, req.Cmd, timeout)
	if err != nil {
		return nil, apierrors.ToStatus(err)
	}
	return &rpcproto.ExecCommandResponse{ExitCode: res.ExitCode, TimedOut: res.TimedOut}, nil
}

// ListNodes backs discovery (C14). A single-agent deployment has no further
// nodes to report; multi-node runtimes (Swarm) are out of scope for the
// agent side per spec §6's non-goals, so this returns an empty node list.
func (s *Server) ListNodes(ctx context.Context, req *rpcproto.ListNodesRequest) (*rpcproto.ListNodesResponse, error) {
	return &rpcproto.ListNodesResponse{}, nil
}

func (s *Server) StreamLogs(req *rpcproto.StreamLogsRequest, stream rpcproto.AgentStreamLogsServer) error {
	mode := filter.ModeInclude
	if req.ExcludeMode {
		mode = filter.ModeExclude
	}
	sreq := logservice.StreamLogsRequest{
		ContainerID: req.ContainerID,
		Follow:      req.Follow,
		Pattern:     req.Pattern,
		FilterMode:  mode,
		SinceSecs:   req.SinceSecs,
		UntilSecs:   req.UntilSecs,
		Tail:        req.Tail,
	}
	err := s.orch.StreamLogs(stream.Context(), sreq, func(e model.GroupedLogEntry) error {
		return stream.Send(&rpcproto.LogEntryFrame{Entry: e})
	})
	return apierrors.ToStatus(err)
}

func (s *Server) StreamStats(req *rpcproto.StatsRequest, stream rpcproto.AgentStreamStatsServer) error {
	if !req.Stream {
		raw, err := s.rt.ContainerStatsOneShot(stream.Context(), req.ContainerID)
		if err != nil {
			return apierrors.ToStatus(apierrors.Wrap(apierrors.KindConnectionFailed, "stats one-shot", err))
		}
		projected, err := stats.Project(req.ContainerID, raw)
		if err != nil {
			return apierrors.ToStatus(apierrors.Wrap(apierrors.KindParseFailed, "project stats", err))
		}
		return stream.Send(&rpcproto.StatsFrame{Stats: projected})
	}

	rc, err := s.rt.ContainerStatsStream(stream.Context(), req.ContainerID)
	if err != nil {
		return apierrors.ToStatus(apierrors.Wrap(apierrors.KindConnectionFailed, "stats stream", err))
	}
	defer rc.Close()

	go func() {
		<-stream.Context().Done()
		rc.Close()
	}()

	dec := newLineDecoder(rc)
	for {
		line, err := dec.next()
		if err != nil {
			if err == io.EOF || stream.Context().Err() != nil {
				return nil
			}
			return apierrors.ToStatus(apierrors.Wrap(apierrors.KindConnectionFailed, "stats stream read", err))
		}
		projected, perr := stats.Project(req.ContainerID, line)
		if perr != nil {
			s.mx.RecordError(metrics.ErrorGeneric)
			continue
		}
		if err := stream.Send(&rpcproto.StatsFrame{Stats: projected}); err != nil {
			return err
		}
	}
}

// lineDecoder reads newline-delimited JSON frames off the runtime's
// streaming stats endpoint, which emits one JSON object per line.
type lineDecoder struct {
	br *bufio.Reader
}

func newLineDecoder(r io.Reader) *lineDecoder {
	return &lineDecoder{br: bufio.NewReader(r)}
}

func (d *lineDecoder) next() ([]byte, error) {
	line, err := d.br.ReadBytes('\n')
	if len(line) > 0 {
		return line, nil
	}
	return nil, err
}

func (s *Server) StreamEvents(req *rpcproto.StreamEventsRequest, stream rpcproto.AgentStreamEventsServer) error {
	<-stream.Context().Done()
	return stream.Context().Err()
}

// healthServer adapts C11's evaluator to grpc_health_v1, the real shipped
// health-check proto, so the cluster's agent pool gets a health RPC without
// this package inventing its own.
type healthServer struct {
	mx *metrics.Metrics
	grpc_health_v1.UnimplementedHealthServer
}

func NewHealthServer(mx *metrics.Metrics) grpc_health_v1.HealthServer {
	return &healthServer{mx: mx}
}

func (h *healthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	eval := health.Evaluate(h.mx.Snapshot())
	resp := &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}
	if eval.Status == health.StatusUnhealthy {
		resp.Status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return resp, nil
}

func (h *healthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	<-stream.Context().Done()
	return stream.Context().Err()
}
