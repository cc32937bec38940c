package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/docktail/fleet/internal/agent/config"
	"github.com/docktail/fleet/internal/agent/exec"
	"github.com/docktail/fleet/internal/agent/grouper"
	"github.com/docktail/fleet/internal/agent/inventory"
	"github.com/docktail/fleet/internal/agent/logservice"
	"github.com/docktail/fleet/internal/agent/metrics"
	"github.com/docktail/fleet/internal/agent/parser"
	"github.com/docktail/fleet/internal/agent/rpc"
	"github.com/docktail/fleet/internal/agent/runtime"
	"github.com/docktail/fleet/internal/shared/rpcproto"
)

func main() {
	configPath := flag.String("config", "/etc/docktail/agent.yaml", "path to the agent's YAML config file")
	flag.Parse()

	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	rt, err := runtime.NewDockerRuntime()
	if err != nil {
		log.WithError(err).Fatal("connect to container runtime")
	}
	defer rt.Close()

	mx := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv := inventory.New(rt, time.Duration(cfg.InventorySyncIntervalSec)*time.Second, 5*time.Second, log, mx)
	go inv.Run(ctx)

	cache := parser.NewCache()
	multilineFor := func(containerName string, labels map[string]string) grouper.Config {
		r := cfg.Resolve(containerName, labels)
		return grouper.Config{
			Enabled:            r.Enabled,
			TimeoutMs:          r.TimeoutMs,
			MaxLines:           r.MaxLines,
			RequireErrorAnchor: r.RequireErrorAnchor,
		}
	}
	orch := logservice.New(rt, cache, mx, log, multilineFor)

	execer := exec.New(exec.NewDockerClient(rt.Client()), log)

	server := rpc.New(rt, inv, orch, mx, execer, log)

	creds, err := buildServerCredentials(cfg)
	if err != nil {
		log.WithError(err).Fatal("build server TLS credentials")
	}

	grpcOpts := []grpc.ServerOption{grpc.Creds(creds)}
	if cfg.MaxConcurrentStreams > 0 {
		grpcOpts = append(grpcOpts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}
	grpcServer := grpc.NewServer(grpcOpts...)
	grpcServer.RegisterService(&rpcproto.AgentServiceDesc, server)
	grpc_health_v1.RegisterHealthServer(grpcServer, rpc.NewHealthServer(mx))

	lis, err := net.Listen("tcp", cfg.BindAddress)
	if err != nil {
		log.WithError(err).Fatal("listen")
	}

	go func() {
		log.WithField("address", cfg.BindAddress).Info("agent RPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Error("grpc server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	grpcServer.GracefulStop()
}

func buildServerCredentials(cfg *config.Config) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load server cert/key: %w", err)
	}

	caBytes, err := os.ReadFile(cfg.TLSCAPath)
	if err != nil {
		return nil, fmt.Errorf("read ca cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("no certificates found in %s", cfg.TLSCAPath)
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}), nil
}
