package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/docktail/fleet/internal/cluster/config"
	"github.com/docktail/fleet/internal/cluster/discovery"
	"github.com/docktail/fleet/internal/cluster/graphql"
	"github.com/docktail/fleet/internal/cluster/pool"
	"github.com/docktail/fleet/internal/cluster/subscription"
)

func main() {
	configPath := flag.String("config", "/etc/docktail/cluster.yaml", "path to the cluster's YAML config file")
	flag.Parse()

	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pool.New(cfg.Agents.ReconnectBackoff, cfg.Agents.MaxReconnectAttempts, log)
	for _, a := range cfg.Agents.StaticAgents {
		agentCfg := pool.AgentConfig{
			ID:          a.ID,
			Address:     a.Address,
			TLSCertPath: a.TLSCertPath,
			TLSKeyPath:  a.TLSKeyPath,
			TLSCAPath:   a.TLSCAPath,
			ServerName:  a.ServerName,
		}
		if err := p.Add(ctx, agentCfg, pool.SourceStatic); err != nil {
			log.WithError(err).WithField("agent", a.ID).Error("add static agent")
		}
	}

	go runHealthChecks(ctx, p, cfg.Agents.HealthCheckInterval, log)

	if cfg.Discovery.Enabled {
		disc := discovery.New(p, discovery.Config{
			Enabled:             cfg.Discovery.Enabled,
			LabelKey:            cfg.Discovery.LabelKey,
			LabelValue:          cfg.Discovery.LabelValue,
			Interval:            cfg.Discovery.Interval(),
			AgentPort:           strconv.Itoa(cfg.Discovery.AgentPort),
			RegistrationEnabled: cfg.Discovery.RegistrationEnabled,
			TLSCertPath:         cfg.Discovery.TLSCertPath,
			TLSKeyPath:          cfg.Discovery.TLSKeyPath,
			TLSCAPath:           cfg.Discovery.TLSCAPath,
		}, log)
		go disc.Run(ctx)
	}

	resolver := &graphql.Resolver{Pool: p}
	sv := subscription.NewSupervisor()

	r := gin.New()
	r.Use(gin.Recovery())
	graphql.RegisterRoutes(r, resolver, cfg.Server.CORSOrigins, cfg.Server.MaxRequestBodyBytes)
	graphql.RegisterSubscriptionRoute(r, resolver, sv)

	srv := &http.Server{Addr: cfg.Server.BindAddress, Handler: r}
	go func() {
		log.WithField("address", cfg.Server.BindAddress).Info("cluster GraphQL server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	srv.Shutdown(context.Background())
}

// runHealthChecks periodically runs Pool.HealthCheckAll on a ticker and logs
// any agent that comes back unhealthy.
func runHealthChecks(ctx context.Context, p *pool.Pool, interval time.Duration, log *logrus.Entry) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			unhealthy := p.HealthCheckAll(ctx)
			for _, id := range unhealthy {
				log.WithField("agent", id).Warn("agent unhealthy")
			}
		}
	}
}
