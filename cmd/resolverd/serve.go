package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/talvera/resolverd/internal/auditlog"
	"github.com/talvera/resolverd/internal/certsource"
	"github.com/talvera/resolverd/internal/clusterlock"
	"github.com/talvera/resolverd/internal/config"
	"github.com/talvera/resolverd/internal/ipc"
	"github.com/talvera/resolverd/internal/metrics"
	"github.com/talvera/resolverd/internal/printq"
	"github.com/talvera/resolverd/internal/ratelimit"
	"github.com/talvera/resolverd/internal/rc"
	"github.com/talvera/resolverd/internal/rc/dispatch"
	"github.com/talvera/resolverd/internal/rc/handlers"
	"github.com/talvera/resolverd/internal/resolver"
	"github.com/talvera/resolverd/pkg/logger"
)

// workerTubeBuffer sizes each worker's frame/ack channel: deep enough
// to hold a burst of bulk-command fanout without the primary blocking
// on a slow worker's Recv loop.
const workerTubeBuffer = 16

// orphanSweepInterval is how often the orphaned-printq list is swept
// for drained or closed entries, per spec.md §4.7.
const orphanSweepInterval = 5 * time.Second

var cfgPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resolver daemon and its control channel",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to the resolver config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("resolverd: load config: %w", err)
	}

	log, levelVar := logger.NewLeveled(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	log.Info("resolverd starting", "version", version, "config_file", cfgPath)

	collab := buildCollaborators(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configSource := config.ConfigSourceDefaults
	if cfgPath != "" {
		configSource = config.ConfigSourceFile
	}
	configService := config.NewConfigService(cfg, cfgPath, time.Now(), configSource)

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics, registry, log)
	}

	auditLog, err := auditlog.Open(ctx, cfg.AuditLog, log)
	if err != nil {
		return fmt.Errorf("resolverd: open audit log: %w", err)
	}
	defer auditLog.Close()

	rateLimiters := ratelimit.NewRegistry(ratelimit.Config{
		QPS:     cfg.RateLimit.QPS,
		Burst:   cfg.RateLimit.Burst,
		IPQPS:   cfg.RateLimit.IPQPS,
		IPBurst: cfg.RateLimit.IPBurst,
	})

	table := handlers.Build()

	numWorkers := cfg.Server.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	tubes := make([]*ipc.WorkerTube, 0, numWorkers-1)
	for i := 0; i < numWorkers-1; i++ {
		tubes = append(tubes, ipc.NewWorkerTube(workerTubeBuffer))
	}

	var launcher dispatch.FastReloadLauncher = dispatch.NewThreadLauncher(cfgPath, collab, tubes, cfg, log)
	if cfg.ClusterLock.Enabled {
		lockMgr := clusterlock.NewManager(redis.NewClient(&redis.Options{
			Addr:     cfg.ClusterLock.RedisAddr,
			Password: cfg.ClusterLock.RedisPassword,
			DB:       cfg.ClusterLock.RedisDB,
		}), clusterlock.Config{
			TTL:            cfg.ClusterLock.TTL,
			AcquireTimeout: cfg.ClusterLock.AcquireTimeout,
			RetryInterval:  cfg.ClusterLock.RetryInterval,
		}, log)
		launcher = newClusterLockLauncher(launcher, lockMgr, log)
		log.Info("cluster lock manager ready", "addr", cfg.ClusterLock.RedisAddr)
	}

	lifecycle := newDaemonLifecycle(log, collab, cfgPath, cancel)

	sighup := newSighupHandler(lifecycle, log)
	sighup.Start()
	defer sighup.Stop()

	orphans := printq.NewOrphanList()
	defer orphans.CloseAll()
	go sweepOrphans(ctx, orphans, log)

	shared := &dispatch.Shared{
		Collab:        collab,
		Tubes:         tubes,
		ConfigService: configService,
		RateLimiters:  rateLimiters,
		Metrics:       recorder,
		AuditLog:      auditLog,
		Launcher:      launcher,
		Lifecycle:     lifecycle,
		Orphans:       orphans,
		Logger:        log,
		LevelVar:      levelVar,
		StartedAt:     time.Now(),
	}

	for i, tube := range tubes {
		worker := dispatch.NewWorker(i+1, tube, table, shared)
		go worker.Run(ctx)
	}

	dispatcher := dispatch.NewDispatcher(table, shared)

	rcCfg, err := controlConfig(cfg)
	if err != nil {
		return fmt.Errorf("resolverd: control channel config: %w", err)
	}

	server := rc.NewServer(rcCfg, dispatcher, log)

	log.Info("control channel ready", "addrs", rcCfg.Addrs, "tls", rcCfg.TLSConfig != nil)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("resolverd: control server: %w", err)
	}

	log.Info("resolverd stopped")
	return nil
}

// buildCollaborators builds a fresh Collaborators set sized per cfg
// and seeds it from cfg's static zone clauses.
func buildCollaborators(cfg *config.Config) *resolver.Collaborators {
	collab := resolver.NewCollaborators(resolver.Config{
		RRsetCapacity:   cfg.Cache.RRsetCapacity,
		MessageCapacity: cfg.Cache.MessageCapacity,
		InfraCapacity:   cfg.Cache.InfraCapacity,
		KeyCapacity:     cfg.Cache.KeyCapacity,
		RPZZones:        cfg.RPZ,
	})
	reseedCollaborators(collab, cfg)
	return collab
}

// reseedCollaborators (re)applies cfg's static zone clauses onto an
// existing Collaborators set's trees, the same per-zone Put the
// control channel's own forward/stub/local_zone commands use — both
// startup and the plain "reload" command go through this.
func reseedCollaborators(collab *resolver.Collaborators, cfg *config.Config) {
	for _, fz := range cfg.Forwards {
		collab.Forwards.Put(fz.Zone, resolver.ForwardZone{Zone: fz.Zone, Insecure: fz.Insecure, TLS: fz.TLS, Servers: fz.Servers})
	}
	for _, sz := range cfg.Stubs {
		collab.Stubs.Put(sz.Zone, resolver.StubZone{Zone: sz.Zone, Insecure: sz.Insecure, TLS: sz.TLS, Prime: sz.Prime, Servers: sz.Servers})
	}
	for _, lz := range cfg.Locals {
		collab.Locals.Put(lz.Name, resolver.LocalZone{Name: lz.Name, Type: lz.Type, Data: lz.Data})
	}
	for _, vc := range cfg.Views {
		zones := make(map[string]resolver.LocalZone, len(vc.LocalZones))
		for _, lz := range vc.LocalZones {
			zones[lz.Name] = resolver.LocalZone{Name: lz.Name, Type: lz.Type, Data: lz.Data}
		}
		collab.Views.Put(vc.Name, resolver.ViewConfig{Name: vc.Name, LocalZones: zones})
	}
	for _, ta := range cfg.Anchors {
		collab.Anchors.Add(ta.Zone, ta.Anchor)
	}
}

// controlConfig builds the rc.Server config from the loaded config,
// resolving TLS material from the filesystem or a Kubernetes Secret
// per spec.md §6.
func controlConfig(cfg *config.Config) (rc.Config, error) {
	addrs := []string{fmt.Sprintf("%s:%d", cfg.Control.Interface, cfg.Control.Port)}
	if cfg.Control.SocketPath != "" {
		addrs = append(addrs, cfg.Control.SocketPath)
	}

	rcCfg := rc.Config{
		Addrs:            addrs,
		TCPTimeout:       cfg.Control.IdleTimeout,
		HandshakeTimeout: cfg.Control.HandshakeTimeout,
	}
	if !cfg.Control.UseTLS {
		return rcCfg, nil
	}

	var src certsource.Source
	if cfg.Control.K8sSecretName != "" {
		k8sSrc, err := certsource.NewK8sSecretSource(cfg.Control.K8sNamespace, cfg.Control.K8sSecretName, nil)
		if err != nil {
			return rc.Config{}, err
		}
		src = k8sSrc
	} else {
		src = certsource.NewFileSource(cfg.Control.CertFile, cfg.Control.KeyFile, cfg.Control.CAFile)
	}

	tlsCfg, err := certsource.ServerTLSConfig(src)
	if err != nil {
		return rc.Config{}, err
	}
	rcCfg.TLSConfig = tlsCfg
	return rcCfg, nil
}

// sweepOrphans periodically drains and prunes the fast-reload orphan
// list until ctx is done, the event-loop-driven cleanup spec.md §4.7
// describes for printqs left behind by a disconnected session.
func sweepOrphans(ctx context.Context, orphans *printq.OrphanList, log *slog.Logger) {
	ticker := time.NewTicker(orphanSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := orphans.Sweep(); n > 0 {
				log.Debug("swept orphaned printqs", "removed", n, "remaining", orphans.Len())
			}
		}
	}
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, reg *prometheus.Registry, log *slog.Logger) {
	router := mux.NewRouter()
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	router.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: cfg.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listener bound", "addr", cfg.Addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn("metrics server stopped", "error", err)
	}
}
