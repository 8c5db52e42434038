package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkdesk/internal/codec"
	"github.com/MrSnakeDoc/linkdesk/internal/config"
	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/github"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/index"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
	"github.com/MrSnakeDoc/linkdesk/internal/redis"
	"github.com/MrSnakeDoc/linkdesk/internal/resolver"
	"github.com/MrSnakeDoc/linkdesk/internal/scheduler"
	"github.com/MrSnakeDoc/linkdesk/internal/session"
	redisstore "github.com/MrSnakeDoc/linkdesk/internal/store/redis"
	"github.com/MrSnakeDoc/linkdesk/internal/version"
)

// Editor is the repository-backed editing stack shared by the server and
// the command line.
type Editor struct {
	Client   *github.Client
	Session  *session.Session
	Strategy publish.Strategy
}

// NewEditor wires the GitHub transport, the commit coordinator and a
// session. The session is not opened.
func NewEditor(cfg *config.Config, log logger.Logger) (*Editor, error) {
	strategy, err := publish.ParseStrategy(cfg.PublishStrategy)
	if err != nil {
		return nil, err
	}

	client, err := github.New(github.Config{
		Token:         cfg.GitHubToken,
		Repository:    cfg.Repository,
		Path:          cfg.FilePath,
		DefaultBranch: cfg.DefaultBranch,
		BaseURL:       cfg.GitHubAPIURL,
		Timeout:       cfg.RequestTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	coord := publish.NewCoordinator(client, publish.Options{
		Strategy:      strategy,
		DefaultBranch: cfg.DefaultBranch,
		BranchPrefix:  cfg.BranchPrefix,
		ReviewTitle:   cfg.ReviewTitle,
	}, log)
	sess := session.New(codec.NewYAML(), coord, session.Options{CommitMessage: cfg.CommitMessage}, log)

	return &Editor{Client: client, Session: sess, Strategy: strategy}, nil
}

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	editor      *Editor
	server      *httpserver.Server
	redisClient *goredis.Client
	memIndex    *index.MemoryIndex
	watcher     *scheduler.RemoteWatcher
	gc          *scheduler.GarbageCollector
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	editor, err := NewEditor(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to configure repository access: %v", err)
		os.Exit(1)
	}

	// Redis is optional: without it resolutions are computed on every lookup
	// and usage ranking restarts from zero with the process.
	var (
		redisClient *goredis.Client
		store       *redisstore.Store
		cache       resolver.Cache
		recorder    SyncRecorder
	)
	opts := redisOptions(cfg)
	if opts.Enabled() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(context.Background(), opts, loggerClient)
		if err != nil {
			loggerClient.Warn("redis unavailable, resolver cache disabled", logger.Error(err))
		} else {
			redisClient = client
			store = redisstore.NewStore(client)
			cache = store
			recorder = store
			logLastSync(store, loggerClient)
		}
	} else {
		loggerClient.Info("redis not configured, resolver cache disabled")
	}

	memIndex := index.NewMemoryIndex()
	res := resolver.New(memIndex, cache, resolver.Options{
		Limit:    cfg.SuggestionLimit,
		Cutoff:   cfg.SuggestionCutoff,
		CacheTTL: cfg.CacheTTL,
	}, loggerClient)
	editor.Session.OnSync(syncHook(res, memIndex, recorder, loggerClient))

	refreshTrigger := make(chan struct{}, 1)
	watcher := scheduler.NewRemoteWatcher(editor.Session, loggerClient, refreshTrigger)

	var gc *scheduler.GarbageCollector
	if store != nil {
		gc = scheduler.NewGarbageCollector(store, memIndex, loggerClient, cfg.GCInterval)
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		Session:        editor.Session,
		Resolver:       res,
		MemoryIndex:    memIndex,
		RedisClient:    redisClient,
		Repository:     cfg.Repository,
		FilePath:       cfg.FilePath,
		DefaultBranch:  cfg.DefaultBranch,
		Strategy:       editor.Strategy,
		PublishBurst:   cfg.PublishBurst,
		PublishPerMin:  cfg.PublishPerMin,
		RefreshTrigger: refreshTrigger,
	}

	server := httpserver.New(cfg.ListenPort, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		editor:      editor,
		server:      server,
		redisClient: redisClient,
		memIndex:    memIndex,
		watcher:     watcher,
		gc:          gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting linkdesk v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("linkdesk %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Check write access and load the document before serving
	if err := a.editor.Session.Open(ctx, a.editor.Client); err != nil {
		return fmt.Errorf("failed to open editing session: %w", err)
	}

	a.watcher.Start(ctx)
	a.logger.Info("remote watcher started")

	if a.gc != nil {
		a.gc.Start(ctx)
		a.logger.Info("usage garbage collector started",
			logger.Duration("interval", a.cfg.GCInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.watcher.Stop()
	if a.gc != nil {
		a.gc.Stop()
	}

	if dirty, err := a.editor.Session.Dirty(); err == nil && dirty {
		a.logger.Warn("shutting down with unpublished edits")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ linkdesk stopped cleanly")
	return nil
}

func redisOptions(cfg *config.Config) redis.ConnectOptions {
	return redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}
}

// SyncRecorder is the part of the Redis store the sync hook writes to.
type SyncRecorder interface {
	SaveSync(ctx context.Context, rec redisstore.SyncRecord) error
}

// syncHook rebuilds the resolver from every loaded or published document
// and records the revision it was built from.
func syncHook(res *resolver.Resolver, idx *index.MemoryIndex, rec SyncRecorder, log logger.Logger) session.SyncHook {
	return func(ctx context.Context, revision string, doc *domain.Document) {
		res.Sync(ctx, doc)
		if rec == nil {
			return
		}
		err := rec.SaveSync(ctx, redisstore.SyncRecord{
			Revision: revision,
			Aliases:  idx.Count(),
			SyncedAt: time.Now().UTC(),
		})
		if err != nil {
			log.Warn("failed to record resolver sync", logger.Error(err))
		}
	}
}

func logLastSync(store *redisstore.Store, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec, err := store.GetSync(ctx)
	switch {
	case err != nil:
		log.Warn("failed to read last resolver sync", logger.Error(err))
	case rec == nil:
		log.Info("no previous resolver sync recorded")
	default:
		log.Info("previous resolver sync",
			logger.String("revision", rec.Revision),
			logger.Int("aliases", rec.Aliases),
			logger.String("synced_at", rec.SyncedAt.Format(time.RFC3339)))
	}
}
