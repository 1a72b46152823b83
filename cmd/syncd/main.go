// Command syncd runs the device-side sync engine: it keeps the local
// activity store and the community feed cache convergent with the backend,
// and fans activity events out over Redis to other processes.
//
// Every collaborator is constructed and wired here, explicitly; nothing in
// the engine reaches for a shared singleton.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"stride/internal/config"
	"stride/internal/events"
	"stride/internal/feedcache"
	"stride/internal/localstore"
	"stride/internal/models"
	"stride/internal/observability"
	"stride/internal/remote"
	"stride/internal/syncer"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger("syncd", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blob, err := localstore.NewFileBlobStore(filepath.Join(cfg.DataDir, "activities.json"))
	if err != nil {
		log.Fatalf("Failed to prepare data dir: %v", err)
	}
	local := localstore.New(blob, logger)
	<-local.Load(ctx)

	actor := models.Identity{AccountID: cfg.ActorID, Email: cfg.ActorEmail}
	store := remote.NewClient(cfg.RemoteURL, cfg.ActorID, remote.StaticToken(cfg.AuthToken))

	bus := events.NewBus(logger)
	bridge := events.NewBridge(newRedisClient(cfg.RedisURL, logger), bus, logger)
	if err := bridge.Start(ctx); err != nil {
		logger.Warn("event bridge unavailable, running process-local only", "error", err)
	}
	defer bridge.Stop()

	feed := feedcache.New(store, logger)
	detach := feed.AttachBus(bus)
	defer detach()

	s := syncer.New(actor, local, feed, store, bus, nil, syncer.Options{
		FeedLimit: cfg.FeedLimit,
		Logger:    logger,
	})

	if err := s.RefreshFeed(ctx); err != nil {
		logger.Warn("initial feed refresh failed", "error", err)
	}

	interval := cfg.RefreshInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("syncd running", "remote", cfg.RemoteURL, "refresh_interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
			if err := s.RefreshFeed(ctx); err != nil {
				logger.Warn("feed refresh failed", "error", err)
			}
		}
	}
}

// newRedisClient connects to Redis, accepting either a bare address or a
// redis:// URL. Returns nil when Redis is unreachable; the engine then runs
// without cross-process events.
func newRedisClient(addr string, logger *observability.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			logger.Warn("invalid REDIS_URL, continuing without event bridge", "error", err)
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without event bridge", "error", err)
		return nil
	}
	return client
}
