package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/owenshapw/poemVerse/internal/article"
	"github.com/owenshapw/poemVerse/internal/config"
	"github.com/owenshapw/poemVerse/internal/cover"
	"github.com/owenshapw/poemVerse/internal/database"
	"github.com/owenshapw/poemVerse/internal/feed"
	"github.com/owenshapw/poemVerse/internal/generation"
	"github.com/owenshapw/poemVerse/internal/imageurl"
	"github.com/owenshapw/poemVerse/internal/like"
	"github.com/owenshapw/poemVerse/internal/lock"
	"github.com/owenshapw/poemVerse/internal/logs"
	"github.com/owenshapw/poemVerse/internal/metrics"
	"github.com/owenshapw/poemVerse/internal/middleware"
	"github.com/owenshapw/poemVerse/internal/server"
	"github.com/owenshapw/poemVerse/internal/storage"
	"github.com/owenshapw/poemVerse/internal/store/memstore"
	"github.com/owenshapw/poemVerse/internal/user"
)

type stores struct {
	articles article.Repository
	likes    like.Repository
	users    user.Repository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logs.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	logs.SetLogger(log)

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}

	var locker lock.Locker = lock.NewMemory()
	if cfg.Redis.Addr != "" {
		client, err := lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("connect redis", zap.Error(err))
		}
		defer client.Close()
		locker = lock.NewRedis(client, log)
	}

	normalizer := imageurl.NewNormalizer(cfg.Images.CanonicalBaseURL, cfg.Images.CanonicalVariant)

	bucket, err := storage.NewBucket(ctx, cfg.S3)
	if err != nil {
		log.Fatal("configure s3 bucket", zap.Error(err))
	}
	chain := storage.NewChain(log, m,
		storage.NewCloudflareImages(cfg.Cloudflare, normalizer),
		bucket,
		storage.NewSupabaseStorage(cfg.Supabase),
	)
	for _, s := range chain.Status() {
		log.Info("storage provider", zap.String("name", s.Name), zap.Bool("available", s.Available))
	}

	poster := generation.NewPoster(cfg.Images.FontPaths, log)
	log.Info("poster font", zap.String("font", poster.FontName()))
	orchestrator := generation.NewOrchestrator(poster, log, m,
		generation.NewStability(cfg.Stability),
		generation.NewHuggingFace(cfg.HuggingFace),
	)
	covers := cover.NewPipeline(orchestrator, chain, normalizer, log)

	articles := article.NewService(st.articles, st.users, covers, chain, normalizer, log)
	likes := like.NewService(st.likes, locker, log, m)

	r := server.NewRouter(server.Deps{
		Verifier: middleware.NewTokenVerifier(cfg.JWTSecret),
		Preview:  middleware.NewRateLimiter(cfg.Preview.RatePerMinute, cfg.Preview.Burst),
		Registry: reg,
		Articles: article.NewHandler(articles),
		Feed:     feed.NewHandler(feed.NewAssembler(st.articles, normalizer)),
		Likes:    like.NewHandler(likes),
		Storage:  storage.NewHandler(chain, normalizer, cfg.Images.MaxUploadBytes),
		Users:    user.NewHandler(st.users),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	// Cover generation can take a minute; let in-flight creates finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func openStores(cfg *config.Config, log *zap.Logger) (stores, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		mem := memstore.New()
		return stores{articles: mem.Articles(), likes: mem.Likes(), users: mem.Users()}, nil
	}

	db, err := database.Connect(cfg.Supabase.DBURL, log)
	if err != nil {
		return stores{}, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return stores{}, err
		}
		log.Info("database migrated")
	}
	return stores{
		articles: article.NewGormRepository(db),
		likes:    like.NewGormRepository(db),
		users:    user.NewGormRepository(db),
	}, nil
}
