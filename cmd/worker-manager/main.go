// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclient "business-ranking-workers/internal/common/aws"
	"business-ranking-workers/internal/common/camunda"
	"business-ranking-workers/internal/common/config"
	"business-ranking-workers/internal/common/database"
	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/common/logger"
	"business-ranking-workers/internal/common/observability"
	"business-ranking-workers/internal/common/validation"
	"business-ranking-workers/internal/confidence"
	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/ranking"
	"business-ranking-workers/internal/repository"
	"business-ranking-workers/pkg/registry"

	rc "business-ranking-workers/internal/workers/analytics/recompute-confidence"
	dc "business-ranking-workers/internal/workers/claims/decide-claim"
	nco "business-ranking-workers/internal/workers/claims/notify-claim-outcome"
	vc "business-ranking-workers/internal/workers/claims/verify-claim"
	cr "business-ranking-workers/internal/workers/rankings/compute-ranking"
	gr "business-ranking-workers/internal/workers/rankings/get-ranking"
	ir "business-ranking-workers/internal/workers/reviews/import-reviews"
	ib "business-ranking-workers/internal/workers/search/index-business"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(ctx, cfg.Camunda, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional) ---
	var businessIndex *repository.BusinessIndex
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(); err != nil {
				return err
			}
			return esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.BusinessIndex, database.BusinessIndexMapping)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		businessIndex = repository.NewBusinessIndex(esClient.Client, cfg.Database.Elasticsearch.BusinessIndex)
		zapLog.Info("Elasticsearch connected successfully",
			zap.String("index", cfg.Database.Elasticsearch.BusinessIndex))
	} else {
		zapLog.Warn("Elasticsearch not configured, search indexing disabled")
	}

	// --- AWS (optional) ---
	var sesService nco.SESService
	if cfg.Notifications.Email.Enabled {
		sesClient, err := awsclient.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		sesService = sesClient
	}

	var snsService cr.SNSService
	if cfg.Notifications.Events.Enabled {
		snsClient, err := awsclient.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		snsService = snsClient
	}

	// --- Registry & validation ---
	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("schema compilation failed", zap.Error(err))
	}

	opts := camunda.WorkerOptions{
		Validator:     validator,
		Errors:        apperrors.NewErrorHandler(log),
		Observability: obs,
		Logger:        log,
	}

	matchingCfg := matchingConfig(cfg.Scoring.Matching)
	cacheTTL := time.Duration(cfg.Scoring.Ranking.CacheTTLHours) * time.Hour
	cacheRetention := time.Duration(cfg.Scoring.Ranking.RetentionHours) * time.Hour

	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler) {
		w := camunda.NewWorker(zeebe.Zeebe(), taskType, config.GetWorkerConfig(cfg, taskType), handler, opts)
		if w != nil {
			workers = append(workers, w)
		}
	}

	start(vc.TaskType, vc.NewHandler(&vc.Config{
		Timeout:  timeout(vc.TaskType),
		Matching: matchingCfg,
	}, pg.DB, log))

	start(dc.TaskType, dc.NewHandler(&dc.Config{
		Timeout: timeout(dc.TaskType),
	}, pg.DB, log))

	start(nco.TaskType, nco.NewHandler(&nco.Config{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		FromEmail:    cfg.Notifications.Email.FromEmail,
		Timeout:      timeout(nco.TaskType),
	}, pg.DB, sesService, log))

	importCfg := ir.LoadConfig()
	importCfg.Timeout = timeout(ir.TaskType)
	importCfg.Matching = matchingCfg
	if t := cfg.Scoring.Matching.DuplicateTextThreshold; t > 0 {
		importCfg.ContentThreshold = t
	}
	start(ir.TaskType, ir.NewHandler(importCfg, pg.DB, businessIndex, log))

	start(rc.TaskType, rc.NewHandler(&rc.Config{
		Timeout:    timeout(rc.TaskType),
		Confidence: confidenceConfig(cfg.Scoring.Confidence),
	}, pg.DB, log))

	start(cr.TaskType, cr.NewHandler(&cr.Config{
		Timeout:        timeout(cr.TaskType),
		Ranking:        rankingConfig(cfg.Scoring.Ranking),
		CacheTTL:       cacheTTL,
		CacheRetention: cacheRetention,
		EventsEnabled:  cfg.Notifications.Events.Enabled,
		TopicARN:       cfg.Notifications.Events.TopicARN,
	}, pg.DB, rdb.Client, businessIndex, snsService, log))

	start(gr.TaskType, gr.NewHandler(&gr.Config{
		Timeout:        timeout(gr.TaskType),
		CacheTTL:       cacheTTL,
		CacheRetention: cacheRetention,
	}, rdb.Client, log))

	if businessIndex != nil {
		start(ib.TaskType, ib.NewHandler(&ib.Config{
			Timeout: timeout(ib.TaskType),
		}, pg.DB, businessIndex, log))
	}

	zapLog.Info("All workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := zeebe.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Close()
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}

func matchingConfig(c config.MatchingConfig) matching.Config {
	m := matching.DefaultConfig()
	if c.NameWeight > 0 || c.AddressWeight > 0 || c.PhoneWeight > 0 {
		m.NameWeight, m.AddressWeight, m.PhoneWeight = c.NameWeight, c.AddressWeight, c.PhoneWeight
	}
	if c.AutoVerifyThreshold > 0 {
		m.AutoVerifyThreshold = c.AutoVerifyThreshold
	}
	if c.ManualReviewThreshold > 0 {
		m.ManualReviewThreshold = c.ManualReviewThreshold
	}
	if c.FuzzyNameThreshold > 0 {
		m.FuzzyNameThreshold = c.FuzzyNameThreshold
	}
	return m
}

func confidenceConfig(c config.ConfidenceConfig) confidence.Config {
	if c.ReviewCountWeight+c.VerificationWeight+c.PerformanceMentionsWeight+c.SentimentConsistencyWeight+c.RecencyWeight == 0 {
		return confidence.DefaultConfig()
	}
	return confidence.Config{
		ReviewCountWeight:          c.ReviewCountWeight,
		VerificationWeight:         c.VerificationWeight,
		PerformanceMentionsWeight:  c.PerformanceMentionsWeight,
		SentimentConsistencyWeight: c.SentimentConsistencyWeight,
		RecencyWeight:              c.RecencyWeight,
	}
}

func rankingConfig(c config.RankingConfig) ranking.Config {
	r := ranking.DefaultConfig()
	if c.Parallelism > 0 {
		r.Parallelism = c.Parallelism
	}
	for category, w := range c.CategoryWeights {
		r.CategoryWeights[category] = ranking.Weights{
			Speed:       w.Speed,
			Value:       w.Value,
			Quality:     w.Quality,
			Reliability: w.Reliability,
		}
	}
	for tier, bonus := range c.TierBonus {
		if t := models.PlanTier(tier); t.Valid() {
			r.TierBonus[t] = bonus
		}
	}
	return r
}
