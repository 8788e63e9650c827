package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/medifusion/platform/pkg/common/config"
	"github.com/medifusion/platform/pkg/common/database"
	"github.com/medifusion/platform/pkg/common/kafka"
	"github.com/medifusion/platform/pkg/common/logger"
	"github.com/medifusion/platform/pkg/common/models"
	"github.com/medifusion/platform/pkg/embeddings"
	"github.com/medifusion/platform/pkg/matching"
	"github.com/medifusion/platform/pkg/observability/metrics"
	"github.com/medifusion/platform/pkg/patients"
)

type MatchingApp struct {
	matcher  *matching.Service
	patients *patients.Service
	consumer *kafka.Consumer
}

func main() {
	logger.Init("matching-service")
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := patients.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate patient tables")
	}

	rules, err := matching.LoadRules(cfg.MatchingRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load matching rules")
	}

	cache := embeddings.NewCache(database.GetRedis(), cfg.EmbeddingCacheTTL)
	embedder := embeddings.NewClient(cfg, cache)

	producer := kafka.NewProducer(cfg.MatchingOutputTopic)
	defer producer.Close()

	// A typed nil producer must not reach the Publisher interface.
	var dlq matching.Publisher
	if cfg.MatchingDLQTopic != "" {
		dlqProducer := kafka.NewProducer(cfg.MatchingDLQTopic)
		defer dlqProducer.Close()
		dlq = dlqProducer
	}

	matcher := matching.NewService(repo, embedder, rules, producer, dlq)
	patientSvc := patients.NewService(repo, embedder)

	app := &MatchingApp{matcher: matcher, patients: patientSvc}
	app.consumer = kafka.NewConsumer(cfg.IngestionTopic, "matching-service")
	defer app.consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := app.consumer.Consume(ctx, app.handleEvent); err != nil && err != context.Canceled {
			logger.Log.WithError(err).Fatal("consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/fuzzy-match", app.handleFuzzyMatch).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/embeddings/backfill", app.handleBackfill).Methods(http.MethodPost)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8082"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8082",
		}).Info("Matching Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Matching Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Matching Service stopped")
}

func (a *MatchingApp) handleEvent(ctx context.Context, event models.Event) error {
	record, err := parseExtractedRecord(event.Data)
	if err != nil {
		return err
	}

	result, err := a.matcher.ProcessBatch(ctx, []models.IncomingRecord{*record})
	if err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":  event.ID,
		"matched":   result.Summary.Matched,
		"new":       result.Summary.New,
		"unmatched": result.Summary.Unmatched,
	}).Info("processed extracted record")
	return nil
}

func (a *MatchingApp) handleFuzzyMatch(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	result, err := a.matcher.ProcessBatch(r.Context(), req.Patients)
	if err != nil {
		logger.Log.WithError(err).Error("batch matching failed")
		http.Error(w, "candidate store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (a *MatchingApp) handleBackfill(w http.ResponseWriter, r *http.Request) {
	embedded, skipped, err := a.patients.BackfillEmbeddings(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("embedding backfill failed")
		http.Error(w, "backfill failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"embedded": embedded, "skipped": skipped})
}

func parseExtractedRecord(data map[string]interface{}) (*models.IncomingRecord, error) {
	payload, ok := data["record"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("record payload missing")
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var record models.IncomingRecord
	if err := json.Unmarshal(bytes, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
