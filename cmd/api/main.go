package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hy4k/aurelius/internal/ai"
	"github.com/hy4k/aurelius/internal/api/handlers"
	"github.com/hy4k/aurelius/internal/api/middleware"
	"github.com/hy4k/aurelius/internal/config"
	"github.com/hy4k/aurelius/internal/dataset"
	"github.com/hy4k/aurelius/internal/jobs"
	"github.com/hy4k/aurelius/internal/jobs/inmemory"
	"github.com/hy4k/aurelius/internal/logger"
)

func main() {
	cfg := config.Load()

	var (
		port = flag.String("port", cfg.Port, "HTTP server port")
	)
	flag.Parse()

	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	// Collaborators and the session dataset.
	extractor := ai.NewGeminiExtractor(cfg.GeminiModel)
	categorizer := ai.NewGeminiCategorizer(cfg.GeminiModel)
	holder := dataset.NewHolder(categorizer, log)

	// Job infrastructure for asynchronous extraction.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(8, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		extractJob, ok := job.(*jobs.ExtractStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", extractJob.JobID).
			Str("filename", extractJob.Filename).
			Msg("Processing extraction job")

		result, err := extractor.ExtractStatement(ctx, extractJob.Data, extractJob.MIMEType)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", extractJob.JobID).
				Msg("Statement extraction failed")
			return err
		}

		// The new result replaces any prior dataset wholesale.
		holder.Replace(result)
		extractJob.TransactionCount = len(result.Transactions)

		log.Info().
			Str("job_id", extractJob.JobID).
			Str("bank", result.BankName).
			Int("transactions", len(result.Transactions)).
			Msg("Statement extracted")

		return nil
	}

	go func() {
		log.Info().Msg("Starting extraction worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Extraction worker stopped with error")
		}
	}()

	// Handlers.
	statementsHandler := handlers.NewStatementsHandler(holder, jobQueue, cfg.MaxUploadBytes, log)
	ledgerHandler := handlers.NewLedgerHandler(holder, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/statements", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			statementsHandler.Upload(w, r)
		case http.MethodGet:
			statementsHandler.Get(w, r)
		case http.MethodDelete:
			statementsHandler.Delete(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ledgerHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ledgerHandler.GetStats(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ledgerHandler.ListCategories(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/anomalies", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ledgerHandler.ListAnomalies(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/recategorize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ledgerHandler.Recategorize(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// RequestID sits outside Logger so the request log line can carry the ID.
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(cfg.AllowedOrigin)(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
