package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API with a live event stream",
	Long:  "Serves scan triggers, competitor and gap queries, and a per-brand server-sent-events stream of pipeline progress.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initIntel(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api/brands/{brandID}", func(r chi.Router) {
			r.Post("/scan", handleScan(ctx, env))
			r.Get("/events", handleEvents(env))
			r.Get("/competitors", handleCompetitors(env))
			r.Get("/gaps", handleGaps(env))
		})

		r.Post("/api/competitors/{competitorID}/rescan", handleRescan(ctx, env))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// scanRequest is the body for POST /scan and /rescan: the brand context
// plus run options.
type scanRequest struct {
	model.BrandContext
	ForceRefresh bool `json:"force_refresh"`
}

func handleScan(runCtx context.Context, env *intelEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID := chi.URLParam(r, "brandID")

		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		req.BrandID = brandID
		if req.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
			return
		}

		brand := req.BrandContext

		// Run asynchronously; the caller follows progress on /events.
		go func() {
			result, err := env.Manager.RunStreamingAnalysis(runCtx, &brand, model.RunOptions{
				ForceRefresh: req.ForceRefresh,
			})
			if err != nil {
				zap.L().Error("scan run failed",
					zap.String("brand_id", brand.BrandID),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("scan run complete",
				zap.String("brand_id", brand.BrandID),
				zap.Int("gaps", len(result.Gaps)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":   "accepted",
			"brand_id": brandID,
		})
	}
}

func handleEvents(env *intelEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		brandID := chi.URLParam(r, "brandID")
		sub := env.Broker.Subscribe(brandID)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		// Heartbeat keeps intermediaries from closing an idle stream.
		heartbeat := time.NewTicker(25 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case ev, open := <-sub.C:
				if !open {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
				flusher.Flush()
			}
		}
	}
}

func handleCompetitors(env *intelEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID := chi.URLParam(r, "brandID")
		comps, err := env.Store.GetCompetitors(r.Context(), brandID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if comps == nil {
			comps = []model.CompetitorProfile{}
		}
		writeJSON(w, http.StatusOK, comps)
	}
}

func handleGaps(env *intelEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brandID := chi.URLParam(r, "brandID")
		gaps, err := env.Store.GetGaps(r.Context(), brandID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if gaps == nil {
			gaps = []model.CompetitorGap{}
		}
		writeJSON(w, http.StatusOK, gaps)
	}
}

func handleRescan(runCtx context.Context, env *intelEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		competitorID := chi.URLParam(r, "competitorID")
		force := r.URL.Query().Get("force") == "true"

		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.BrandID == "" || req.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "brand_id and name are required"})
			return
		}
		brand := req.BrandContext

		res, err := env.Manager.RescanCompetitor(runCtx, &brand, competitorID, force)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
