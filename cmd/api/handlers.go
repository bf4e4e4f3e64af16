package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/engine/store"
	"github.com/PulsewireAI/pulsewire-mvp/engine/task"
)

const apiVersion = "2.0.0"

// api holds the handler dependencies. baseCtx bounds the analysis runs
// started here, which outlive the requests that trigger them.
type api struct {
	baseCtx context.Context
	tasks   *task.Store
	coord   *task.Coordinator
	results *store.Store
	metrics http.Handler
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /analyze", a.handleAnalyze)
	mux.HandleFunc("GET /status/{task_id}", a.handleStatus)
	mux.HandleFunc("GET /tasks", a.handleTasks)
	mux.HandleFunc("GET /result/{task_id}", a.handleResult)
	mux.HandleFunc("DELETE /result/{task_id}", a.handleDeleteResult)
	mux.HandleFunc("GET /history", a.handleHistory)
	mux.HandleFunc("GET /analytics/summary/{task_id}", a.handleAnalyticsSummary)
	mux.HandleFunc("GET /analytics/trends", a.handleAnalyticsTrends)
	mux.Handle("GET /metrics", a.metrics)
	return mux
}

func (a *api) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Reddit Sentiment Analysis API",
		"version": apiVersion,
	})
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Normalize()
	if err := domain.ValidateRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	t := a.coord.Start(a.baseCtx, req)
	writeJSON(w, http.StatusOK, map[string]string{
		"task_id": t.ID,
		"message": "Analysis started",
	})
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	t, err := a.tasks.Get(r.PathValue("task_id"))
	if err != nil {
		jsonError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *api) handleTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": a.tasks.List()})
}

func (a *api) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	t, err := a.tasks.Get(id)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Task not found")
		return
	}
	if t.Status != domain.StatusCompleted {
		jsonError(w, http.StatusBadRequest, "Analysis not completed")
		return
	}

	res, err := a.results.GetResult(r.Context(), id)
	if errors.Is(err, domain.ErrResultNotFound) {
		jsonError(w, http.StatusNotFound, "Result not found")
		return
	}
	if err != nil {
		slog.Error("result lookup failed", "task_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load result")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	if err := a.results.Delete(r.Context(), id); err != nil {
		slog.Error("result delete failed", "task_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete result")
		return
	}
	a.tasks.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Result deleted successfully"})
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := a.results.History(r.Context(), limit)
	if err != nil {
		slog.Error("history lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (a *api) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	rep, err := a.results.GetReport(r.Context(), id)
	if errors.Is(err, domain.ErrResultNotFound) {
		jsonError(w, http.StatusNotFound, "Result not found")
		return
	}
	if err != nil {
		slog.Error("analytics lookup failed", "task_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *api) handleAnalyticsTrends(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	trends, err := a.results.SentimentTrends(r.Context(), days)
	if err != nil {
		slog.Error("trends lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load trends")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// jsonError writes a detail-keyed JSON error body.
func jsonError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
