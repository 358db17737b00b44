package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"smartfinance/internal/core"
	"smartfinance/internal/kv"
	"smartfinance/internal/snapshots"
)

// handleHealth performs basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "ok"
	}

	if s.lastSaved != nil {
		at, err := s.lastSaved(ctx, snapshots.KeyTransactions)
		switch {
		case err == nil:
			checks["last_saved"] = at.UTC().Format(time.RFC3339)
		case errors.Is(err, kv.ErrNotFound):
			checks["last_saved"] = "never"
		default:
			checks["last_saved"] = "unknown: " + err.Error()
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.activeClients(),
		"status":         "ok",
	}
	checks["security"] = s.metrics.snapshot()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Transactions())
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.ToNewTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.ledger.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ClearTransactions(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.ToTransactionEdit()
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.ledger.Edit(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePayTransaction marks a record paid. Projection ids materialize a
// new record, reported with 201.
func (s *Server) handlePayTransaction(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	id := r.PathValue("id")
	paid, err := s.ledger.MarkPaid(r.Context(), id, req.PaymentMethod, sanitizeInput(req.CreditCardName))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if paid.ID != id {
		status = http.StatusCreated
	}
	writeJSON(w, status, paid)
}

func (s *Server) handleUnpayTransaction(w http.ResponseWriter, r *http.Request) {
	unpaid, err := s.ledger.MarkUnpaid(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, unpaid)
}

func (s *Server) handleEditGroupAmount(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.ledger.EditGroupAmount(r.Context(), r.PathValue("groupId"), req.Amount.Decimal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.DeleteGroup(r.Context(), r.PathValue("groupId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := s.ledger.View(ParseViewQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.MonthlySeries())
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	days, err := ParseDays(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	insights, err := s.ledger.Insights(days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	caps := s.ledger.Capabilities()
	writeJSON(w, http.StatusOK, map[string]any{
		"plan":     caps.Plan(),
		"features": caps.List(),
	})
}

func (s *Server) handleGetGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Goals())
}

func (s *Server) handlePutGoals(w http.ResponseWriter, r *http.Request) {
	var goals core.Goals
	if err := DecodeJSON(w, r, &goals); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.ledger.SetGoals(r.Context(), goals)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.ledger.Cards()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	card, err := s.ledger.AddCard(r.Context(), req.ToInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCard(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEnvelopes(w http.ResponseWriter, r *http.Request) {
	envs, err := s.ledger.Envelopes()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envs)
}

func (s *Server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	var req EnvelopeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	env, err := s.ledger.AddEnvelope(r.Context(), req.ToInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, env)
}

func (s *Server) handleDeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteEnvelope(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.UserPrefs())
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs core.UserPrefs
	if err := DecodeJSON(w, r, &prefs); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.ledger.SetUserPrefs(r.Context(), prefs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ThemeRequest{Theme: s.ledger.Theme()})
}

func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	theme, err := s.ledger.SetTheme(r.Context(), req.Theme)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeRequest{Theme: theme})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	backup, err := s.ledger.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	filename := "smartfinance-backup-" + backup.ExportedAt.Format("2006-01-02") + ".json"
	NewJSONResponse().
		Header("Content-Disposition", `attachment; filename="`+filename+`"`).
		Body(backup).
		Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var backup snapshots.Backup
	if err := DecodeJSON(w, r, &backup); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.Import(r.Context(), backup); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"transactions": len(s.ledger.Transactions())})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.ledger.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
