package http

import (
	"net/http"
	"strings"

	"pocket/internal/core"
)

// handleListTransactions returns every transaction, or the filtered subset
// when any filter parameter is present.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		txs []core.Transaction
		err error
	)
	if hasAny(q.Get, "type", "timeline", "category", "start", "end") {
		f, ferr := ParseTransactionFilter(q, s.loc)
		if ferr != nil {
			writeError(w, r, ferr)
			return
		}
		txs, err = s.deps.Transactions.Filter(r.Context(), f)
	} else {
		txs, err = s.deps.Transactions.List(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := req.toTransaction(s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.deps.Transactions.Create(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+created.ID).
		Body(created).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.deps.Transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := req.toTransaction(s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx.ID = r.PathValue("id")
	updated, err := s.deps.Transactions.Update(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Transactions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Transactions.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Transactions.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func hasAny(get func(string) string, keys ...string) bool {
	for _, k := range keys {
		if strings.TrimSpace(get(k)) != "" {
			return true
		}
	}
	return false
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
