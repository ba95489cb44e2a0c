package http

import (
	"net/http"

	"pocket/internal/core"
	"pocket/internal/stats"
)

func (s *Server) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := s.deps.Payouts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(payouts))
}

func (s *Server) handleCreatePayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPayout(s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.deps.Payouts.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/payouts/"+created.ID).
		Body(created).
		Write(w)
}

func (s *Server) handleGetPayout(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Payouts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPayout(s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = r.PathValue("id")
	updated, err := s.deps.Payouts.Update(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePayout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Payouts.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolvePayout(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Payouts.Resolve(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCancelPayout(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Payouts.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePayoutStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Payouts.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type peopleResponse struct {
	People    []core.Person         `json:"people"`
	Summaries []stats.PersonSummary `json:"summaries"`
}

// handlePeople lists counterparties with recomputed balances and the
// per-person payout summaries.
func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.deps.Payouts.PeopleBalances(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summaries, err := s.deps.Payouts.People(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, peopleResponse{People: nonNil(people), Summaries: nonNil(summaries)})
}
