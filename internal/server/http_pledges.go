package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/selection"
	"github.com/alfredjeanlab/givecal/internal/share"
	"github.com/alfredjeanlab/givecal/internal/store"
)

// gridResponse is the JSON shape of GET /v1/grid.
type gridResponse struct {
	Title   string         `json:"title"`
	Mode    string         `json:"mode"`
	Rows    [][]model.Cell `json:"rows"`
	Pledged int            `json:"pledged"`
	Total   string         `json:"total"`
}

// handleGetGrid handles GET /v1/grid.
func (s *CalendarServer) handleGetGrid(w http.ResponseWriter, _ *http.Request) {
	n, total := s.board.Totals()
	writeJSON(w, http.StatusOK, gridResponse{
		Title:   s.fundraiser.Title,
		Mode:    s.board.Mode().String(),
		Rows:    s.board.Rows(),
		Pledged: n,
		Total:   total.String(),
	})
}

// handleListPledges handles GET /v1/pledges.
func (s *CalendarServer) handleListPledges(w http.ResponseWriter, r *http.Request) {
	recs, err := s.records(r.Context())
	if err != nil {
		s.logger.Error("listing pledges", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pledges")
		return
	}
	if recs == nil {
		recs = []*model.PledgeRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pledges": recs})
}

// handleGetPledge handles GET /v1/pledges/{id}.
func (s *CalendarServer) handleGetPledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.Synced() {
		rec, err := s.remote.Get(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pledge not found")
			return
		}
		if err != nil {
			s.logger.Error("getting pledge", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get pledge")
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	c, ok := s.board.Cell(id)
	if !ok || !c.Status.IsPledged() {
		writeError(w, http.StatusNotFound, "pledge not found")
		return
	}
	rec := s.recordFor(c)
	writeJSON(w, http.StatusOK, &rec)
}

// handlePutPledge handles PUT /v1/pledges/{id}.
func (s *CalendarServer) handlePutPledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var rec model.PledgeRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	stored, err := s.putPledge(r.Context(), id, rec)
	switch {
	case errors.Is(err, errLocalOnly):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case isInputError(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("pledge not recorded", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store pledge")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// linksRequest is the body of POST /v1/links.
type linksRequest struct {
	CellID string `json:"cell_id"`
	Amount string `json:"amount"`
	Name   string `json:"name"`
}

// linksResponse carries the composed links. Valid reports whether the
// amount would be accepted on confirm.
type linksResponse struct {
	paylink.Links
	Subtitle string `json:"subtitle"`
	Primary  string `json:"primary"`
	Valid    bool   `json:"valid"`
}

// handleComposeLinks handles POST /v1/links. It previews the links for a
// draft without recording anything.
func (s *CalendarServer) handleComposeLinks(w http.ResponseWriter, r *http.Request) {
	var req linksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cell, ok := s.board.Cell(req.CellID)
	if !ok {
		writeError(w, http.StatusNotFound, "cell not found")
		return
	}

	ctl := selection.New(s.composer, true)
	_ = ctl.Open(cell)
	if strings.TrimSpace(req.Amount) != "" {
		ctl.SetAmount(req.Amount)
	}
	ctl.SetName(req.Name)
	_, amountErr := selection.ParseAmount(ctl.Amount())

	links := ctl.Links()
	writeJSON(w, http.StatusOK, linksResponse{
		Links:    links,
		Subtitle: ctl.Subtitle(),
		Primary:  links.Primary(paylink.Classify(r.UserAgent())),
		Valid:    amountErr == nil,
	})
}

// handleGetShare handles GET /v1/share.
func (s *CalendarServer) handleGetShare(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sharePayload(r))
}

func (s *CalendarServer) sharePayload(r *http.Request) share.Payload {
	return share.Payload{
		Title: s.fundraiser.Title,
		Text:  s.fundraiser.ShareText,
		URL:   baseURL(r) + "/",
	}
}

// baseURL reconstructs the externally visible origin of r.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
