package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abennett/ttt/pkg"
	"github.com/abennett/ttt/pkg/request"
)

const maxBodyBytes = 64 << 10

var ErrNotationTooLong = errors.New("dice expression too long")

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed writing response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, request.ErrUnknownPreset):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotationTooLong), pkg.IsRequestError(err):
		status = http.StatusBadRequest
	}
	s.logger.Debug("request rejected",
		"request_id", middleware.GetReqID(r.Context()),
		"status", status,
		"error", err)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// notation reads the dice expression from the URL, enforcing the length
// guard before it reaches the parser.
func (s *Server) notation(r *http.Request) (string, error) {
	dString := chi.URLParam(r, "dString")
	if len(dString) > s.maxNotationLength {
		return "", fmt.Errorf("%w: %d > %d characters", ErrNotationTooLong, len(dString), s.maxNotationLength)
	}
	return dString, nil
}

// RollNotation handles GET /tasks/roll/{dString}?dropLowest=1&rerollTotal=9.
func (s *Server) RollNotation(w http.ResponseWriter, r *http.Request) {
	dString, err := s.notation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := request.OptionsFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.roller.RollNotation(dString, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// RollJSON handles POST /tasks/roll with a JSON roll request.
func (s *Server) RollJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", pkg.ErrNormalization, err))
		return
	}
	n, err := request.Normalize(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.execute(w, r, n)
}

// RollCharacter handles GET /tasks/roll/character/{level}.
func (s *Server) RollCharacter(w http.ResponseWriter, r *http.Request) {
	n, err := request.Preset(chi.URLParam(r, "level"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.execute(w, r, n)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, n *request.Normalized) {
	res, err := s.roller.Execute(n.Groups, n.Connectors, n.Batch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type oddsResponse struct {
	Min      int           `json:"Min"`
	Max      int           `json:"Max"`
	Outcomes []pkg.Outcome `json:"Outcomes"`
}

// Odds handles GET /tasks/odds/{dString}.
func (s *Server) Odds(w http.ResponseWriter, r *http.Request) {
	dString, err := s.notation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groups, connectors, _, err := pkg.Parse(dString, pkg.DieOptions{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	outcomes, err := s.roller.Odds(groups, connectors)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, oddsResponse{
		Min:      outcomes[0].Total,
		Max:      outcomes[len(outcomes)-1].Total,
		Outcomes: outcomes,
	})
}
