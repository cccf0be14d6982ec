package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/waterfall-cli/internal/model"
	"github.com/sells-group/waterfall-cli/internal/sensitivity"
	"github.com/sells-group/waterfall-cli/internal/store"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

const maxBodyBytes = 1 << 20

var errBadRequest = eris.New("api: bad request")

type errorResponse struct {
	Error string `json:"error"`
}

type sensitivityRequest struct {
	Base      waterfall.Parameters `json:"base"`
	Multiples []float64            `json:"multiples"`
	Axis      sensitivity.Axis     `json:"axis"`
	Values    []float64            `json:"values"`
}

type scenarioRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  waterfall.Parameters `json:"parameters"`
}

type scenarioResult struct {
	Scenario *model.Scenario   `json:"scenario"`
	Result   *waterfall.Result `json:"result"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	p := s.opts.Defaults
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}

	res, hit, err := s.calculate(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	req := sensitivityRequest{Base: s.opts.Defaults}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Multiples) == 0 {
		req.Multiples = s.opts.Multiples
	}
	table, err := s.runner.Run(r.Context(), req.Base, sensitivity.Grid{
		Multiples: req.Multiples,
		Axis:      req.Axis,
		Values:    req.Values,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	SensitivityCells.Observe(float64(len(table.Multiples) * len(table.Values)))
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := s.store.ListScenarios(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Scenario{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSaveScenario(w http.ResponseWriter, r *http.Request) {
	req := scenarioRequest{Parameters: s.opts.Defaults}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sc := &model.Scenario{Name: req.Name, Description: req.Description, Parameters: req.Parameters}
	if err := s.store.SaveScenario(r.Context(), sc); err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !sc.CreatedAt.Equal(sc.UpdatedAt) {
		status = http.StatusOK
	}
	writeJSON(w, status, sc)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetScenario(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteScenario(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalculateScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetScenario(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, _, err := s.calculate(sc.Parameters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarioResult{Scenario: sc, Result: res})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return eris.Wrapf(errBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Wrapf(errBadRequest, "%s must be a non-negative integer", name)
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, waterfall.ErrInvalidParameter),
		errors.Is(err, sensitivity.ErrInvalidGrid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeJSON encodes v before writing the status. Encode failures are
// reported as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "internal server error"})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
