package control

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"mercator-hq/uidthrottle/pkg/throttle"
)

// maxCommandBytes bounds a POST body.
const maxCommandBytes = 4096

// ListResponse is the JSON form of the list output.
type ListResponse struct {
	Enabled bool                `json:"enabled"`
	Window  string              `json:"window"`
	Entries []throttle.Snapshot `json:"entries"`
}

// Handler serves the control endpoint.
//
//	GET  returns the list output, or JSON with ?format=json
//	POST applies the "<uid> <rate>" command in the body
type Handler struct {
	plane *Plane
}

// NewHandler returns an http.Handler for plane.
func NewHandler(plane *Plane) *Handler {
	return &Handler{plane: plane}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.list(w, r)
	case http.MethodPost, http.MethodPut:
		h.exec(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST, PUT")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.URL.Query().Get("format"), "json") {
		resp := ListResponse{
			Enabled: h.plane.Enabled(),
			Window:  h.plane.Window().String(),
			Entries: h.plane.Entries(),
		}
		if resp.Entries == nil {
			resp.Entries = []throttle.Snapshot{}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(resp)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	for _, line := range h.plane.List() {
		_, _ = io.WriteString(w, line+"\n")
	}
}

func (h *Handler) exec(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes+1))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxCommandBytes {
		http.Error(w, "command too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.plane.Exec(r.Context(), SourceHTTP, string(body)); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrDisabled):
		return http.StatusServiceUnavailable
	case IsRejection(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
