package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/quota/pkg/quota"
)

// defaultSummaryEntries is returned when the request has no n parameter.
const defaultSummaryEntries = 10

// SummaryResponse is the body of the summary endpoint.
type SummaryResponse struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Tracked     map[quota.Window]int `json:"tracked"`
	Entries     []quota.SummaryEntry `json:"entries"`
}

type summaryHandler struct {
	engine     SummaryEngine
	maxEntries int
}

func newSummaryHandler(engine SummaryEngine, maxEntries int) *summaryHandler {
	return &summaryHandler{engine: engine, maxEntries: maxEntries}
}

// ServeHTTP answers GET ?n= with up to n identities of the day window with
// the lowest remaining budget. n is capped at the configured maximum.
func (h *summaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("invalid_request_error", "Method not allowed."))
		return
	}

	n := defaultSummaryEntries
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid_request_error", "n must be a positive integer."))
			return
		}
		n = v
	}
	if h.maxEntries > 0 && n > h.maxEntries {
		n = h.maxEntries
	}

	entries := h.engine.LowestDailySummary(n)
	if entries == nil {
		entries = []quota.SummaryEntry{}
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		GeneratedAt: time.Now().UTC(),
		Tracked:     h.engine.Tracked(),
		Entries:     entries,
	})
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func errorBody(errType, message string) errorResponse {
	return errorResponse{Error: errorDetail{Message: message, Type: errType}}
}

// writeJSON writes body as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignore encoding errors; the status is already committed.
	_ = json.NewEncoder(w).Encode(body)
}
