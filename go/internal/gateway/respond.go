package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/auctionhouse/go/internal/history"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

// writeErr reports err with the status code of its taxonomy kind
func writeErr(w http.ResponseWriter, err error) {
	kind := liveauction.Kind(err)
	switch {
	case errors.Is(err, history.ErrForbidden):
		kind = "Unauthorized"
	case errors.Is(err, history.ErrNotFound):
		kind = "NotFound"
	}

	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func statusFor(kind string) int {
	switch kind {
	case "Unauthorized":
		return http.StatusForbidden
	case "NotFound":
		return http.StatusNotFound
	case "InvalidState", "AlreadyActive":
		return http.StatusConflict
	case "InsufficientPurse", "InvalidBidAmount", "NoBidsPlaced", "PlayerNotInPool":
		return http.StatusUnprocessableEntity
	case "InvalidRequest":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
