package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ramenya/ordering-service/internal/order"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Errors []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("handler: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, errorResponse{Errors: messages})
}

// businessErrorMessages flattens a possibly-joined validation error into the
// complete list of violated rules, missing ids and unavailable names, so the
// caller can render every problem from one rejection.
func businessErrorMessages(err error) []string {
	var messages []string

	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, child := range joined.Unwrap() {
				walk(child)
			}
			return
		}

		var compErr *order.CompositionError
		if errors.As(e, &compErr) {
			messages = append(messages, compErr.Violations...)
			return
		}
		messages = append(messages, e.Error())
	}
	walk(err)

	return messages
}
