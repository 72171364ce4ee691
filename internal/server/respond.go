package server

import (
	"encoding/json"
	"net/http"

	svcErr "github.com/pacheco20222/DogMatch-backend-sub000/internal/errors"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Error("failed to encode response", "err", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := svcErr.Status(err)
	if status >= 500 {
		logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": svcErr.Reason(err)})
}
