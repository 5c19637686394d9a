package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "leadflow/internal/api/context"
)

func param(r *http.Request, name string) string {
	if ps, ok := r.Context().Value(apiContext.Params).(httprouter.Params); ok {
		return ps.ByName(name)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
