package api

import (
	"encoding/json"
	"net/http"

	"github.com/yanizio/sitebuilder/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders coded errors as-is.  Anything else is an internal
// failure whose text stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	ae := apperr.As(err)
	if ae == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal error",
			"code":  "INTERNAL",
		})
		return
	}
	if ae.Kind == apperr.KindStorage {
		// Cause may carry driver text; render only the code.
		ae = &apperr.Error{Code: ae.Code, Message: "storage operation failed", Kind: ae.Kind}
	}
	writeJSON(w, ae.HTTPStatus(), ae)
}
