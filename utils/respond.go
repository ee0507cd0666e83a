package utils

import (
	"encoding/json"
	"net/http"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
)

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError renders err as {message, errors?} with the status of its kind.
// Internal causes never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, apperror.HTTPStatus(apperror.KindOf(err)), models.APIResponse{
		Message: apperror.PublicMessage(err),
		Errors:  apperror.FieldsOf(err),
	})
}
