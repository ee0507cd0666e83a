package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/middleware"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Validation("Invalid request payload")
	}
	return nil
}

func pathID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("Invalid id", "id")
	}
	return id, nil
}

func ok(w http.ResponseWriter, status int, message string, data interface{}) {
	utils.WriteJSON(w, status, models.APIResponse{Message: message, Data: data})
}

// fail logs err against the request and writes the error envelope.
func fail(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, msg string, err error) {
	entry := log.WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(r),
		"method":     r.Method,
		"uri":        r.RequestURI,
	}).WithError(err)
	if apperror.HTTPStatus(apperror.KindOf(err)) >= http.StatusInternalServerError {
		entry.Error(msg)
	} else {
		entry.Warn(msg)
	}
	utils.WriteError(w, err)
}

// realtorOf and adminOf are only reached behind the authenticator, a missing
// principal means the route was wired without it.
func realtorOf(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger) (*models.Realtor, bool) {
	realtor, found := middleware.RealtorFrom(r.Context())
	if !found {
		fail(w, r, log, "Realtor missing in context", apperror.Authentication("Not authorized", nil))
	}
	return realtor, found
}

func adminOf(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger) (*models.Admin, bool) {
	admin, found := middleware.AdminFrom(r.Context())
	if !found {
		fail(w, r, log, "Admin missing in context", apperror.Authentication("Not authorized", nil))
	}
	return admin, found
}

type session struct {
	Token   string      `json:"token"`
	Account interface{} `json:"user"`
}
