package controllers

import (
	"net/http"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/sirupsen/logrus"
)

type RealtorPage struct {
	Realtors    []models.Realtor `json:"realtors"`
	Total       int64            `json:"totalRealtors"`
	TotalPages  int64            `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
}

// AdminListProperties lists properties in every status. An optional
// status parameter narrows the result.
func AdminListProperties(listings Listings, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := models.ParsePropertyQuery(r.URL.Query())
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := models.ModerationStatus(raw)
			if !status.Valid() {
				fail(w, r, log, "Invalid status filter", apperror.Validation("Invalid status", "status"))
				return
			}
			q.Status = &status
		}

		properties, meta, err := listings.List(r.Context(), q)
		if err != nil {
			fail(w, r, log, "Admin property listing failed", err)
			return
		}
		if properties == nil {
			properties = []models.Property{}
		}
		ok(w, http.StatusOK, "Properties fetched", PropertyPage{Properties: properties, Metadata: meta})
	}
}

func AdminGetProperty(listings Listings, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid property id", err)
			return
		}

		property, err := listings.Get(r.Context(), id, models.Scope{})
		if err != nil {
			fail(w, r, log, "Admin property lookup failed", err)
			return
		}
		ok(w, http.StatusOK, "Property fetched", property)
	}
}

func AdminListRealtors(realtors RealtorDirectory, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := models.ParsePropertyQuery(r.URL.Query())
		list, total, err := realtors.List(r.Context(), q.Page, q.Limit)
		if err != nil {
			fail(w, r, log, "Realtor listing failed", err)
			return
		}
		if list == nil {
			list = []models.Realtor{}
		}
		meta := models.NewPageMetadata(total, q)
		ok(w, http.StatusOK, "Realtors fetched", RealtorPage{
			Realtors:    list,
			Total:       total,
			TotalPages:  meta.TotalPages,
			CurrentPage: meta.CurrentPage,
		})
	}
}

func AdminGetRealtor(realtors RealtorDirectory, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid realtor id", err)
			return
		}

		realtor, err := realtors.FindByID(r.Context(), id)
		if err != nil {
			fail(w, r, log, "Realtor lookup failed", err)
			return
		}
		ok(w, http.StatusOK, "Realtor fetched", realtor)
	}
}

func ChangePropertyStatus(mod Moderator, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, found := adminOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid property id", err)
			return
		}
		var in struct {
			Status models.ModerationStatus `json:"status"`
		}
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding status payload", err)
			return
		}

		property, err := mod.ChangePropertyStatus(r.Context(), admin, id, in.Status)
		if err != nil {
			fail(w, r, log, "Property status change failed", err)
			return
		}
		ok(w, http.StatusOK, "Property status updated", property)
	}
}

func ToggleRealtorBan(mod Moderator, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, found := adminOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid realtor id", err)
			return
		}

		realtor, err := mod.ToggleRealtorBan(r.Context(), admin, id)
		if err != nil {
			fail(w, r, log, "Realtor ban toggle failed", err)
			return
		}
		msg := "Realtor unbanned"
		if realtor.IsBanned {
			msg = "Realtor banned"
		}
		ok(w, http.StatusOK, msg, realtor)
	}
}

func AdminDeleteProperty(mod Moderator, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, found := adminOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid property id", err)
			return
		}

		if err := mod.DeleteProperty(r.Context(), admin, id); err != nil {
			fail(w, r, log, "Admin property deletion failed", err)
			return
		}
		ok(w, http.StatusOK, "Property deleted", nil)
	}
}

func AdminDeleteRealtor(mod Moderator, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, found := adminOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid realtor id", err)
			return
		}

		if err := mod.DeleteRealtor(r.Context(), admin, id); err != nil {
			fail(w, r, log, "Realtor deletion failed", err)
			return
		}
		ok(w, http.StatusOK, "Realtor and their properties deleted", nil)
	}
}
