package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/cache"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/moderation"
	"github.com/sirupsen/logrus"
)

const publicCacheNamespace = "public"

type PropertyPage struct {
	Properties []models.Property   `json:"properties"`
	Metadata   models.PageMetadata `json:"metadata"`
}

func CreateProperty(listings Listings, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtor, found := realtorOf(w, r, log)
		if !found {
			return
		}
		var in models.PropertyInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Invalid property payload", err)
			return
		}

		property, err := listings.Create(r.Context(), realtor, in)
		if err != nil {
			fail(w, r, log, "Property creation failed", err)
			return
		}
		ok(w, http.StatusCreated, "Property created", property)
	}
}

// GetOwnProperties lists the caller's properties in every status.
func GetOwnProperties(listings Listings, pages PageCache, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtor, found := realtorOf(w, r, log)
		if !found {
			return
		}
		q := models.ParsePropertyQuery(r.URL.Query())
		q.Scope = models.OwnerScope(realtor.ID)
		servePage(w, r, listings, pages, cache.Key(realtor.ID.Hex(), r.URL.Query()), q, log)
	}
}

func GetOwnProperty(listings Listings, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtor, found := realtorOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid property id", err)
			return
		}

		property, err := listings.Get(r.Context(), id, models.OwnerScope(realtor.ID))
		if err != nil {
			fail(w, r, log, "Property lookup failed", err)
			return
		}
		ok(w, http.StatusOK, "Property fetched", property)
	}
}

func UpdateProperty(listings Listings, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtor, found := realtorOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid property id", err)
			return
		}
		var upd models.PropertyUpdate
		if err := decodeJSON(w, r, &upd); err != nil {
			fail(w, r, log, "Invalid property payload", err)
			return
		}

		property, err := listings.Edit(r.Context(), realtor, id, upd)
		if err != nil {
			fail(w, r, log, "Property update failed", err)
			return
		}
		ok(w, http.StatusOK, "Property updated", property)
	}
}

func DeleteProperty(listings Listings, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtor, found := realtorOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid property id", err)
			return
		}

		if err := listings.DeleteOwned(r.Context(), realtor, id); err != nil {
			fail(w, r, log, "Property deletion failed", err)
			return
		}
		ok(w, http.StatusOK, "Property deleted", nil)
	}
}

// GetPublicProperties serves approved listings of active realtors. Whatever
// filters the caller sends, the visibility scope is fixed.
func GetPublicProperties(listings Listings, pages PageCache, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := moderation.PublicQuery(models.ParsePropertyQuery(r.URL.Query()))
		servePage(w, r, listings, pages, cache.Key(publicCacheNamespace, r.URL.Query()), q, log)
	}
}

func GetPublicProperty(listings Listings, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid property id", err)
			return
		}

		property, err := listings.Get(r.Context(), id, moderation.PublicScope())
		if err != nil {
			fail(w, r, log, "Public property lookup failed", err)
			return
		}
		ok(w, http.StatusOK, "Property fetched", property)
	}
}

func servePage(w http.ResponseWriter, r *http.Request, listings Listings, pages PageCache, key string, q models.PropertyQuery, log logrus.FieldLogger) {
	if cached, hit := pages.Get(r.Context(), key); hit {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write(cached)
		return
	}

	properties, meta, err := listings.List(r.Context(), q)
	if err != nil {
		fail(w, r, log, "Property listing failed", err)
		return
	}
	if properties == nil {
		properties = []models.Property{}
	}

	body, err := json.Marshal(models.APIResponse{
		Message: "Properties fetched",
		Data:    PropertyPage{Properties: properties, Metadata: meta},
	})
	if err != nil {
		fail(w, r, log, "Error encoding property page", apperror.Internal("failed to encode response", err))
		return
	}
	pages.Set(r.Context(), key, body)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	_, _ = w.Write(body)
}
