package controllers

import (
	"net/http"

	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/sirupsen/logrus"
)

func AddAdmin(admins AdminAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, found := adminOf(w, r, log)
		if !found {
			return
		}
		var in models.AdminInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding admin payload", err)
			return
		}

		admin, err := admins.Add(r.Context(), actor, in)
		if err != nil {
			fail(w, r, log, "Adding admin failed", err)
			return
		}
		ok(w, http.StatusCreated, "Admin added, login details have been sent by email", admin)
	}
}

func LoginAdmin(admins AdminAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.LoginInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding admin credentials", err)
			return
		}

		token, admin, err := admins.Login(r.Context(), in)
		if err != nil {
			fail(w, r, log, "Admin login failed", err)
			return
		}
		ok(w, http.StatusOK, "Login successful", session{Token: token, Account: admin})
	}
}

func ChangeAdminPassword(admins AdminAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, found := adminOf(w, r, log)
		if !found {
			return
		}
		var in models.ChangePasswordInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding password payload", err)
			return
		}

		if err := admins.ChangePassword(r.Context(), admin, in); err != nil {
			fail(w, r, log, "Admin password change failed", err)
			return
		}
		ok(w, http.StatusOK, "Password changed", nil)
	}
}

func GetAllAdmins(admins AdminAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := admins.List(r.Context())
		if err != nil {
			fail(w, r, log, "Listing admins failed", err)
			return
		}
		if list == nil {
			list = []models.Admin{}
		}
		ok(w, http.StatusOK, "Admins fetched", list)
	}
}

func GetAdmin(admins AdminAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid admin id", err)
			return
		}

		admin, err := admins.Get(r.Context(), id)
		if err != nil {
			fail(w, r, log, "Admin lookup failed", err)
			return
		}
		ok(w, http.StatusOK, "Admin fetched", admin)
	}
}

func EditAdmin(admins AdminAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, found := adminOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid admin id", err)
			return
		}
		var upd models.AdminUpdate
		if err := decodeJSON(w, r, &upd); err != nil {
			fail(w, r, log, "Error decoding admin update", err)
			return
		}

		admin, err := admins.Edit(r.Context(), actor, id, upd)
		if err != nil {
			fail(w, r, log, "Admin update failed", err)
			return
		}
		ok(w, http.StatusOK, "Admin updated", admin)
	}
}

func DeleteAdmin(admins AdminAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, found := adminOf(w, r, log)
		if !found {
			return
		}
		id, err := pathID(r)
		if err != nil {
			fail(w, r, log, "Invalid admin id", err)
			return
		}

		if err := admins.Delete(r.Context(), actor, id); err != nil {
			fail(w, r, log, "Admin deletion failed", err)
			return
		}
		ok(w, http.StatusOK, "Admin deleted", nil)
	}
}
