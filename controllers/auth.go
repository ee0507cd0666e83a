package controllers

import (
	"net/http"

	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/sirupsen/logrus"
)

func RegisterRealtor(accounts RealtorAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.RegisterInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding registration payload", err)
			return
		}

		realtor, err := accounts.Register(r.Context(), in)
		if err != nil {
			fail(w, r, log, "Registration failed", err)
			return
		}
		ok(w, http.StatusCreated, "Registration successful, check your email to verify your account", realtor)
	}
}

func VerifyEmail(accounts RealtorAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Token string `json:"token"`
		}
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding verification payload", err)
			return
		}

		token, realtor, err := accounts.VerifyEmail(r.Context(), in.Token)
		if err != nil {
			fail(w, r, log, "Email verification failed", err)
			return
		}
		ok(w, http.StatusOK, "Email verified", session{Token: token, Account: realtor})
	}
}

func LoginRealtor(accounts RealtorAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.LoginInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding login credentials", err)
			return
		}

		token, realtor, err := accounts.Login(r.Context(), in)
		if err != nil {
			fail(w, r, log, "Login failed", err)
			return
		}
		ok(w, http.StatusOK, "Login successful", session{Token: token, Account: realtor})
	}
}

func ChangeRealtorPassword(accounts RealtorAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtor, found := realtorOf(w, r, log)
		if !found {
			return
		}
		var in models.ChangePasswordInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding password payload", err)
			return
		}

		if err := accounts.ChangePassword(r.Context(), realtor, in); err != nil {
			fail(w, r, log, "Password change failed", err)
			return
		}
		ok(w, http.StatusOK, "Password changed", nil)
	}
}

func ForgotPassword(accounts RealtorAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding forgot password payload", err)
			return
		}

		if err := accounts.ForgotPassword(r.Context(), in.Email); err != nil {
			fail(w, r, log, "Forgot password failed", err)
			return
		}
		ok(w, http.StatusOK, "If the email is registered, a reset link has been sent", nil)
	}
}

func ResetPassword(accounts RealtorAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.ResetPasswordInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding reset payload", err)
			return
		}

		if err := accounts.ResetPassword(r.Context(), in); err != nil {
			fail(w, r, log, "Password reset failed", err)
			return
		}
		ok(w, http.StatusOK, "Password reset successful", nil)
	}
}

func EditRealtorProfile(accounts RealtorAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtor, found := realtorOf(w, r, log)
		if !found {
			return
		}
		var in models.ProfileInput
		if err := decodeJSON(w, r, &in); err != nil {
			fail(w, r, log, "Error decoding profile payload", err)
			return
		}

		updated, err := accounts.EditProfile(r.Context(), realtor, in)
		if err != nil {
			fail(w, r, log, "Profile update failed", err)
			return
		}
		ok(w, http.StatusOK, "Profile updated", updated)
	}
}

func DeleteRealtorProfile(accounts RealtorAccounts, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtor, found := realtorOf(w, r, log)
		if !found {
			return
		}

		if err := accounts.DeleteProfile(r.Context(), realtor); err != nil {
			fail(w, r, log, "Profile deletion failed", err)
			return
		}
		ok(w, http.StatusOK, "Profile deleted", nil)
	}
}
