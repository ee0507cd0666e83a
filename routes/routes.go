package routes

import (
	"net/http"

	"github.com/dcode-github/realtor_listing/backend/controllers"
	"github.com/dcode-github/realtor_listing/backend/metrics"
	"github.com/dcode-github/realtor_listing/backend/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Auth         *middleware.Authenticator
	LoginLimiter *middleware.RateLimiter
	Metrics      *metrics.Metrics
	Log          logrus.FieldLogger

	Listings  controllers.Listings
	Uploader  controllers.Uploader
	Pages     controllers.PageCache
	Realtors  controllers.RealtorAccounts
	Admins    controllers.AdminAccounts
	Moderator controllers.Moderator
	Directory controllers.RealtorDirectory
}

func Routes(router *mux.Router, d Deps) {
	log := d.Log
	router.Use(middleware.RequestID, middleware.Recoverer(log), middleware.Logger(log), d.Metrics.Middleware)

	router.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Realtor auth
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", controllers.RegisterRealtor(d.Realtors, log)).Methods(http.MethodPost)
	login := controllers.LoginRealtor(d.Realtors, log)
	if d.LoginLimiter != nil {
		auth.Handle("/login", d.LoginLimiter.Limit(login)).Methods(http.MethodPost)
	} else {
		auth.Handle("/login", login).Methods(http.MethodPost)
	}
	auth.HandleFunc("/verify-email", controllers.VerifyEmail(d.Realtors, log)).Methods(http.MethodPut)
	auth.HandleFunc("/forgot-password", controllers.ForgotPassword(d.Realtors, log)).Methods(http.MethodPut)
	auth.HandleFunc("/reset-password", controllers.ResetPassword(d.Realtors, log)).Methods(http.MethodPut)
	auth.Handle("/change-password", d.Auth.Realtor(controllers.ChangeRealtorPassword(d.Realtors, log))).Methods(http.MethodPut)
	auth.Handle("/edit-profile", d.Auth.Realtor(controllers.EditRealtorProfile(d.Realtors, log))).Methods(http.MethodPut)
	auth.Handle("/delete-realtor-profile", d.Auth.Realtor(controllers.DeleteRealtorProfile(d.Realtors, log))).Methods(http.MethodDelete)

	// Realtor properties
	properties := api.PathPrefix("/properties").Subrouter()
	properties.Use(d.Auth.Realtor)
	properties.HandleFunc("/upload", controllers.UploadFeatureImage(d.Uploader, log)).Methods(http.MethodPost)
	properties.HandleFunc("/uploads", controllers.UploadGalleryImages(d.Uploader, log)).Methods(http.MethodPost)
	properties.HandleFunc("", controllers.CreateProperty(d.Listings, log)).Methods(http.MethodPost)
	properties.HandleFunc("", controllers.GetOwnProperties(d.Listings, d.Pages, log)).Methods(http.MethodGet)
	properties.HandleFunc("/{id}", controllers.GetOwnProperty(d.Listings, log)).Methods(http.MethodGet)
	properties.HandleFunc("/{id}", controllers.UpdateProperty(d.Listings, log)).Methods(http.MethodPut)
	properties.HandleFunc("/{id}", controllers.DeleteProperty(d.Listings, log)).Methods(http.MethodDelete)

	// Public
	public := api.PathPrefix("/users/properties").Subrouter()
	public.HandleFunc("", controllers.GetPublicProperties(d.Listings, d.Pages, log)).Methods(http.MethodGet)
	public.HandleFunc("/{id}", controllers.GetPublicProperty(d.Listings, log)).Methods(http.MethodGet)

	// Admin auth
	adminAuth := api.PathPrefix("/admin/auth").Subrouter()
	adminAuth.HandleFunc("/login", controllers.LoginAdmin(d.Admins, log)).Methods(http.MethodPost)
	adminAuth.Handle("", d.Auth.Admin(controllers.AddAdmin(d.Admins, log))).Methods(http.MethodPost)
	adminAuth.Handle("/change-password", d.Auth.Admin(controllers.ChangeAdminPassword(d.Admins, log))).Methods(http.MethodPut)
	adminAuth.Handle("/all-admins", d.Auth.Admin(controllers.GetAllAdmins(d.Admins, log))).Methods(http.MethodGet)
	adminAuth.Handle("/{id}", d.Auth.Admin(controllers.GetAdmin(d.Admins, log))).Methods(http.MethodGet)
	adminAuth.Handle("/{id}", d.Auth.Admin(controllers.EditAdmin(d.Admins, log))).Methods(http.MethodPut)
	adminAuth.Handle("/{id}", d.Auth.Admin(controllers.DeleteAdmin(d.Admins, log))).Methods(http.MethodDelete)

	// Admin moderation
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(d.Auth.Admin)
	admin.HandleFunc("/properties", controllers.AdminListProperties(d.Listings, log)).Methods(http.MethodGet)
	admin.HandleFunc("/realtors", controllers.AdminListRealtors(d.Directory, log)).Methods(http.MethodGet)
	admin.HandleFunc("/property/{id}", controllers.AdminGetProperty(d.Listings, log)).Methods(http.MethodGet)
	admin.HandleFunc("/realtor/{id}", controllers.AdminGetRealtor(d.Directory, log)).Methods(http.MethodGet)
	admin.HandleFunc("/property/{id}", controllers.ChangePropertyStatus(d.Moderator, log)).Methods(http.MethodPut)
	admin.HandleFunc("/realtor/{id}", controllers.ToggleRealtorBan(d.Moderator, log)).Methods(http.MethodPut)
	admin.HandleFunc("/property/{id}", controllers.AdminDeleteProperty(d.Moderator, log)).Methods(http.MethodDelete)
	admin.HandleFunc("/realtor/{id}", controllers.AdminDeleteRealtor(d.Moderator, log)).Methods(http.MethodDelete)
}
