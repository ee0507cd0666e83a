package controllers

import (
	"context"
	"io"

	"github.com/dcode-github/realtor_listing/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Listings interface {
	Create(ctx context.Context, owner *models.Realtor, in models.PropertyInput) (*models.Property, error)
	Edit(ctx context.Context, owner *models.Realtor, id primitive.ObjectID, upd models.PropertyUpdate) (*models.Property, error)
	DeleteOwned(ctx context.Context, owner *models.Realtor, id primitive.ObjectID) error
	Get(ctx context.Context, id primitive.ObjectID, scope models.Scope) (*models.Property, error)
	List(ctx context.Context, q models.PropertyQuery) ([]models.Property, models.PageMetadata, error)
}

type Uploader interface {
	Upload(ctx context.Context, data io.Reader, ext string) (models.ImageAsset, error)
	Delete(ctx context.Context, publicID string) error
}

type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

type RealtorAccounts interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.Realtor, error)
	VerifyEmail(ctx context.Context, token string) (string, *models.Realtor, error)
	Login(ctx context.Context, in models.LoginInput) (string, *models.Realtor, error)
	ChangePassword(ctx context.Context, realtor *models.Realtor, in models.ChangePasswordInput) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in models.ResetPasswordInput) error
	EditProfile(ctx context.Context, realtor *models.Realtor, in models.ProfileInput) (*models.Realtor, error)
	DeleteProfile(ctx context.Context, realtor *models.Realtor) error
}

type AdminAccounts interface {
	Add(ctx context.Context, actor *models.Admin, in models.AdminInput) (*models.Admin, error)
	Login(ctx context.Context, in models.LoginInput) (string, *models.Admin, error)
	ChangePassword(ctx context.Context, admin *models.Admin, in models.ChangePasswordInput) error
	List(ctx context.Context) ([]models.Admin, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	Edit(ctx context.Context, actor *models.Admin, id primitive.ObjectID, upd models.AdminUpdate) (*models.Admin, error)
	Delete(ctx context.Context, actor *models.Admin, id primitive.ObjectID) error
}

type Moderator interface {
	ChangePropertyStatus(ctx context.Context, admin *models.Admin, id primitive.ObjectID, status models.ModerationStatus) (*models.Property, error)
	ToggleRealtorBan(ctx context.Context, admin *models.Admin, id primitive.ObjectID) (*models.Realtor, error)
	DeleteProperty(ctx context.Context, admin *models.Admin, id primitive.ObjectID) error
	DeleteRealtor(ctx context.Context, admin *models.Admin, id primitive.ObjectID) error
}

type RealtorDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Realtor, error)
	List(ctx context.Context, page, limit int) ([]models.Realtor, int64, error)
}
