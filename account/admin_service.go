package account

import (
	"context"
	"strings"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/mailer"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/moderation"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const generatedPasswordLength = 12

type AdminStore interface {
	Create(ctx context.Context, admin *models.Admin) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	SetSessionToken(ctx context.Context, id primitive.ObjectID, token string) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	Update(ctx context.Context, id primitive.ObjectID, in models.AdminUpdate) (*models.Admin, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context) ([]models.Admin, error)
}

type AdminService struct {
	store     AdminStore
	tokens    *utils.TokenManager
	mail      mailer.Mailer
	templates mailer.Templates
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewAdminService(store AdminStore, tokens *utils.TokenManager, mail mailer.Mailer, templates mailer.Templates, log logrus.FieldLogger) *AdminService {
	return &AdminService{
		store:     store,
		tokens:    tokens,
		mail:      mail,
		templates: templates,
		log:       log.WithField("component", "admin_account"),
		now:       time.Now,
	}
}

// Add creates an admin with a generated password that is mailed to them.
func (s *AdminService) Add(ctx context.Context, actor *models.Admin, in models.AdminInput) (*models.Admin, error) {
	if err := moderation.CanModerate(actor); err != nil {
		return nil, err
	}
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := models.Validate(in); err != nil {
		return nil, err
	}

	password, err := utils.RandomPassword(generatedPasswordLength)
	if err != nil {
		return nil, s.internal("Failed to create admin", err)
	}
	admin, err := s.create(ctx, in, password)
	if err != nil {
		return nil, err
	}

	if err := s.mail.Send(ctx, s.templates.AdminWelcome(admin.Email, admin.FirstName, password)); err != nil {
		s.log.WithError(err).WithField("admin_id", admin.ID.Hex()).Error("Failed to send admin welcome email")
	}
	s.log.WithFields(logrus.Fields{
		"admin_id": admin.ID.Hex(),
		"role":     admin.Role,
		"actor_id": actor.ID.Hex(),
	}).Info("Admin created")
	return admin, nil
}

func (s *AdminService) create(ctx context.Context, in models.AdminInput, password string) (*models.Admin, error) {
	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Validation("Email already exists", "email")
	} else if !apperror.Is(err, apperror.KindNotFound) {
		return nil, s.internal("Failed to create admin", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, s.internal("Failed to create admin", err)
	}
	now := s.now().UTC()
	admin := &models.Admin{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  hash,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, admin); err != nil {
		if apperror.Is(err, apperror.KindValidation) {
			return nil, err
		}
		return nil, s.internal("Failed to create admin", err)
	}
	return admin, nil
}

// EnsureSuperAdmin creates the first super admin from configuration when
// no admin with that email exists yet.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !apperror.Is(err, apperror.KindNotFound) {
		return err
	}
	in := models.AdminInput{FirstName: "Super", LastName: "Admin", Email: email, Role: models.RoleSuperAdmin}
	admin, err := s.create(ctx, in, password)
	if err != nil {
		return err
	}
	s.log.WithField("admin_id", admin.ID.Hex()).Info("Seeded super admin")
	return nil
}

func (s *AdminService) Login(ctx context.Context, in models.LoginInput) (string, *models.Admin, error) {
	in.Email = normalizeEmail(in.Email)
	if err := models.Validate(in); err != nil {
		return "", nil, err
	}

	admin, err := s.store.FindByEmail(ctx, in.Email)
	if apperror.Is(err, apperror.KindNotFound) {
		s.log.WithField("email", in.Email).Warn("Admin login for unknown email")
		return "", nil, invalidCredentials()
	}
	if err != nil {
		return "", nil, s.internal("Failed to log in", err)
	}
	if !utils.CheckPasswordHash(in.Password, admin.Password) {
		s.log.WithField("admin_id", admin.ID.Hex()).Warn("Admin login with wrong password")
		return "", nil, invalidCredentials()
	}

	token, err := s.tokens.Session(admin.ID.Hex(), admin.Email)
	if err != nil {
		return "", nil, s.internal("Failed to log in", err)
	}
	if err := s.store.SetSessionToken(ctx, admin.ID, token); err != nil {
		return "", nil, s.internal("Failed to log in", err)
	}
	admin.Token = token
	s.log.WithField("admin_id", admin.ID.Hex()).Info("Admin logged in")
	return token, admin, nil
}

func (s *AdminService) ChangePassword(ctx context.Context, admin *models.Admin, in models.ChangePasswordInput) error {
	if err := models.Validate(in); err != nil {
		return err
	}
	if !utils.CheckPasswordHash(in.OldPassword, admin.Password) {
		return apperror.Validation("Old password is incorrect", "oldPassword")
	}
	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return s.internal("Failed to change password", err)
	}
	if err := s.store.SetPassword(ctx, admin.ID, hash); err != nil {
		return s.internal("Failed to change password", err)
	}
	return nil
}

func (s *AdminService) List(ctx context.Context) ([]models.Admin, error) {
	admins, err := s.store.List(ctx)
	if err != nil {
		return nil, s.internal("Failed to fetch admins", err)
	}
	return admins, nil
}

func (s *AdminService) Get(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	admin, err := s.store.FindByID(ctx, id)
	if err != nil && !apperror.Is(err, apperror.KindNotFound) {
		return nil, s.internal("Failed to fetch admin", err)
	}
	return admin, err
}

func (s *AdminService) Edit(ctx context.Context, actor *models.Admin, id primitive.ObjectID, upd models.AdminUpdate) (*models.Admin, error) {
	if err := moderation.CanModerate(actor); err != nil {
		return nil, err
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	admin, err := s.store.Update(ctx, id, upd)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, err
		}
		return nil, s.internal("Failed to update admin", err)
	}
	return admin, nil
}

func (s *AdminService) Delete(ctx context.Context, actor *models.Admin, id primitive.ObjectID) error {
	if err := moderation.CanModerate(actor); err != nil {
		return err
	}
	if actor.ID == id {
		return apperror.Validation("You cannot delete your own account")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return err
		}
		return s.internal("Failed to delete admin", err)
	}
	s.log.WithFields(logrus.Fields{"admin_id": id.Hex(), "actor_id": actor.ID.Hex()}).Info("Admin deleted")
	return nil
}

func (s *AdminService) internal(msg string, err error) error {
	s.log.WithError(err).Error(msg)
	return apperror.Internal(msg, err)
}
