package account

import (
	"context"
	"strings"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/mailer"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RealtorStore interface {
	Create(ctx context.Context, realtor *models.Realtor) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Realtor, error)
	FindByEmail(ctx context.Context, email string) (*models.Realtor, error)
	FindByPhone(ctx context.Context, phone string) (*models.Realtor, error)
	SetSessionToken(ctx context.Context, id primitive.ObjectID, token string) error
	SetVerificationToken(ctx context.Context, id primitive.ObjectID, token string) error
	MarkVerified(ctx context.Context, id primitive.ObjectID, sessionToken string) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, in models.ProfileInput) (*models.Realtor, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PropertyCascade removes every property of a realtor with its images.
type PropertyCascade interface {
	DeleteAllByOwner(ctx context.Context, ownerID primitive.ObjectID) (int, error)
}

type RealtorService struct {
	store      RealtorStore
	properties PropertyCascade
	tokens     *utils.TokenManager
	mail       mailer.Mailer
	templates  mailer.Templates
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewRealtorService(store RealtorStore, properties PropertyCascade, tokens *utils.TokenManager, mail mailer.Mailer, templates mailer.Templates, log logrus.FieldLogger) *RealtorService {
	return &RealtorService{
		store:      store,
		properties: properties,
		tokens:     tokens,
		mail:       mail,
		templates:  templates,
		log:        log.WithField("component", "realtor_account"),
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidCredentials() error {
	return apperror.Authentication("Invalid email or password", nil)
}

func invalidToken(cause error) error {
	return apperror.Authentication("Invalid or expired token", cause)
}

// Register creates an unverified account and mails a verification link.
func (s *RealtorService) Register(ctx context.Context, in models.RegisterInput) (*models.Realtor, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := models.Validate(in); err != nil {
		return nil, err
	}

	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Validation("Email already exists", "email")
	} else if !apperror.Is(err, apperror.KindNotFound) {
		return nil, s.internal("Failed to register realtor", err)
	}
	if _, err := s.store.FindByPhone(ctx, in.PhoneNumber); err == nil {
		return nil, apperror.Validation("Phone number already exists", "phone_number")
	} else if !apperror.Is(err, apperror.KindNotFound) {
		return nil, s.internal("Failed to register realtor", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, s.internal("Failed to register realtor", err)
	}

	now := s.now().UTC()
	realtor := &models.Realtor{
		ID:          primitive.NewObjectID(),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Password:    hash,
		AccountType: in.AccountType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	token, err := s.tokens.Verification(realtor.ID.Hex(), realtor.Email)
	if err != nil {
		return nil, s.internal("Failed to register realtor", err)
	}
	realtor.VerificationToken = token

	if err := s.store.Create(ctx, realtor); err != nil {
		if apperror.Is(err, apperror.KindValidation) {
			return nil, err
		}
		return nil, s.internal("Failed to register realtor", err)
	}

	if err := s.mail.Send(ctx, s.templates.Verification(realtor.Email, realtor.FirstName, token)); err != nil {
		s.log.WithError(err).WithField("realtor_id", realtor.ID.Hex()).Error("Failed to send verification email")
	}
	s.log.WithField("realtor_id", realtor.ID.Hex()).Info("Realtor registered")
	return realtor, nil
}

// VerifyEmail confirms the address behind token and starts a session.
func (s *RealtorService) VerifyEmail(ctx context.Context, token string) (string, *models.Realtor, error) {
	claims, err := s.tokens.Validate(token, utils.PurposeVerifyEmail)
	if err != nil {
		s.log.WithError(err).Warn("Rejected verification token")
		return "", nil, invalidToken(err)
	}
	realtor, err := s.lookup(ctx, claims.ID)
	if err != nil {
		return "", nil, err
	}
	if realtor.IsEmailVerified {
		return "", nil, apperror.Validation("Email already verified")
	}
	if realtor.VerificationToken != token {
		s.log.WithField("realtor_id", realtor.ID.Hex()).Warn("Verification token does not match stored token")
		return "", nil, invalidToken(nil)
	}

	session, err := s.tokens.Session(realtor.ID.Hex(), realtor.Email)
	if err != nil {
		return "", nil, s.internal("Failed to verify email", err)
	}
	if err := s.store.MarkVerified(ctx, realtor.ID, session); err != nil {
		return "", nil, s.internal("Failed to verify email", err)
	}
	realtor.IsEmailVerified = true
	realtor.VerificationToken = ""
	realtor.Auth.Token = session

	s.log.WithField("realtor_id", realtor.ID.Hex()).Info("Realtor email verified")
	return session, realtor, nil
}

// Login issues a new session token, invalidating any earlier one. Banned
// realtors may log in; unverified ones may not.
func (s *RealtorService) Login(ctx context.Context, in models.LoginInput) (string, *models.Realtor, error) {
	in.Email = normalizeEmail(in.Email)
	if err := models.Validate(in); err != nil {
		return "", nil, err
	}

	realtor, err := s.store.FindByEmail(ctx, in.Email)
	if apperror.Is(err, apperror.KindNotFound) {
		s.log.WithField("email", in.Email).Warn("Login for unknown email")
		return "", nil, invalidCredentials()
	}
	if err != nil {
		return "", nil, s.internal("Failed to log in", err)
	}
	if !utils.CheckPasswordHash(in.Password, realtor.Password) {
		s.log.WithField("realtor_id", realtor.ID.Hex()).Warn("Login with wrong password")
		return "", nil, invalidCredentials()
	}
	if !realtor.IsEmailVerified {
		return "", nil, apperror.Authentication("Please verify your email before logging in", nil)
	}

	token, err := s.tokens.Session(realtor.ID.Hex(), realtor.Email)
	if err != nil {
		return "", nil, s.internal("Failed to log in", err)
	}
	if err := s.store.SetSessionToken(ctx, realtor.ID, token); err != nil {
		return "", nil, s.internal("Failed to log in", err)
	}
	realtor.Auth.Token = token

	s.log.WithField("realtor_id", realtor.ID.Hex()).Info("Realtor logged in")
	return token, realtor, nil
}

func (s *RealtorService) ChangePassword(ctx context.Context, realtor *models.Realtor, in models.ChangePasswordInput) error {
	if err := models.Validate(in); err != nil {
		return err
	}
	if !utils.CheckPasswordHash(in.OldPassword, realtor.Password) {
		return apperror.Validation("Old password is incorrect", "oldPassword")
	}
	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return s.internal("Failed to change password", err)
	}
	if err := s.store.SetPassword(ctx, realtor.ID, hash); err != nil {
		return s.internal("Failed to change password", err)
	}
	s.log.WithField("realtor_id", realtor.ID.Hex()).Info("Realtor password changed")
	return nil
}

// ForgotPassword mails a reset link. Unknown emails succeed silently so the
// endpoint does not reveal which addresses are registered.
func (s *RealtorService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperror.Validation("Email is required", "email")
	}
	realtor, err := s.store.FindByEmail(ctx, email)
	if apperror.Is(err, apperror.KindNotFound) {
		s.log.WithField("email", email).Info("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return s.internal("Failed to request password reset", err)
	}

	token, err := s.tokens.PasswordReset(realtor.ID.Hex(), realtor.Email)
	if err != nil {
		return s.internal("Failed to request password reset", err)
	}
	if err := s.store.SetVerificationToken(ctx, realtor.ID, token); err != nil {
		return s.internal("Failed to request password reset", err)
	}
	if err := s.mail.Send(ctx, s.templates.PasswordReset(realtor.Email, realtor.FirstName, token)); err != nil {
		s.log.WithError(err).WithField("realtor_id", realtor.ID.Hex()).Error("Failed to send password reset email")
		return apperror.Internal("Failed to send password reset email", err)
	}
	return nil
}

// ResetPassword sets a new password when token matches the last reset
// token issued. Existing sessions end.
func (s *RealtorService) ResetPassword(ctx context.Context, in models.ResetPasswordInput) error {
	if err := models.Validate(in); err != nil {
		return err
	}
	claims, err := s.tokens.Validate(in.Token, utils.PurposeResetPassword)
	if err != nil {
		s.log.WithError(err).Warn("Rejected password reset token")
		return invalidToken(err)
	}
	realtor, err := s.lookup(ctx, claims.ID)
	if err != nil {
		return err
	}
	if realtor.VerificationToken != in.Token {
		s.log.WithField("realtor_id", realtor.ID.Hex()).Warn("Reset token does not match stored token")
		return invalidToken(nil)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return s.internal("Failed to reset password", err)
	}
	if err := s.store.SetPassword(ctx, realtor.ID, hash); err != nil {
		return s.internal("Failed to reset password", err)
	}
	if err := s.store.SetSessionToken(ctx, realtor.ID, ""); err != nil {
		return s.internal("Failed to reset password", err)
	}
	s.log.WithField("realtor_id", realtor.ID.Hex()).Info("Realtor password reset")
	return nil
}

func (s *RealtorService) EditProfile(ctx context.Context, realtor *models.Realtor, in models.ProfileInput) (*models.Realtor, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.PhoneNumber != nil && *in.PhoneNumber != realtor.PhoneNumber {
		if other, err := s.store.FindByPhone(ctx, *in.PhoneNumber); err == nil && other.ID != realtor.ID {
			return nil, apperror.Validation("Phone number already exists", "phone_number")
		}
	}
	updated, err := s.store.UpdateProfile(ctx, realtor.ID, in)
	if err != nil {
		if apperror.Is(err, apperror.KindValidation) || apperror.Is(err, apperror.KindNotFound) {
			return nil, err
		}
		return nil, s.internal("Failed to update profile", err)
	}
	return updated, nil
}

// DeleteProfile removes the account and every property it owns.
func (s *RealtorService) DeleteProfile(ctx context.Context, realtor *models.Realtor) error {
	removed, err := s.properties.DeleteAllByOwner(ctx, realtor.ID)
	if err != nil {
		return s.internal("Failed to delete profile", err)
	}
	if err := s.store.Delete(ctx, realtor.ID); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return err
		}
		return s.internal("Failed to delete profile", err)
	}
	s.log.WithFields(logrus.Fields{
		"realtor_id": realtor.ID.Hex(),
		"properties": removed,
	}).Info("Realtor profile deleted")
	return nil
}

func (s *RealtorService) lookup(ctx context.Context, hexID string) (*models.Realtor, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, invalidToken(err)
	}
	realtor, err := s.store.FindByID(ctx, id)
	if apperror.Is(err, apperror.KindNotFound) {
		return nil, invalidToken(err)
	}
	if err != nil {
		return nil, s.internal("Failed to load realtor", err)
	}
	return realtor, nil
}

func (s *RealtorService) internal(msg string, err error) error {
	s.log.WithError(err).Error(msg)
	return apperror.Internal(msg, err)
}
