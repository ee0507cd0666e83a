package moderation

import (
	"context"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PropertyStatusStore interface {
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.ModerationStatus) (*models.Property, error)
}

type RealtorStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Realtor, error)
	ToggleBan(ctx context.Context, id primitive.ObjectID) (*models.Realtor, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Listings removes properties together with their images.
type Listings interface {
	DeleteAny(ctx context.Context, id primitive.ObjectID) error
	DeleteAllByOwner(ctx context.Context, ownerID primitive.ObjectID) (int, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	properties PropertyStatusStore
	realtors   RealtorStore
	listings   Listings
	cache      Invalidator
	log        logrus.FieldLogger
}

func NewService(properties PropertyStatusStore, realtors RealtorStore, listings Listings, cache Invalidator, log logrus.FieldLogger) *Service {
	return &Service{
		properties: properties,
		realtors:   realtors,
		listings:   listings,
		cache:      cache,
		log:        log.WithField("component", "moderation"),
	}
}

// PublicScope is what anonymous users may see: approved properties of
// realtors that are not banned.
func PublicScope() models.Scope {
	approved := models.StatusApproved
	return models.Scope{Status: &approved, ExcludeBannedOwners: true}
}

// PublicQuery replaces whatever scope q carries with PublicScope.
func PublicQuery(q models.PropertyQuery) models.PropertyQuery {
	q.Scope = PublicScope()
	return q
}

// CanModerate returns a forbidden error unless admin is a super admin.
func CanModerate(admin *models.Admin) error {
	if !admin.IsSuperAdmin() {
		return apperror.Forbidden("Only a super admin can perform this action")
	}
	return nil
}

func (s *Service) deny(admin *models.Admin, action string) error {
	if err := CanModerate(admin); err != nil {
		entry := s.log.WithField("action", action)
		if admin != nil {
			entry = entry.WithFields(logrus.Fields{"admin_id": admin.ID.Hex(), "role": admin.Role})
		}
		entry.Warn("Moderation action denied")
		return err
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// ChangePropertyStatus moves a property to any moderation status.
func (s *Service) ChangePropertyStatus(ctx context.Context, admin *models.Admin, id primitive.ObjectID, status models.ModerationStatus) (*models.Property, error) {
	if err := s.deny(admin, "change_property_status"); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperror.Validation("Status must be one of pending, approved or rejected", "status")
	}

	property, err := s.properties.SetStatus(ctx, id, status)
	if err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			s.log.WithError(err).WithField("property_id", id.Hex()).Error("Failed to change property status")
		}
		return nil, err
	}
	s.invalidate(ctx)

	s.log.WithFields(logrus.Fields{
		"property_id": id.Hex(),
		"status":      status,
		"admin_id":    admin.ID.Hex(),
	}).Info("Property status changed")
	return property, nil
}

// ToggleRealtorBan bans an active realtor or lifts an existing ban.
func (s *Service) ToggleRealtorBan(ctx context.Context, admin *models.Admin, id primitive.ObjectID) (*models.Realtor, error) {
	if err := s.deny(admin, "toggle_realtor_ban"); err != nil {
		return nil, err
	}
	realtor, err := s.realtors.ToggleBan(ctx, id)
	if err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			s.log.WithError(err).WithField("realtor_id", id.Hex()).Error("Failed to toggle realtor ban")
		}
		return nil, err
	}
	s.invalidate(ctx)

	s.log.WithFields(logrus.Fields{
		"realtor_id": id.Hex(),
		"banned":     realtor.IsBanned,
		"admin_id":   admin.ID.Hex(),
	}).Info("Realtor ban toggled")
	return realtor, nil
}

func (s *Service) DeleteProperty(ctx context.Context, admin *models.Admin, id primitive.ObjectID) error {
	if err := s.deny(admin, "delete_property"); err != nil {
		return err
	}
	return s.listings.DeleteAny(ctx, id)
}

// DeleteRealtor removes a realtor and every property they own.
func (s *Service) DeleteRealtor(ctx context.Context, admin *models.Admin, id primitive.ObjectID) error {
	if err := s.deny(admin, "delete_realtor"); err != nil {
		return err
	}
	if _, err := s.realtors.FindByID(ctx, id); err != nil {
		return err
	}

	removed, err := s.listings.DeleteAllByOwner(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("realtor_id", id.Hex()).Error("Failed to delete realtor properties")
		return apperror.Internal("Failed to delete realtor", err)
	}
	if err := s.realtors.Delete(ctx, id); err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			s.log.WithError(err).WithField("realtor_id", id.Hex()).Error("Failed to delete realtor")
		}
		return err
	}

	s.log.WithFields(logrus.Fields{
		"realtor_id": id.Hex(),
		"properties": removed,
		"admin_id":   admin.ID.Hex(),
	}).Info("Realtor deleted")
	return nil
}
