package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

func (s ModerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// PropertyDetails holds the structured listing facts. Numeric fields are
// optional; a nil pointer means the realtor did not provide the value.
type PropertyDetails struct {
	Type    string   `bson:"property_type,omitempty" json:"property_type,omitempty"`
	Status  string   `bson:"property_status,omitempty" json:"property_status,omitempty"`
	Price   *float64 `bson:"property_price,omitempty" json:"property_price,omitempty" validate:"omitempty,gte=0"`
	Area    *float64 `bson:"property_area,omitempty" json:"property_area,omitempty" validate:"omitempty,gte=0"`
	Beds    *int     `bson:"property_beds,omitempty" json:"property_beds,omitempty" validate:"omitempty,gte=0"`
	Baths   *int     `bson:"property_baths,omitempty" json:"property_baths,omitempty" validate:"omitempty,gte=0"`
	Toilets *int     `bson:"property_toilets,omitempty" json:"property_toilets,omitempty" validate:"omitempty,gte=0"`
}

type OwnerSummary struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	FirstName   string             `bson:"first_name" json:"first_name"`
	LastName    string             `bson:"last_name" json:"last_name"`
	PhoneNumber string             `bson:"phone_number" json:"phone_number"`
}

type Property struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OwnerID       primitive.ObjectID `bson:"user" json:"user"`
	Name          string             `bson:"property_name" json:"property_name"`
	Description   string             `bson:"property_description" json:"property_description"`
	Address       string             `bson:"address,omitempty" json:"address,omitempty"`
	Country       string             `bson:"country" json:"country"`
	State         string             `bson:"state" json:"state"`
	City          string             `bson:"city,omitempty" json:"city,omitempty"`
	Details       PropertyDetails    `bson:"property_details" json:"property_details"`
	FeatureImage  ImageAsset         `bson:"feature_image" json:"feature_image"`
	GalleryImages []ImageAsset       `bson:"property_images" json:"property_images"`
	Status        ModerationStatus   `bson:"status" json:"status"`
	Owner         *OwnerSummary      `bson:"owner,omitempty" json:"owner,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// ImageIDs lists every asset the record references, feature image first.
func (p *Property) ImageIDs() []string {
	ids := make([]string, 0, len(p.GalleryImages)+1)
	if p.FeatureImage.PublicID != "" {
		ids = append(ids, p.FeatureImage.PublicID)
	}
	for _, img := range p.GalleryImages {
		if img.PublicID != "" {
			ids = append(ids, img.PublicID)
		}
	}
	return ids
}

// PropertyInput is the create payload.
type PropertyInput struct {
	Name          string          `json:"property_name" validate:"required"`
	Description   string          `json:"property_description" validate:"required"`
	Address       string          `json:"address"`
	Country       string          `json:"country" validate:"required"`
	State         string          `json:"state" validate:"required"`
	City          string          `json:"city"`
	Details       PropertyDetails `json:"property_details"`
	FeatureImage  *ImageRef       `json:"feature_image" validate:"required"`
	GalleryImages []ImageRef      `json:"property_images" validate:"max=10,dive"`
}

// PropertyUpdate is the edit payload. Nil fields are left unchanged.
type PropertyUpdate struct {
	Name          *string          `json:"property_name"`
	Description   *string          `json:"property_description"`
	Address       *string          `json:"address"`
	Country       *string          `json:"country"`
	State         *string          `json:"state"`
	City          *string          `json:"city"`
	Details       *PropertyDetails `json:"property_details"`
	FeatureImage  *ImageRef        `json:"feature_image"`
	GalleryImages *[]ImageRef      `json:"property_images"`
}
