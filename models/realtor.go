package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccountType string

const (
	AccountRealtor    AccountType = "realtor"
	AccountIndividual AccountType = "individual"
)

// SessionAuth holds the single active session token of an account. A new
// login overwrites it, which invalidates every earlier token.
type SessionAuth struct {
	Token string `bson:"token,omitempty" json:"-"`
}

type Realtor struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FirstName         string             `bson:"first_name" json:"first_name"`
	LastName          string             `bson:"last_name" json:"last_name"`
	Email             string             `bson:"email" json:"email"`
	PhoneNumber       string             `bson:"phone_number" json:"phone_number"`
	Password          string             `bson:"password" json:"-"`
	AccountType       AccountType        `bson:"account_type" json:"account_type"`
	Address           string             `bson:"address,omitempty" json:"address,omitempty"`
	Country           string             `bson:"country,omitempty" json:"country,omitempty"`
	State             string             `bson:"state,omitempty" json:"state,omitempty"`
	IsBanned          bool               `bson:"isBanned" json:"isBanned"`
	IsEmailVerified   bool               `bson:"is_email_verified" json:"is_email_verified"`
	VerificationToken string             `bson:"verificationToken,omitempty" json:"-"`
	Auth              SessionAuth        `bson:"auth" json:"-"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

type RegisterInput struct {
	FirstName   string      `json:"first_name" validate:"required"`
	LastName    string      `json:"last_name" validate:"required"`
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required,strong_password"`
	PhoneNumber string      `json:"phone_number" validate:"required,phone"`
	AccountType AccountType `json:"account_type" validate:"required,oneof=realtor individual"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,strong_password"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,strong_password"`
}

// ProfileInput carries the editable profile fields. Email, Password and
// AccountType are decoded only so that attempts to change them can be
// rejected.
type ProfileInput struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
	Country     *string `json:"country"`
	State       *string `json:"state"`

	Email       string `json:"email"`
	Password    string `json:"password"`
	AccountType string `json:"account_type"`
}
