package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminRole string

const (
	RoleSuperAdmin AdminRole = "superAdmin"
	RoleAdmin      AdminRole = "admin"
	RoleSupport    AdminRole = "support"
)

func (r AdminRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleSupport:
		return true
	}
	return false
}

type Admin struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FirstName string             `bson:"first_name" json:"first_name"`
	LastName  string             `bson:"last_name" json:"last_name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Role      AdminRole          `bson:"role" json:"role"`
	Token     string             `bson:"token,omitempty" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func (a *Admin) IsSuperAdmin() bool {
	return a != nil && a.Role == RoleSuperAdmin
}

type AdminInput struct {
	FirstName string    `json:"first_name" validate:"required"`
	LastName  string    `json:"last_name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Role      AdminRole `json:"role" validate:"required,oneof=superAdmin admin support"`
}

type AdminUpdate struct {
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Role      *AdminRole `json:"role"`
	Email     string     `json:"email"`
}
