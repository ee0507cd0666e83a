package models

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage bounds the page number so the skip offset stays small.
	MaxPage         = 100000
)

// Scope restricts which records a lookup may see.
type Scope struct {
	OwnerID             *primitive.ObjectID
	Status              *ModerationStatus
	ExcludeBannedOwners bool
}

func OwnerScope(ownerID primitive.ObjectID) Scope {
	return Scope{OwnerID: &ownerID}
}

type PropertyQuery struct {
	Scope
	Text         string
	State        string
	Country      string
	PropertyType string
	Page         int
	Limit        int
}

func (q PropertyQuery) Skip() int64 {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	return int64(q.Page-1) * int64(q.Limit)
}

// ParsePropertyQuery reads page, limit, q, state, country and property_type.
// Bad or missing pagination values fall back to defaults.
func ParsePropertyQuery(values url.Values) PropertyQuery {
	q := PropertyQuery{
		Text:         strings.TrimSpace(values.Get("q")),
		State:        strings.TrimSpace(values.Get("state")),
		Country:      strings.TrimSpace(values.Get("country")),
		PropertyType: strings.TrimSpace(values.Get("property_type")),
		Page:         1,
		Limit:        DefaultPageSize,
	}
	if q.PropertyType == "" {
		q.PropertyType = strings.TrimSpace(values.Get("propertyType"))
	}
	// Atoi saturates on overflow, so out of range pages land on MaxPage.
	if p, err := strconv.Atoi(values.Get("page")); (err == nil || errors.Is(err, strconv.ErrRange)) && p > 0 {
		q.Page = min(p, MaxPage)
	}
	if l, err := strconv.Atoi(values.Get("limit")); err == nil && l > 0 {
		q.Limit = l
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

type PageMetadata struct {
	TotalProperties int64 `json:"totalProperties"`
	TotalPages      int64 `json:"totalPages"`
	CurrentPage     int   `json:"currentPage"`
}

func NewPageMetadata(total int64, q PropertyQuery) PageMetadata {
	pages := int64(0)
	if q.Limit > 0 {
		pages = (total + int64(q.Limit) - 1) / int64(q.Limit)
	}
	return PageMetadata{TotalProperties: total, TotalPages: pages, CurrentPage: q.Page}
}
