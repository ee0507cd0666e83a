package models

import (
	"path"
	"strings"
	"time"
)

type Namespace string

const (
	NamespaceTemporary Namespace = "temporary"
	NamespacePermanent Namespace = "permanent"
)

const (
	TemporaryPrefix = "temporary_properties/"
	PermanentPrefix = "permanent_properties/"
)

// ImageAsset is a blob owned by the object store. Property records only
// reference assets, they never own them.
type ImageAsset struct {
	PublicID  string    `bson:"public_id" json:"public_id"`
	URL       string    `bson:"url" json:"url"`
	Namespace Namespace `bson:"namespace" json:"namespace"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ImageRef is what clients send back after an upload.
type ImageRef struct {
	PublicID string `json:"public_id" validate:"required,image_id"`
	URL      string `json:"url,omitempty"`
}

// NamespaceOf derives the namespace from the identifier prefix. The second
// result is false unless the identifier is a known prefix followed by exactly
// one clean path element, so it can never name a key outside its namespace.
func NamespaceOf(publicID string) (Namespace, bool) {
	switch {
	case wellFormed(publicID, TemporaryPrefix):
		return NamespaceTemporary, true
	case wellFormed(publicID, PermanentPrefix):
		return NamespacePermanent, true
	}
	return "", false
}

func wellFormed(publicID, prefix string) bool {
	if !strings.HasPrefix(publicID, prefix) || strings.ContainsAny(publicID, "\\\x00") {
		return false
	}
	base := path.Base(publicID)
	if base == "." || base == ".." {
		return false
	}
	return path.Clean(publicID) == publicID && path.Dir(publicID)+"/" == prefix
}

func IsPermanent(publicID string) bool {
	ns, ok := NamespaceOf(publicID)
	return ok && ns == NamespacePermanent
}

func IsTemporary(publicID string) bool {
	ns, ok := NamespaceOf(publicID)
	return ok && ns == NamespaceTemporary
}
