package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/metrics"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Gateway moves property images between the temporary and permanent
// namespaces of a Backend.
type Gateway struct {
	backend Backend
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewGateway(backend Backend, log logrus.FieldLogger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		backend: backend,
		log:     log.WithField("component", "object_store"),
		metrics: m,
		now:     time.Now,
	}
}

func (g *Gateway) asset(key string, ns models.Namespace) models.ImageAsset {
	return models.ImageAsset{
		PublicID:  key,
		URL:       g.backend.URL(key),
		Namespace: ns,
		CreatedAt: g.now().UTC(),
	}
}

// Upload stores data under a fresh identifier in the temporary namespace.
func (g *Gateway) Upload(ctx context.Context, data io.Reader, ext string) (models.ImageAsset, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	key := models.TemporaryPrefix + uuid.NewString() + ext
	err := g.backend.Put(ctx, key, data)
	g.metrics.ObserveImageOperation("upload", err)
	if err != nil {
		g.log.WithError(err).WithField("public_id", key).Error("Image upload failed")
		return models.ImageAsset{}, apperror.Upload(err)
	}
	return g.asset(key, models.NamespaceTemporary), nil
}

// Promote moves a temporary object to the permanent namespace, keeping its
// base name. Promoting an already permanent identifier, or repeating a
// promotion that already happened, succeeds with the permanent identifier.
func (g *Gateway) Promote(ctx context.Context, publicID string) (models.ImageAsset, error) {
	ns, ok := models.NamespaceOf(publicID)
	if !ok {
		return models.ImageAsset{}, apperror.NotFound(fmt.Sprintf("image %s not found", publicID))
	}
	permanentID := models.PermanentPrefix + path.Base(publicID)

	if ns == models.NamespacePermanent {
		exists, err := g.backend.Exists(ctx, permanentID)
		if err != nil {
			g.metrics.ObserveImageOperation("promote", err)
			return models.ImageAsset{}, apperror.AssetPromotion(publicID, err)
		}
		if !exists {
			return models.ImageAsset{}, apperror.NotFound(fmt.Sprintf("image %s not found", publicID))
		}
		return g.asset(permanentID, models.NamespacePermanent), nil
	}

	err := g.backend.Rename(ctx, publicID, permanentID)
	if errors.Is(err, ErrObjectNotFound) {
		exists, existsErr := g.backend.Exists(ctx, permanentID)
		if existsErr != nil {
			g.metrics.ObserveImageOperation("promote", existsErr)
			return models.ImageAsset{}, apperror.AssetPromotion(publicID, existsErr)
		}
		if !exists {
			return models.ImageAsset{}, apperror.NotFound(fmt.Sprintf("image %s not found", publicID))
		}
		g.log.WithField("public_id", publicID).Debug("Image already promoted")
		return g.asset(permanentID, models.NamespacePermanent), nil
	}
	g.metrics.ObserveImageOperation("promote", err)
	if err != nil {
		g.log.WithError(err).WithField("public_id", publicID).Error("Image promotion failed")
		return models.ImageAsset{}, apperror.AssetPromotion(publicID, err)
	}
	return g.asset(permanentID, models.NamespacePermanent), nil
}

// Delete removes an object. A missing object is not an error.
func (g *Gateway) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	if _, ok := models.NamespaceOf(publicID); !ok {
		return fmt.Errorf("delete image %q: %w", publicID, ErrInvalidKey)
	}
	err := g.backend.Delete(ctx, publicID)
	if errors.Is(err, ErrObjectNotFound) {
		g.log.WithField("public_id", publicID).Debug("Image already absent, nothing to delete")
		return nil
	}
	g.metrics.ObserveImageOperation("delete", err)
	if err != nil {
		g.log.WithError(err).WithField("public_id", publicID).Error("Image deletion failed")
		return fmt.Errorf("delete image %s: %w", publicID, err)
	}
	return nil
}

type SweepResult struct {
	Scanned  int           `json:"scanned"`
	Deleted  int           `json:"deleted"`
	Failed   int           `json:"failed"`
	Cutoff   time.Time     `json:"cutoff"`
	Duration time.Duration `json:"duration"`
}

// SweepStaleTemporary deletes temporary objects last modified strictly
// before now-maxAge. Failures on single objects are logged and counted.
func (g *Gateway) SweepStaleTemporary(ctx context.Context, maxAge time.Duration) (SweepResult, error) {
	start := g.now()
	result := SweepResult{Cutoff: start.Add(-maxAge)}

	objects, err := g.backend.List(ctx, models.TemporaryPrefix)
	if err != nil {
		return result, fmt.Errorf("list temporary images: %w", err)
	}
	result.Scanned = len(objects)

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			g.log.WithError(err).Warn("Sweep cancelled")
			break
		}
		if !obj.ModTime.Before(result.Cutoff) {
			continue
		}
		err := g.backend.Delete(ctx, obj.Key)
		if err != nil && !errors.Is(err, ErrObjectNotFound) {
			g.log.WithError(err).WithField("public_id", obj.Key).Error("Sweep failed to delete temporary image")
			result.Failed++
			continue
		}
		result.Deleted++
	}

	result.Duration = g.now().Sub(start)
	g.metrics.ObserveSweep(result.Deleted, result.Failed, result.Duration)
	g.log.WithFields(logrus.Fields{
		"scanned": result.Scanned,
		"deleted": result.Deleted,
		"failed":  result.Failed,
	}).Info("Temporary image sweep completed")
	return result, nil
}

func (g *Gateway) Close() error {
	return g.backend.Close()
}
