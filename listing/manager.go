package listing

import (
	"context"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type PropertyStore interface {
	Insert(ctx context.Context, p *models.Property) error
	Get(ctx context.Context, id primitive.ObjectID, scope models.Scope) (*models.Property, error)
	Update(ctx context.Context, p *models.Property) error
	Delete(ctx context.Context, id primitive.ObjectID, scope models.Scope) (*models.Property, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Property, error)
	List(ctx context.Context, q models.PropertyQuery) ([]models.Property, int64, error)
	// ImagesReferenced reports whether a record other than except points at
	// any of ids.
	ImagesReferenced(ctx context.Context, ids []string, except primitive.ObjectID) (bool, error)
}

type AssetStore interface {
	Promote(ctx context.Context, publicID string) (models.ImageAsset, error)
	Delete(ctx context.Context, publicID string) error
}

// Invalidator drops cached public listings after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}

// Manager coordinates property records with the images they reference.
// Records only ever point at permanent images; temporary originals and
// images dropped by an edit are deleted after the record is saved.
type Manager struct {
	store  PropertyStore
	assets AssetStore
	cache  Invalidator
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewManager(store PropertyStore, assets AssetStore, cache Invalidator, log logrus.FieldLogger) *Manager {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &Manager{
		store:  store,
		assets: assets,
		cache:  cache,
		log:    log.WithField("component", "listing"),
		now:    time.Now,
	}
}

func bannedError() error {
	return apperror.Forbidden("Your account has been banned. You cannot perform this action")
}

// Create validates in, promotes its images and stores a pending record
// owned by owner.
func (m *Manager) Create(ctx context.Context, owner *models.Realtor, in models.PropertyInput) (*models.Property, error) {
	if owner.IsBanned {
		m.log.WithField("realtor_id", owner.ID.Hex()).Warn("Banned realtor attempted to create a property")
		return nil, bannedError()
	}
	in.Normalize()
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	if err := rejectPermanent(in); err != nil {
		return nil, err
	}
	galleryIDs := uniqueIDs(refIDs(in.GalleryImages))

	feature, err := m.promote(ctx, in.FeatureImage.PublicID)
	if err != nil {
		return nil, err
	}
	gallery, err := m.promoteAll(ctx, galleryIDs)
	if err != nil {
		return nil, err
	}
	if err := m.ensureUnclaimed(ctx, primitive.NilObjectID, feature, gallery); err != nil {
		return nil, err
	}

	now := m.now().UTC()
	property := &models.Property{
		OwnerID:       owner.ID,
		Name:          in.Name,
		Description:   in.Description,
		Address:       in.Address,
		Country:       in.Country,
		State:         in.State,
		City:          in.City,
		Details:       in.Details,
		FeatureImage:  feature,
		GalleryImages: gallery,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.Insert(ctx, property); err != nil {
		m.log.WithError(err).WithField("realtor_id", owner.ID.Hex()).Error("Failed to save property")
		return nil, apperror.Internal("Failed to create property", err)
	}

	originals := append([]string{in.FeatureImage.PublicID}, galleryIDs...)
	m.deleteTemporary(ctx, originals)
	m.cache.Invalidate(ctx)

	m.log.WithFields(logrus.Fields{
		"property_id": property.ID.Hex(),
		"realtor_id":  owner.ID.Hex(),
	}).Info("Property created")
	return property, nil
}

// Edit applies a partial update to a property owned by owner. Images that
// the update no longer references are deleted once the record is saved.
func (m *Manager) Edit(ctx context.Context, owner *models.Realtor, id primitive.ObjectID, upd models.PropertyUpdate) (*models.Property, error) {
	if owner.IsBanned {
		m.log.WithField("realtor_id", owner.ID.Hex()).Warn("Banned realtor attempted to edit a property")
		return nil, bannedError()
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	property, err := m.store.Get(ctx, id, models.OwnerScope(owner.ID))
	if err != nil {
		return nil, err
	}
	if err := rejectForeign(property, upd); err != nil {
		return nil, err
	}

	var stale, originals []string

	if upd.FeatureImage != nil && upd.FeatureImage.PublicID != property.FeatureImage.PublicID {
		feature, err := m.promote(ctx, upd.FeatureImage.PublicID)
		if err != nil {
			return nil, err
		}
		// Re-submitting the temporary id of the current image promotes to
		// the same permanent id, which must not be deleted.
		if feature.PublicID != property.FeatureImage.PublicID {
			stale = append(stale, property.FeatureImage.PublicID)
		}
		originals = append(originals, upd.FeatureImage.PublicID)
		property.FeatureImage = feature
	}

	if upd.GalleryImages != nil {
		gallery, dropped, promoted, err := m.diffGallery(ctx, property.GalleryImages, *upd.GalleryImages)
		if err != nil {
			return nil, err
		}
		stale = append(stale, dropped...)
		originals = append(originals, promoted...)
		property.GalleryImages = gallery
	}
	if upd.FeatureImage != nil || upd.GalleryImages != nil {
		if err := m.ensureUnclaimed(ctx, property.ID, property.FeatureImage, property.GalleryImages); err != nil {
			return nil, err
		}
	}

	applyFields(property, upd)
	property.UpdatedAt = m.now().UTC()
	stale = unreferenced(property, stale)

	if err := m.store.Update(ctx, property); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, err
		}
		m.log.WithError(err).WithField("property_id", id.Hex()).Error("Failed to update property")
		return nil, apperror.Internal("Failed to update property", err)
	}

	m.deleteTemporary(ctx, originals)
	m.deleteBestEffort(ctx, property.ID, stale)
	m.cache.Invalidate(ctx)

	m.log.WithFields(logrus.Fields{
		"property_id":  property.ID.Hex(),
		"stale_images": len(stale),
		"realtor_id":   owner.ID.Hex(),
	}).Info("Property updated")
	return property, nil
}

// diffGallery keeps submitted images already on the record, promotes the
// rest and reports the current images the submission left out.
func (m *Manager) diffGallery(ctx context.Context, current []models.ImageAsset, submitted []models.ImageRef) ([]models.ImageAsset, []string, []string, error) {
	existing := make(map[string]models.ImageAsset, len(current))
	for _, img := range current {
		existing[img.PublicID] = img
	}

	var toPromote []string
	seen := make(map[string]bool, len(submitted))
	for _, ref := range submitted {
		if _, ok := existing[ref.PublicID]; ok || seen[ref.PublicID] {
			continue
		}
		seen[ref.PublicID] = true
		toPromote = append(toPromote, ref.PublicID)
	}
	promoted, err := m.promoteAll(ctx, toPromote)
	if err != nil {
		return nil, nil, nil, err
	}
	byOriginal := make(map[string]models.ImageAsset, len(toPromote))
	for i, id := range toPromote {
		byOriginal[id] = promoted[i]
	}

	gallery := make([]models.ImageAsset, 0, len(submitted))
	kept := make(map[string]bool, len(submitted))
	for _, ref := range submitted {
		asset, ok := existing[ref.PublicID]
		if !ok {
			asset = byOriginal[ref.PublicID]
		}
		if kept[asset.PublicID] {
			continue
		}
		kept[asset.PublicID] = true
		gallery = append(gallery, asset)
	}

	var dropped []string
	for _, img := range current {
		if !kept[img.PublicID] {
			dropped = append(dropped, img.PublicID)
		}
	}
	return gallery, dropped, toPromote, nil
}

// rejectPermanent limits a new record to fresh uploads. A permanent image
// already belongs to the record that points at it.
func rejectPermanent(in models.PropertyInput) error {
	var invalid []string
	if models.IsPermanent(in.FeatureImage.PublicID) {
		invalid = append(invalid, "feature_image.public_id")
	}
	for _, ref := range in.GalleryImages {
		if models.IsPermanent(ref.PublicID) {
			invalid = append(invalid, "property_images.public_id")
			break
		}
	}
	if len(invalid) > 0 {
		return apperror.Validation("Only newly uploaded images can be attached to a new property", invalid...)
	}
	return nil
}

// rejectForeign allows permanent images in an update only when p already
// holds them.
func rejectForeign(p *models.Property, upd models.PropertyUpdate) error {
	held := make(map[string]bool)
	for _, id := range p.ImageIDs() {
		held[id] = true
	}
	var invalid []string
	if upd.FeatureImage != nil && models.IsPermanent(upd.FeatureImage.PublicID) && !held[upd.FeatureImage.PublicID] {
		invalid = append(invalid, "feature_image.public_id")
	}
	if upd.GalleryImages != nil {
		for _, ref := range *upd.GalleryImages {
			if models.IsPermanent(ref.PublicID) && !held[ref.PublicID] {
				invalid = append(invalid, "property_images.public_id")
				break
			}
		}
	}
	if len(invalid) > 0 {
		return apperror.Validation("Images must be new uploads or already belong to this property", invalid...)
	}
	return nil
}

// ensureUnclaimed fails when another record already points at one of the
// promoted images. Promoting a temporary id whose permanent twin exists
// succeeds without moving anything, so the twin may not be ours.
func (m *Manager) ensureUnclaimed(ctx context.Context, self primitive.ObjectID, feature models.ImageAsset, gallery []models.ImageAsset) error {
	check := []struct {
		field string
		ids   []string
	}{
		{"feature_image.public_id", []string{feature.PublicID}},
		{"property_images.public_id", assetIDs(gallery)},
	}
	for _, c := range check {
		if len(c.ids) == 0 {
			continue
		}
		taken, err := m.store.ImagesReferenced(ctx, c.ids, self)
		if err != nil {
			m.log.WithError(err).Error("Failed to check image references")
			return apperror.Internal("Failed to save property", err)
		}
		if taken {
			m.log.WithField("property_id", self.Hex()).Warn("Rejected image that belongs to another property")
			return apperror.Validation("Image belongs to another property", c.field)
		}
	}
	return nil
}

// unreferenced filters out ids the record still points at, such as an old
// feature image moved into the gallery.
func unreferenced(p *models.Property, ids []string) []string {
	refs := make(map[string]bool)
	for _, id := range p.ImageIDs() {
		refs[id] = true
	}
	out := ids[:0]
	for _, id := range ids {
		if id != "" && !refs[id] {
			out = append(out, id)
		}
	}
	return out
}

func applyFields(p *models.Property, upd models.PropertyUpdate) {
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Address != nil {
		p.Address = *upd.Address
	}
	if upd.Country != nil {
		p.Country = *upd.Country
	}
	if upd.State != nil {
		p.State = *upd.State
	}
	if upd.City != nil {
		p.City = *upd.City
	}
	if upd.Details != nil {
		p.Details = *upd.Details
	}
}

// DeleteOwned removes a property owned by owner together with its images.
func (m *Manager) DeleteOwned(ctx context.Context, owner *models.Realtor, id primitive.ObjectID) error {
	if owner.IsBanned {
		m.log.WithField("realtor_id", owner.ID.Hex()).Warn("Banned realtor attempted to delete a property")
		return bannedError()
	}
	return m.delete(ctx, id, models.OwnerScope(owner.ID))
}

// DeleteAny removes any property regardless of owner.
func (m *Manager) DeleteAny(ctx context.Context, id primitive.ObjectID) error {
	return m.delete(ctx, id, models.Scope{})
}

func (m *Manager) delete(ctx context.Context, id primitive.ObjectID, scope models.Scope) error {
	deleted, err := m.store.Delete(ctx, id, scope)
	if err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			m.log.WithError(err).WithField("property_id", id.Hex()).Error("Failed to delete property")
		}
		return err
	}
	m.deleteBestEffort(ctx, deleted.ID, deleted.ImageIDs())
	m.cache.Invalidate(ctx)
	m.log.WithField("property_id", id.Hex()).Info("Property deleted")
	return nil
}

// DeleteAllByOwner removes every property of a realtor, returning how many
// records were deleted.
func (m *Manager) DeleteAllByOwner(ctx context.Context, ownerID primitive.ObjectID) (int, error) {
	properties, err := m.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	var deleted int
	for _, p := range properties {
		err := m.delete(ctx, p.ID, models.OwnerScope(ownerID))
		if apperror.Is(err, apperror.KindNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (m *Manager) Get(ctx context.Context, id primitive.ObjectID, scope models.Scope) (*models.Property, error) {
	return m.store.Get(ctx, id, scope)
}

func (m *Manager) List(ctx context.Context, q models.PropertyQuery) ([]models.Property, models.PageMetadata, error) {
	properties, total, err := m.store.List(ctx, q)
	if err != nil {
		m.log.WithError(err).Error("Failed to list properties")
		return nil, models.PageMetadata{}, apperror.Internal("Failed to fetch properties", err)
	}
	return properties, models.NewPageMetadata(total, q), nil
}

// uniqueIDs drops repeated ids, keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (m *Manager) promote(ctx context.Context, publicID string) (models.ImageAsset, error) {
	asset, err := m.assets.Promote(ctx, publicID)
	if err != nil {
		m.log.WithError(err).WithField("public_id", publicID).Error("Image promotion failed, aborting")
		if apperror.Is(err, apperror.KindAssetPromotion) {
			return models.ImageAsset{}, err
		}
		return models.ImageAsset{}, apperror.AssetPromotion(publicID, err)
	}
	return asset, nil
}

// promoteAll promotes ids concurrently. The result keeps the input order.
func (m *Manager) promoteAll(ctx context.Context, ids []string) ([]models.ImageAsset, error) {
	assets := make([]models.ImageAsset, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			asset, err := m.promote(gctx, id)
			if err != nil {
				return err
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}

// deleteTemporary removes the temporary originals of promoted images. The
// promotion usually moved them already, so this is mostly a no-op.
func (m *Manager) deleteTemporary(ctx context.Context, ids []string) {
	var temporary []string
	for _, id := range ids {
		if models.IsTemporary(id) {
			temporary = append(temporary, id)
		}
	}
	m.deleteBestEffort(ctx, primitive.NilObjectID, temporary)
}

// deleteBestEffort deletes images concurrently. Failures are logged only;
// the record is already consistent and the sweep reclaims temporaries.
func (m *Manager) deleteBestEffort(ctx context.Context, propertyID primitive.ObjectID, ids []string) {
	if len(ids) == 0 {
		return
	}
	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := m.assets.Delete(ctx, id); err != nil {
				m.log.WithError(err).WithFields(logrus.Fields{
					"property_id": propertyID.Hex(),
					"public_id":   id,
				}).Warn("Failed to delete image after save")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func refIDs(refs []models.ImageRef) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.PublicID)
	}
	return ids
}

func assetIDs(assets []models.ImageAsset) []string {
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.PublicID)
	}
	return ids
}
