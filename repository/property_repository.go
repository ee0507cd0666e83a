package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PropertyRepository struct {
	coll             *mongo.Collection
	realtorsCollName string
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{
		coll:             db.Collection(PropertiesCollection),
		realtorsCollName: RealtorsCollection,
	}
}

func (r *PropertyRepository) Insert(ctx context.Context, p *models.Property) error {
	doc := *p
	doc.Owner = nil
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	p.ID = doc.ID
	return nil
}

// Get loads one record visible in scope, with owner details joined.
func (r *PropertyRepository) Get(ctx context.Context, id primitive.ObjectID, scope models.Scope) (*models.Property, error) {
	match := ScopeFilter(scope)
	match["_id"] = id

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	pipeline = append(pipeline, r.ownerStages(scope)...)
	pipeline = append(pipeline, bson.D{{Key: "$limit", Value: 1}})

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("find property %s: %w", id.Hex(), err)
	}
	defer cursor.Close(ctx)

	var properties []models.Property
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("decode property %s: %w", id.Hex(), err)
	}
	if len(properties) == 0 {
		return nil, apperror.NotFound("Property not found")
	}
	return &properties[0], nil
}

// Update writes the editable fields of p. Status, owner and creation time
// are never touched here so a concurrent moderation change survives.
func (r *PropertyRepository) Update(ctx context.Context, p *models.Property) error {
	filter := bson.M{"_id": p.ID, "user": p.OwnerID}
	update := bson.M{"$set": bson.M{
		"property_name":        p.Name,
		"property_description": p.Description,
		"address":              p.Address,
		"country":              p.Country,
		"state":                p.State,
		"city":                 p.City,
		"property_details":     p.Details,
		"feature_image":        p.FeatureImage,
		"property_images":      p.GalleryImages,
		"updated_at":           p.UpdatedAt,
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update property %s: %w", p.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("Property not found")
	}
	return nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id primitive.ObjectID, scope models.Scope) (*models.Property, error) {
	filter := ScopeFilter(scope)
	filter["_id"] = id

	var deleted models.Property
	err := r.coll.FindOneAndDelete(ctx, filter).Decode(&deleted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("Property not found")
	}
	if err != nil {
		return nil, fmt.Errorf("delete property %s: %w", id.Hex(), err)
	}
	return &deleted, nil
}

func (r *PropertyRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Property, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user": ownerID})
	if err != nil {
		return nil, fmt.Errorf("list properties of %s: %w", ownerID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var properties []models.Property
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("decode properties of %s: %w", ownerID.Hex(), err)
	}
	return properties, nil
}

// ImagesReferenced reports whether a record other than except points at any
// of ids, as its feature image or in its gallery.
func (r *PropertyRepository) ImagesReferenced(ctx context.Context, ids []string, except primitive.ObjectID) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	n, err := r.coll.CountDocuments(ctx, ImageRefFilter(ids, except), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count image references: %w", err)
	}
	return n > 0, nil
}

func (r *PropertyRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.ModerationStatus) (*models.Property, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}

	var updated models.Property
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("Property not found")
	}
	if err != nil {
		return nil, fmt.Errorf("set status of property %s: %w", id.Hex(), err)
	}
	return &updated, nil
}

type listResult struct {
	Items []models.Property `bson:"items"`
	Total []struct {
		Count int64 `bson:"count"`
	} `bson:"total"`
}

// List returns one page of records matching q together with the total
// number of matches.
func (r *PropertyRepository) List(ctx context.Context, q models.PropertyQuery) ([]models.Property, int64, error) {
	cursor, err := r.coll.Aggregate(ctx, r.ListPipeline(q))
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	defer cursor.Close(ctx)

	var results []listResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, fmt.Errorf("decode properties: %w", err)
	}
	if len(results) == 0 {
		return []models.Property{}, 0, nil
	}
	var total int64
	if len(results[0].Total) > 0 {
		total = results[0].Total[0].Count
	}
	items := results[0].Items
	if items == nil {
		items = []models.Property{}
	}
	return items, total, nil
}

// ListPipeline builds the aggregation behind List. The $text stage, when
// present, has to be part of the first $match.
func (r *PropertyRepository) ListPipeline(q models.PropertyQuery) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: QueryFilter(q)}}}
	if q.Text == "" {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}})
	} else {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "created_at", Value: -1},
		}}})
	}
	pipeline = append(pipeline, r.ownerStages(q.Scope)...)
	pipeline = append(pipeline, bson.D{{Key: "$facet", Value: bson.M{
		"items": bson.A{
			bson.M{"$skip": q.Skip()},
			bson.M{"$limit": q.Limit},
		},
		"total": bson.A{
			bson.M{"$count": "count"},
		},
	}}})
	return pipeline
}

// ownerStages joins the owning realtor, mirroring a populate of
// first_name, last_name and phone_number.
func (r *PropertyRepository) ownerStages(scope models.Scope) mongo.Pipeline {
	stages := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         r.realtorsCollName,
			"localField":   "user",
			"foreignField": "_id",
			"as":           "owner",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$owner", "preserveNullAndEmptyArrays": true}}},
	}
	if scope.ExcludeBannedOwners {
		stages = append(stages, bson.D{{Key: "$match", Value: bson.M{"owner.isBanned": bson.M{"$ne": true}}}})
	}
	stages = append(stages, bson.D{{Key: "$project", Value: bson.M{
		"owner.password":          0,
		"owner.email":             0,
		"owner.auth":              0,
		"owner.verificationToken": 0,
		"owner.account_type":      0,
		"owner.address":           0,
		"owner.country":           0,
		"owner.state":             0,
		"owner.isBanned":          0,
		"owner.is_email_verified": 0,
		"owner.created_at":        0,
		"owner.updated_at":        0,
	}}})
	return stages
}

func ScopeFilter(scope models.Scope) bson.M {
	filter := bson.M{}
	if scope.OwnerID != nil {
		filter["user"] = *scope.OwnerID
	}
	if scope.Status != nil {
		filter["status"] = *scope.Status
	}
	return filter
}

func ImageRefFilter(ids []string, except primitive.ObjectID) bson.M {
	return bson.M{
		"_id": bson.M{"$ne": except},
		"$or": bson.A{
			bson.M{"feature_image.public_id": bson.M{"$in": ids}},
			bson.M{"property_images.public_id": bson.M{"$in": ids}},
		},
	}
}

func QueryFilter(q models.PropertyQuery) bson.M {
	filter := ScopeFilter(q.Scope)
	if q.Text != "" {
		filter["$text"] = bson.M{"$search": q.Text, "$language": "en"}
	}
	if q.State != "" {
		filter["state"] = q.State
	}
	if q.Country != "" {
		filter["country"] = q.Country
	}
	if q.PropertyType != "" {
		filter["property_details.property_type"] = q.PropertyType
	}
	return filter
}
