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

func realtorNotFound() error {
	return apperror.NotFound("Realtor not found")
}

type RealtorRepository struct {
	coll *mongo.Collection
}

func NewRealtorRepository(db *mongo.Database) *RealtorRepository {
	return &RealtorRepository{coll: db.Collection(RealtorsCollection)}
}

func (r *RealtorRepository) Create(ctx context.Context, realtor *models.Realtor) error {
	if realtor.ID.IsZero() {
		realtor.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, realtor); err != nil {
		if isDuplicateKey(err) {
			return apperror.Validation("Email or phone number already exists", "email", "phone_number")
		}
		return fmt.Errorf("insert realtor: %w", err)
	}
	return nil
}

func (r *RealtorRepository) findOne(ctx context.Context, filter bson.M) (*models.Realtor, error) {
	var realtor models.Realtor
	err := r.coll.FindOne(ctx, filter).Decode(&realtor)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, realtorNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find realtor: %w", err)
	}
	return &realtor, nil
}

func (r *RealtorRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Realtor, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RealtorRepository) FindByEmail(ctx context.Context, email string) (*models.Realtor, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *RealtorRepository) FindByPhone(ctx context.Context, phone string) (*models.Realtor, error) {
	return r.findOne(ctx, bson.M{"phone_number": phone})
}

// FindByIdentity looks an account up by the id and email carried in a token.
func (r *RealtorRepository) FindByIdentity(ctx context.Context, id primitive.ObjectID, email string) (*models.Realtor, error) {
	return r.findOne(ctx, bson.M{"_id": id, "email": email})
}

func (r *RealtorRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update realtor %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return realtorNotFound()
	}
	return nil
}

func (r *RealtorRepository) SetSessionToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.set(ctx, id, bson.M{"auth.token": token})
}

func (r *RealtorRepository) SetVerificationToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.set(ctx, id, bson.M{"verificationToken": token})
}

// MarkVerified flags the email as verified, clears the verification token
// and stores the session token issued for it.
func (r *RealtorRepository) MarkVerified(ctx context.Context, id primitive.ObjectID, sessionToken string) error {
	if err := r.set(ctx, id, bson.M{"is_email_verified": true, "auth.token": sessionToken}); err != nil {
		return err
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"verificationToken": ""}})
	if err != nil {
		return fmt.Errorf("clear verification token of %s: %w", id.Hex(), err)
	}
	return nil
}

// SetPassword stores a new hash and clears any pending reset token.
func (r *RealtorRepository) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	if err := r.set(ctx, id, bson.M{"password": hash}); err != nil {
		return err
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"verificationToken": ""}})
	if err != nil {
		return fmt.Errorf("clear reset token of %s: %w", id.Hex(), err)
	}
	return nil
}

func (r *RealtorRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, in models.ProfileInput) (*models.Realtor, error) {
	fields := bson.M{"updated_at": time.Now().UTC()}
	optional := map[string]*string{
		"first_name":   in.FirstName,
		"last_name":    in.LastName,
		"phone_number": in.PhoneNumber,
		"address":      in.Address,
		"country":      in.Country,
		"state":        in.State,
	}
	for k, v := range optional {
		if v != nil {
			fields[k] = *v
		}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Realtor
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, realtorNotFound()
	}
	if isDuplicateKey(err) {
		return nil, apperror.Validation("Phone number already exists", "phone_number")
	}
	if err != nil {
		return nil, fmt.Errorf("update realtor profile %s: %w", id.Hex(), err)
	}
	return &updated, nil
}

// ToggleBan flips isBanned atomically and returns the updated account.
func (r *RealtorRepository) ToggleBan(ctx context.Context, id primitive.ObjectID) (*models.Realtor, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"isBanned":   bson.M{"$not": bson.A{bson.M{"$ifNull": bson.A{"$isBanned", false}}}},
			"updated_at": "$$NOW",
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Realtor
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, realtorNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("toggle ban of realtor %s: %w", id.Hex(), err)
	}
	return &updated, nil
}

func (r *RealtorRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete realtor %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return realtorNotFound()
	}
	return nil
}

func (r *RealtorRepository) List(ctx context.Context, page, limit int) ([]models.Realtor, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count realtors: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list realtors: %w", err)
	}
	defer cursor.Close(ctx)

	realtors := []models.Realtor{}
	if err := cursor.All(ctx, &realtors); err != nil {
		return nil, 0, fmt.Errorf("decode realtors: %w", err)
	}
	return realtors, total, nil
}
