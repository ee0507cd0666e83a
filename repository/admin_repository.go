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

func adminNotFound() error {
	return apperror.NotFound("Admin not found")
}

type AdminRepository struct {
	coll *mongo.Collection
}

func NewAdminRepository(db *mongo.Database) *AdminRepository {
	return &AdminRepository{coll: db.Collection(AdminsCollection)}
}

func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID.IsZero() {
		admin.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, admin); err != nil {
		if isDuplicateKey(err) {
			return apperror.Validation("Email already exists", "email")
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) findOne(ctx context.Context, filter bson.M) (*models.Admin, error) {
	var admin models.Admin
	err := r.coll.FindOne(ctx, filter).Decode(&admin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, adminNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return &admin, nil
}

func (r *AdminRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AdminRepository) FindByIdentity(ctx context.Context, id primitive.ObjectID, email string) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"_id": id, "email": email})
}

func (r *AdminRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update admin %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return adminNotFound()
	}
	return nil
}

func (r *AdminRepository) SetSessionToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.set(ctx, id, bson.M{"token": token})
}

func (r *AdminRepository) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.set(ctx, id, bson.M{"password": hash})
}

func (r *AdminRepository) Update(ctx context.Context, id primitive.ObjectID, in models.AdminUpdate) (*models.Admin, error) {
	fields := bson.M{"updated_at": time.Now().UTC()}
	if in.FirstName != nil {
		fields["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		fields["last_name"] = *in.LastName
	}
	if in.Role != nil {
		fields["role"] = *in.Role
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Admin
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, adminNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("update admin %s: %w", id.Hex(), err)
	}
	return &updated, nil
}

func (r *AdminRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete admin %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return adminNotFound()
	}
	return nil
}

func (r *AdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer cursor.Close(ctx)

	admins := []models.Admin{}
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, fmt.Errorf("decode admins: %w", err)
	}
	return admins, nil
}
