package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PropertiesCollection = "properties"
	RealtorsCollection   = "realtors"
	AdminsCollection     = "admins"
)

// EnsureIndexes creates the indexes the queries rely on. It is safe to run
// on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		PropertiesCollection: {
			{
				Keys: bson.D{
					{Key: "property_name", Value: "text"},
					{Key: "property_description", Value: "text"},
				},
				Options: options.Index().SetName("property_text").SetDefaultLanguage("english"),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "feature_image.public_id", Value: 1}}},
			{Keys: bson.D{{Key: "property_images.public_id", Value: 1}}},
		},
		RealtorsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "phone_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		AdminsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// BackfillDefaults sets fields that older documents may lack: a pending
// status on properties and isBanned=false on realtors.
func BackfillDefaults(ctx context.Context, db *mongo.Database, log logrus.FieldLogger) error {
	res, err := db.Collection(PropertiesCollection).UpdateMany(ctx,
		bson.M{"status": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"status": "pending"}},
	)
	if err != nil {
		return fmt.Errorf("backfill property status: %w", err)
	}
	if res.ModifiedCount > 0 {
		log.WithField("count", res.ModifiedCount).Info("Backfilled property status")
	}

	res, err = db.Collection(RealtorsCollection).UpdateMany(ctx,
		bson.M{"isBanned": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"isBanned": false}},
	)
	if err != nil {
		return fmt.Errorf("backfill realtor ban flag: %w", err)
	}
	if res.ModifiedCount > 0 {
		log.WithField("count", res.ModifiedCount).Info("Backfilled realtor ban flag")
	}
	return nil
}

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
