package repository

import (
	"testing"

	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func stageNames(p []bson.D) []string {
	names := make([]string, 0, len(p))
	for _, stage := range p {
		names = append(names, stage[0].Key)
	}
	return names
}

func TestQueryFilter(t *testing.T) {
	owner := primitive.NewObjectID()
	approved := models.StatusApproved
	q := models.PropertyQuery{
		Scope:        models.Scope{OwnerID: &owner, Status: &approved},
		Text:         "lagos duplex",
		State:        "Lagos",
		Country:      "Nigeria",
		PropertyType: "duplex",
	}

	filter := QueryFilter(q)
	assert.Equal(t, owner, filter["user"])
	assert.Equal(t, models.StatusApproved, filter["status"])
	assert.Equal(t, "Lagos", filter["state"])
	assert.Equal(t, "Nigeria", filter["country"])
	assert.Equal(t, "duplex", filter["property_details.property_type"])
	assert.Equal(t, bson.M{"$search": "lagos duplex", "$language": "en"}, filter["$text"])
}

func TestQueryFilter_EmptyQueryMatchesEverything(t *testing.T) {
	assert.Empty(t, QueryFilter(models.PropertyQuery{}))
}

func TestImageRefFilter(t *testing.T) {
	self := primitive.NewObjectID()
	ids := []string{models.PermanentPrefix + "a.jpg"}

	filter := ImageRefFilter(ids, self)
	assert.Equal(t, bson.M{"$ne": self}, filter["_id"])
	assert.Equal(t, bson.A{
		bson.M{"feature_image.public_id": bson.M{"$in": ids}},
		bson.M{"property_images.public_id": bson.M{"$in": ids}},
	}, filter["$or"])
}

func TestListPipeline(t *testing.T) {
	repo := &PropertyRepository{realtorsCollName: RealtorsCollection}

	t.Run("text search sorts by score and keeps $text in the first stage", func(t *testing.T) {
		q := models.PropertyQuery{Text: "pool", Page: 2, Limit: 5}
		p := repo.ListPipeline(q)

		require.NotEmpty(t, p)
		match := p[0][0].Value.(bson.M)
		assert.Contains(t, match, "$text")
		assert.Equal(t, []string{"$match", "$sort", "$lookup", "$unwind", "$project", "$facet"}, stageNames(p))

		facet := p[len(p)-1][0].Value.(bson.M)
		items := facet["items"].(bson.A)
		assert.Equal(t, bson.M{"$skip": int64(5)}, items[0])
		assert.Equal(t, bson.M{"$limit": 5}, items[1])
	})

	t.Run("public scope filters banned owners", func(t *testing.T) {
		approved := models.StatusApproved
		q := models.PropertyQuery{
			Scope: models.Scope{Status: &approved, ExcludeBannedOwners: true},
			Page:  1,
			Limit: 10,
		}
		p := repo.ListPipeline(q)

		assert.Equal(t, []string{"$match", "$sort", "$lookup", "$unwind", "$match", "$project", "$facet"}, stageNames(p))
		assert.Equal(t, models.StatusApproved, p[0][0].Value.(bson.M)["status"])
		assert.Equal(t, bson.M{"owner.isBanned": bson.M{"$ne": true}}, p[4][0].Value)
	})
}
