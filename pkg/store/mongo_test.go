package store

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIDFilterProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ObjectID hex strings address by ObjectID", prop.ForAll(
		func() bool {
			oid := primitive.NewObjectID()
			filter := idFilter(oid.Hex())
			got, ok := filter["_id"].(primitive.ObjectID)
			return ok && got == oid
		},
	))

	properties.Property("non-hex ids are matched verbatim", prop.ForAll(
		func(id string) bool {
			if _, err := primitive.ObjectIDFromHex(id); err == nil {
				return true
			}
			filter := idFilter(id)
			got, ok := filter["_id"].(string)
			return ok && got == id
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDocumentID(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{"_id": oid, "name": "Aria"})
	assert.NoError(t, err)
	assert.Equal(t, oid.Hex(), documentID(bson.Raw(raw).Lookup("_id")))

	raw, err = bson.Marshal(bson.M{"_id": "custom-key"})
	assert.NoError(t, err)
	assert.Equal(t, "custom-key", documentID(bson.Raw(raw).Lookup("_id")))
}

func TestInsertedID(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), insertedID(oid))
	assert.Equal(t, "abc", insertedID("abc"))
	assert.Equal(t, "", insertedID(42))
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")

	we := &WriteError{Collection: "players", Op: "upsert", Err: cause}
	assert.ErrorIs(t, we, cause)
	assert.Contains(t, we.Error(), "upsert")
	assert.Contains(t, we.Error(), "players")

	se := &SubscriptionError{Collection: "changes", Err: cause}
	assert.ErrorIs(t, se, cause)
	assert.Contains(t, se.Error(), "changes")
}
