package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/resume"
)

// Mongo implements Store on a MongoDB database. Change streams drive the
// snapshot push: after every stream event the full collection (or the
// ordered, limited query window) is re-read and delivered, matching the
// full-replace caching contract. Resume tokens are persisted through the
// resume store so a reopened subscription continues from where the previous
// one stopped.
type Mongo struct {
	db     *mongo.Database
	resume resume.Store
	logger *logger.Logger
}

// NewMongo creates a Mongo store. The resume store may be nil, in which case
// subscriptions always start from the current point in time.
func NewMongo(db *mongo.Database, rs resume.Store, l *logger.Logger) *Mongo {
	return &Mongo{
		db:     db,
		resume: rs,
		logger: l,
	}
}

// SubscribeCollection registers a live full-collection subscription.
func (m *Mongo) SubscribeCollection(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error) {
	return m.subscribe(ctx, collection, nil, onSnapshot, onError)
}

// SubscribeOrderedLimited registers a subscription over a sorted, capped
// query window.
func (m *Mongo) SubscribeOrderedLimited(ctx context.Context, collection, orderKey string, descending bool, limit int64, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error) {
	order := 1
	if descending {
		order = -1
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: orderKey, Value: order}}).
		SetLimit(limit)
	return m.subscribe(ctx, collection, findOpts, onSnapshot, onError)
}

func (m *Mongo) subscribe(ctx context.Context, collection string, findOpts *options.FindOptions, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error) {
	subCtx, cancel := context.WithCancel(ctx)

	go m.watch(subCtx, m.db.Collection(collection), findOpts, onSnapshot, onError)

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (m *Mongo) watch(ctx context.Context, coll *mongo.Collection, findOpts *options.FindOptions, onSnapshot SnapshotFunc, onError ErrorFunc) {
	// First delivery is the collection as it stands; every stream event
	// afterwards triggers a full re-read.
	docs, err := m.readAll(ctx, coll, findOpts)
	if err != nil {
		m.fail(ctx, coll.Name(), err, onError)
		return
	}
	onSnapshot(docs)

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if token := m.loadToken(ctx, coll.Name()); token != nil {
		opts.SetResumeAfter(token)
	}

	stream, err := coll.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		m.fail(ctx, coll.Name(), err, onError)
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		m.saveToken(ctx, coll.Name(), stream.ResumeToken())

		docs, err := m.readAll(ctx, coll, findOpts)
		if err != nil {
			m.fail(ctx, coll.Name(), err, onError)
			return
		}
		onSnapshot(docs)
	}

	if err := stream.Err(); err != nil {
		m.fail(ctx, coll.Name(), err, onError)
	}
}

func (m *Mongo) fail(ctx context.Context, collection string, err error, onError ErrorFunc) {
	// Teardown via unsubscribe is not a transport failure.
	if ctx.Err() != nil {
		return
	}
	onError(&SubscriptionError{Collection: collection, Err: err})
}

func (m *Mongo) readAll(ctx context.Context, coll *mongo.Collection, findOpts *options.FindOptions) ([]Document, error) {
	var cursor *mongo.Cursor
	var err error
	if findOpts != nil {
		cursor, err = coll.Find(ctx, bson.D{}, findOpts)
	} else {
		cursor, err = coll.Find(ctx, bson.D{})
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raws []bson.Raw
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}

	docs := make([]Document, len(raws))
	for i, raw := range raws {
		docs[i] = Document{
			ID:   documentID(raw.Lookup("_id")),
			Data: raw,
		}
	}
	return docs, nil
}

func (m *Mongo) loadToken(ctx context.Context, collection string) bson.Raw {
	if m.resume == nil {
		return nil
	}
	token, err := m.resume.Load(ctx, collection)
	if err != nil {
		m.logger.Warn("failed to load resume token, starting fresh",
			zap.String("collection", collection), zap.Error(err))
		return nil
	}
	return token
}

func (m *Mongo) saveToken(ctx context.Context, collection string, token bson.Raw) {
	if m.resume == nil || token == nil {
		return
	}
	if err := m.resume.Save(ctx, collection, token); err != nil {
		m.logger.Warn("failed to save resume token",
			zap.String("collection", collection), zap.Error(err))
	}
}

// Upsert replaces the addressed document wholesale, creating it if absent.
func (m *Mongo) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	coll := m.db.Collection(collection)
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, idFilter(id), doc, opts); err != nil {
		return &WriteError{Collection: collection, Op: "upsert", Err: err}
	}
	return nil
}

// Delete removes the addressed document. Missing ids are not an error.
func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	coll := m.db.Collection(collection)
	if _, err := coll.DeleteOne(ctx, idFilter(id)); err != nil {
		return &WriteError{Collection: collection, Op: "delete", Err: err}
	}
	return nil
}

// Append inserts a document with a store-assigned id.
func (m *Mongo) Append(ctx context.Context, collection string, doc interface{}) (string, error) {
	coll := m.db.Collection(collection)
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return "", &WriteError{Collection: collection, Op: "append", Err: err}
	}
	return insertedID(res.InsertedID), nil
}

// idFilter addresses a document by its store key. Keys handed out by Append
// are ObjectID hex strings; anything else is matched verbatim.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func documentID(val bson.RawValue) string {
	if oid, ok := val.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := val.StringValueOK(); ok {
		return s
	}
	return val.String()
}

func insertedID(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return ""
	}
}
