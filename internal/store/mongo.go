package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/voicenav/voice-gateway/internal/resilience"
)

const (
	transcriptionsCollection = "transcriptions"
	searchesCollection       = "searches"
)

type transcriptionDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Text             string             `bson:"text"`
	CreatedAt        time.Time          `bson:"createdAt"`
	Duration         float64            `bson:"duration,omitempty"`
	FileSize         int64              `bson:"fileSize,omitempty"`
	OriginalFilename string             `bson:"originalFilename,omitempty"`
	AudioPath        string             `bson:"audioPath,omitempty"`
}

func (d transcriptionDoc) record() TranscriptionRecord {
	return TranscriptionRecord{
		ID:               d.ID.Hex(),
		Text:             d.Text,
		CreatedAt:        d.CreatedAt,
		Duration:         d.Duration,
		FileSize:         d.FileSize,
		OriginalFilename: d.OriginalFilename,
		AudioPath:        d.AudioPath,
	}
}

type searchDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d searchDoc) record() SearchRecord {
	return SearchRecord{ID: d.ID.Hex(), UserID: d.UserID, Text: d.Text, CreatedAt: d.CreatedAt}
}

// MongoStore persists records in MongoDB.
type MongoStore struct {
	client         *mongo.Client
	transcriptions *mongo.Collection
	searches       *mongo.Collection
	logger         zerolog.Logger
}

// NewMongoStore connects to uri, retrying with reconnect until the
// server answers a ping.
func NewMongoStore(ctx context.Context, uri, database string, reconnect *resilience.ReconnectConfig, logger zerolog.Logger) (*MongoStore, error) {
	var client *mongo.Client

	err := resilience.Reconnect(ctx, func(ctx context.Context) error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			return err
		}

		client = c
		return nil
	}, reconnect, logger)
	if err != nil {
		return nil, storageErr("connect", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:         client,
		transcriptions: db.Collection(transcriptionsCollection),
		searches:       db.Collection(searchesCollection),
		logger:         logger,
	}

	s.ensureIndexes(ctx)

	logger.Info().Str("database", database).Msg("Connected to MongoDB")
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) {
	_, err := s.transcriptions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("collection", transcriptionsCollection).Msg("Failed to create index")
	}

	_, err = s.searches.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("collection", searchesCollection).Msg("Failed to create index")
	}
}

// SaveTranscription implements TranscriptionStore.
func (s *MongoStore) SaveTranscription(ctx context.Context, text string, meta Metadata) (TranscriptionRecord, error) {
	doc := transcriptionDoc{
		ID:               primitive.NewObjectID(),
		Text:             text,
		CreatedAt:        time.Now().UTC(),
		Duration:         meta.Duration,
		FileSize:         meta.FileSize,
		OriginalFilename: meta.OriginalFilename,
		AudioPath:        meta.AudioPath,
	}

	if _, err := s.transcriptions.InsertOne(ctx, doc); err != nil {
		return TranscriptionRecord{}, storageErr("save transcription", err)
	}
	return doc.record(), nil
}

// ListTranscriptions implements TranscriptionStore.
func (s *MongoStore) ListTranscriptions(ctx context.Context, limit int) ([]TranscriptionRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cursor, err := s.transcriptions.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, storageErr("list transcriptions", err)
	}
	defer cursor.Close(ctx)

	var docs []transcriptionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("list transcriptions", err)
	}

	out := make([]TranscriptionRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

// DeleteAllTranscriptions implements TranscriptionStore. Only the records
// read here are deleted, so a record saved concurrently survives together
// with its audio file.
func (s *MongoStore) DeleteAllTranscriptions(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}, {Key: "audioPath", Value: 1}})
	cursor, err := s.transcriptions.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, storageErr("delete transcriptions", err)
	}

	var docs []transcriptionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("delete transcriptions", err)
	}
	if len(docs) == 0 {
		return []string{}, nil
	}

	filter, paths := deletePlan(docs)
	if _, err := s.transcriptions.DeleteMany(ctx, filter); err != nil {
		return nil, storageErr("delete transcriptions", err)
	}
	return paths, nil
}

// deletePlan returns a filter matching exactly docs and the audio paths
// they reference.
func deletePlan(docs []transcriptionDoc) (bson.D, []string) {
	ids := make([]primitive.ObjectID, 0, len(docs))
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
		if d.AudioPath != "" {
			paths = append(paths, d.AudioPath)
		}
	}
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}, paths
}

// SaveSearch implements SearchStore.
func (s *MongoStore) SaveSearch(ctx context.Context, userID, text string) (SearchRecord, error) {
	doc := searchDoc{ID: primitive.NewObjectID(), UserID: userID, Text: text, CreatedAt: time.Now().UTC()}
	if _, err := s.searches.InsertOne(ctx, doc); err != nil {
		return SearchRecord{}, storageErr("save search", err)
	}
	return doc.record(), nil
}

// ListSearches implements SearchStore.
func (s *MongoStore) ListSearches(ctx context.Context, userID string, limit int) ([]SearchRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cursor, err := s.searches.Find(ctx, bson.D{{Key: "user", Value: userID}}, opts)
	if err != nil {
		return nil, storageErr("list searches", err)
	}
	defer cursor.Close(ctx)

	var docs []searchDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("list searches", err)
	}

	out := make([]SearchRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

// DeleteSearch implements SearchStore.
func (s *MongoStore) DeleteSearch(ctx context.Context, id, ownerID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	var doc searchDoc
	err = s.searches.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return storageErr("delete search", err)
	}
	if doc.UserID != ownerID {
		return ErrUnauthorized
	}

	if _, err := s.searches.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}}); err != nil {
		return storageErr("delete search", err)
	}
	return nil
}

// Ping implements Store.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return storageErr("ping", fmt.Errorf("mongo: %w", err))
	}
	return nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
