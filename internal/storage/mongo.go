package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collRooms    = "rooms"
	collMessages = "messages"
	collCounters = "counters"
)

// MongoConfig carries connection settings for the Mongo adapter.
type MongoConfig struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MaxRetry    int
}

// MongoStore implements Store on top of a Mongo database.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore connects with a bounded number of retries and verifies
// the connection with a ping before returning.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connectMongo(ctx, opts)
		if err == nil || ctx.Err() != nil {
			break
		}
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "connect to mongo %q", cfg.URI)
	}
	return &MongoStore{db: cli.Database(cfg.Database)}, nil
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return cli, nil
}

func (s *MongoStore) LoadRoom(ctx context.Context, roomID string) (*RoomDoc, error) {
	var doc RoomDoc
	err := s.db.Collection(collRooms).FindOne(ctx, bson.M{"_id": roomID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load room %q", roomID)
	}
	return &doc, nil
}

func (s *MongoStore) UpsertParticipant(ctx context.Context, roomID, identityID string, p ParticipantDoc) error {
	_, err := s.db.Collection(collRooms).UpdateByID(ctx, roomID,
		bson.M{"$set": bson.M{"participants." + identityID: p}})
	return errors.Wrapf(err, "upsert participant %q in room %q", identityID, roomID)
}

// UpdateParticipantFields issues a single $set scoped to one participant
// subdocument. Concurrent movers in a room touch disjoint keys.
func (s *MongoStore) UpdateParticipantFields(ctx context.Context, roomID, identityID string, fields map[string]any) error {
	set := bson.M{}
	for k, v := range fields {
		set["participants."+identityID+"."+k] = v
	}
	_, err := s.db.Collection(collRooms).UpdateByID(ctx, roomID, bson.M{"$set": set})
	return errors.Wrapf(err, "update participant %q in room %q", identityID, roomID)
}

func (s *MongoStore) ClearParticipants(ctx context.Context, roomID string) error {
	_, err := s.db.Collection(collRooms).UpdateByID(ctx, roomID,
		bson.M{"$unset": bson.M{"participants": ""}})
	return errors.Wrapf(err, "clear participants in room %q", roomID)
}

func (s *MongoStore) RemoveParticipant(ctx context.Context, roomID, identityID string) error {
	_, err := s.db.Collection(collRooms).UpdateByID(ctx, roomID,
		bson.M{"$unset": bson.M{"participants." + identityID: ""}})
	return errors.Wrapf(err, "remove participant %q from room %q", identityID, roomID)
}

// AppendMessage allocates the room's next sequence from the counters
// collection, then inserts the message. The counter allocation is the
// ordering authority for chat within a room.
func (s *MongoStore) AppendMessage(ctx context.Context, m *MessageDoc) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": "chat:" + m.RoomID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, errors.Wrapf(err, "allocate chat seq for room %q", m.RoomID)
	}

	m.Seq = counter.Seq
	if _, err := s.db.Collection(collMessages).InsertOne(ctx, m); err != nil {
		return 0, errors.Wrapf(err, "append message to room %q", m.RoomID)
	}
	return counter.Seq, nil
}
