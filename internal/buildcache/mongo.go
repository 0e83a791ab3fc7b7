package buildcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	mongoDatabase   = "navbake"
	mongoCollection = "build_hash"
)

// HashMongo is one build_hash document.
type HashMongo struct {
	BlockID string `bson:"_id"`
	Data    []byte `bson:"data"`
}

// MongoStore keeps records in the navbake.build_hash collection.
type MongoStore struct {
	mongo *mongo.Client
	coll  *mongo.Collection
}

// OpenMongo connects to a mongodb:// url.
func OpenMongo(ctx context.Context, url string) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(url)
	clientOptions = clientOptions.SetMinPoolSize(1)
	clientOptions = clientOptions.SetMaxPoolSize(4)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{
		mongo: client,
		coll:  client.Database(mongoDatabase).Collection(mongoCollection),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, blockID string) (*Record, error) {
	doc := new(HashMongo)
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: recordKey(blockID)}}).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	r := new(Record)
	if err := msgpack.Unmarshal(doc.Data, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *MongoStore) Put(ctx context.Context, r *Record) error {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return err
	}
	key := recordKey(r.BlockID)
	_, err = s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		&HashMongo{BlockID: key, Data: data},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Close() error {
	return s.mongo.Disconnect(context.Background())
}
