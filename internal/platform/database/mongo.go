package database

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConnection owns a MongoDB client and the names of the database and
// collection that hold inbound messages.
type MongoConnection struct {
	Client     *mongo.Client
	Database   string
	Collection string
}

// NewMongoConnection configures a client for uri. The driver dials in the
// background, so this does not block on the network; use Ping to verify.
// When useTLS is set, certificates are always verified.
func NewMongoConnection(ctx context.Context, uri, database, collection string, useTLS bool) (*MongoConnection, error) {
	opts := options.Client().ApplyURI(uri)
	if useTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	return &MongoConnection{Client: client, Database: database, Collection: collection}, nil
}

func (c *MongoConnection) Driver() string { return "mongo" }

func (c *MongoConnection) Ping(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return ErrNotConnected
	}
	if err := c.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}
	return nil
}

// MessagesCollection returns the handle the message repository writes to.
func (c *MongoConnection) MessagesCollection() *mongo.Collection {
	return c.Client.Database(c.Database).Collection(c.Collection)
}

func (c *MongoConnection) Close(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Disconnect(ctx)
}
