package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"circuitflow/internal/config"
	"circuitflow/internal/domain"
)

const (
	mongoCollection = "workflows"
	mongoDefaultDB  = "circuitflow"
)

// mongoArchive stores one document per workflow in the workflows collection.
type mongoArchive struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// buildMongoURI prefers an explicit URI (Atlas style, with <password>
// placeholders filled in) and otherwise assembles one from host and port.
func buildMongoURI(cfg config.ArchiveConfig, password string) string {
	if cfg.URI != "" {
		uri := cfg.URI
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	if cfg.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Username, password, host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", host, port)
}

func newMongoArchive(cfg config.ArchiveConfig, password string) (*mongoArchive, error) {
	uri := buildMongoURI(cfg, password)
	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	slog.Debug("connecting mongo archive", "uri", logURI)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = mongoDefaultDB
	}
	return &mongoArchive{client: client, coll: client.Database(dbName).Collection(mongoCollection)}, nil
}

func (m *mongoArchive) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoArchive) Put(ctx context.Context, wf *domain.Workflow) error {
	rec, err := toRecord(wf)
	if err != nil {
		return err
	}
	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("archive workflow %s: %w", wf.ID, err)
	}
	return nil
}

func (m *mongoArchive) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	var rec record
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("archived workflow %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec.workflow()
}

func (m *mongoArchive) List(ctx context.Context) ([]domain.WorkflowSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"document": 0})
	cursor, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var recs []record
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, err
	}
	out := make([]domain.WorkflowSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.summary())
	}
	return out, nil
}

func (m *mongoArchive) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
