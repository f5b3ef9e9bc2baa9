// Package mongodb implements the document-store backend driver.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

// Driver holds a single short-lived MongoDB client. One driver serves
// exactly one test/query/schema call.
type Driver struct {
	client *mongo.Client
	cfg    *Config
}

// New dials MongoDB and pings the primary so auth and network failures
// surface at dial time.
func New(ctx context.Context, config map[string]any) (*Driver, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.uri()))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Driver{client: client, cfg: cfg}, nil
}

// Test pings the server and lists database names as the sample payload.
// The configured test query is ignored for document stores.
func (d *Driver) Test(ctx context.Context, _ string) (*datasource.RawResult, error) {
	names, err := d.client.ListDatabaseNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	return &datasource.RawResult{
		Rows:      []map[string]any{{"databases": names}},
		Columns:   []string{"databases"},
		HasRowSet: true,
		Message:   "MongoDB connection successful",
	}, nil
}

// Query decodes the structured document payload and runs a find against
// the named collection. Operations other than find return an empty
// result. The cursor is hard-capped; the caller applies the request
// limit during normalization.
func (d *Driver) Query(ctx context.Context, req *models.QueryRequest) (*datasource.RawResult, error) {
	q, err := datasource.ParseDocumentQuery(req.Query)
	if err != nil {
		return nil, err
	}

	database := q.Database
	if database == "" {
		database = d.cfg.Database
	}
	if database == "" {
		return nil, apperrors.NewValidationError("database")
	}

	if q.Operation != "find" {
		return &datasource.RawResult{
			Rows:      []map[string]any{},
			HasRowSet: true,
		}, nil
	}

	coll := d.client.Database(database).Collection(q.Collection)
	cursor, err := coll.Find(ctx, q.Filter,
		options.Find().SetLimit(int64(models.MaxQueryLimit)))
	if err != nil {
		return nil, fmt.Errorf("failed to execute find: %w", err)
	}
	defer cursor.Close(ctx)

	rows := make([]map[string]any, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		rows = append(rows, stringifyIdentifiers(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cursor: %w", err)
	}

	return &datasource.RawResult{
		Rows:      rows,
		HasRowSet: true,
	}, nil
}

// Schema enumerates collections in the configured database and samples
// one document per collection to report its field names.
func (d *Driver) Schema(ctx context.Context) (*models.SchemaResult, error) {
	if d.cfg.Database == "" {
		return nil, apperrors.NewValidationError("database")
	}

	db := d.client.Database(d.cfg.Database)
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	result := &models.SchemaResult{
		Success:     true,
		Supported:   true,
		Collections: make(map[string]*models.CollectionSchema, len(names)),
	}

	for _, name := range names {
		schema := &models.CollectionSchema{Fields: []string{}}

		var doc bson.M
		err := db.Collection(name).FindOne(ctx, bson.M{}).Decode(&doc)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			// empty collection, no fields to report
		case err != nil:
			return nil, fmt.Errorf("sample %s: %w", name, err)
		default:
			sample := stringifyIdentifiers(doc)
			for field := range sample {
				schema.Fields = append(schema.Fields, field)
			}
			sort.Strings(schema.Fields)
			schema.SampleDocument = sample
		}

		result.Collections[name] = schema
	}

	return result, nil
}

// stringifyIdentifiers converts BSON ObjectIDs anywhere in the document
// to their hex form so native identifier types never reach callers.
func stringifyIdentifiers(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = stringifyValue(v)
	}
	return out
}

func stringifyValue(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case bson.M:
		return stringifyIdentifiers(val)
	case bson.A:
		converted := make([]any, len(val))
		for i, item := range val {
			converted[i] = stringifyValue(item)
		}
		return converted
	default:
		return v
	}
}

// Close disconnects the client.
func (d *Driver) Close() error {
	return d.client.Disconnect(context.Background())
}

// Ensure Driver implements the datasource contract at compile time.
var _ datasource.Driver = (*Driver)(nil)
