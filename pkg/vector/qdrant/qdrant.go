// Package qdrant provides a Qdrant-backed vector index driver for workspaces
// that keep the nearest-neighbor index on a remote server instead of inside
// the sqlite file.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for file report embeddings.
	DefaultCollectionName = "foldermate"

	// defaultGRPCPort is Qdrant's gRPC port when the URL carries none.
	defaultGRPCPort = 6334
)

// Driver implements vector.Driver using Qdrant's gRPC API.
type Driver struct {
	client         *qdrant.Client
	collectionName string
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// URL is the Qdrant server URL (e.g., "http://localhost:6333").
	// The gRPC port is derived from the HTTP port.
	URL string

	// CollectionName defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new Qdrant vector driver and ensures the collection
// exists with cosine distance.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	parsedURL, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := defaultGRPCPort
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is conventionally the HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return nil, fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}

	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("creating collection %s: %w", collectionName, err)
		}
	}

	logger.Info("qdrant vector driver initialized",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("collection", collectionName),
	)

	return &Driver{
		client:         client,
		collectionName: collectionName,
		logger:         logger,
	}, nil
}

// Upsert stores entries, replacing any existing entry with the same ID.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, entry := range entries {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(entry.ID)),
			Vectors: qdrant.NewVectors(entry.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"path":     entry.Path,
				"model_id": entry.ModelID,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted entries into qdrant",
		zap.Int("count", len(entries)),
	)

	return nil
}

// Query finds the topK most similar entries to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	return d.query(ctx, qdrant.NewQueryDense(embedding), topK, -1)
}

// QueryByID finds the topK entries most similar to the stored vector of id,
// excluding id itself. An unknown id yields an empty result.
func (d *Driver) QueryByID(ctx context.Context, id int64, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(uint64(id))},
	})
	if err != nil {
		return nil, fmt.Errorf("checking query point: %w", err)
	}
	if len(points) == 0 {
		return []vector.QueryResult{}, nil
	}

	return d.query(ctx, qdrant.NewQueryID(qdrant.NewIDNum(uint64(id))), topK, id)
}

func (d *Driver) query(ctx context.Context, query *qdrant.Query, topK int, excludeID int64) ([]vector.QueryResult, error) {
	limit := uint64(topK)
	if excludeID >= 0 {
		limit++
	}

	scored, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collectionName,
		Query:          query,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := []vector.QueryResult{}
	for _, point := range scored {
		fileID := int64(point.GetId().GetNum())
		if excludeID >= 0 && fileID == excludeID {
			continue
		}

		payload := point.GetPayload()
		results = append(results, vector.QueryResult{
			Entry: vector.Entry{
				ID:      fileID,
				Path:    payload["path"].GetStringValue(),
				ModelID: payload["model_id"].GetStringValue(),
			},
			// Qdrant reports cosine similarity directly for cosine collections.
			Score: point.GetScore(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Get retrieves entries by their ids.
func (d *Driver) Get(ctx context.Context, ids []int64) ([]vector.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDNum(uint64(id)))
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collectionName,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	entries := make([]vector.Entry, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		entry := vector.Entry{
			ID:      int64(point.GetId().GetNum()),
			Path:    payload["path"].GetStringValue(),
			ModelID: payload["model_id"].GetStringValue(),
		}
		if v := point.GetVectors().GetVector(); v != nil {
			entry.Embedding = v.GetData()
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Delete removes entries by their ids.
func (d *Driver) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDNum(uint64(id)))
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collectionName,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	return nil
}

// ModelID returns the embedding model identifier stored with the index.
func (d *Driver) ModelID(ctx context.Context) (string, error) {
	limit := uint32(1)
	points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: d.collectionName,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", fmt.Errorf("scrolling points: %w", err)
	}
	if len(points) == 0 {
		return "", nil
	}

	return points[0].GetPayload()["model_id"].GetStringValue(), nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
