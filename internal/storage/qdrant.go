/**
 * Qdrant borrower-summary index for the loan-document processing worker.
 *
 * Stores a best-effort semantic-search vector for each reconciled
 * borrower, keyed by borrower ID. This is optional infrastructure: a
 * failure here never blocks the terminal document-status transition.
 * Uses Qdrant's native gRPC API.
 */

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

// QdrantClient indexes reconciled borrowers for semantic search. It
// exposes exactly the one write the reconciliation pipeline drives:
// embed-and-upsert a borrower summary.
type QdrantClient struct {
	points         qdrant.PointsClient
	collections    qdrant.CollectionsClient
	conn           *grpc.ClientConn
	collectionName string
}

// NewQdrantClient connects to Qdrant and ensures the borrower-summary
// collection exists.
func NewQdrantClient(address string, collectionName string) (*QdrantClient, error) {
	if address == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}
	if collectionName == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	qc := &QdrantClient{
		points:         qdrant.NewPointsClient(conn),
		collections:    qdrant.NewCollectionsClient(conn),
		conn:           conn,
		collectionName: collectionName,
	}

	if err := qc.ensureCollection(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	return qc, nil
}

// ensureCollection creates the borrower-summary collection, sized for
// the hashed-bag-of-words embedding (see embedding.go), if it doesn't
// already exist.
func (q *QdrantClient) ensureCollection(ctx context.Context) error {
	listResp, err := q.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, col := range listResp.Collections {
		if col.Name == q.collectionName {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     EmbeddingDims,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// UpsertBorrowerSummary embeds a borrower's name, address, and employer
// history and stores it for semantic search. Best-effort: callers
// should log and continue rather than fail the document on error.
func (q *QdrantClient) UpsertBorrowerSummary(ctx context.Context, documentID string, b domain.BorrowerRecord) error {
	var parts []string
	parts = append(parts, b.Name)
	if b.Address != nil {
		parts = append(parts, b.Address.Street, b.Address.City, b.Address.State, b.Address.ZipCode)
	}
	for _, inc := range b.IncomeHistory {
		parts = append(parts, inc.Employer, inc.SourceType)
	}
	summary := strings.Join(parts, " ")
	vector := embedText(summary)

	pointID := b.ID
	if pointID == "" {
		pointID = uuid.New().String()
	}

	point := &qdrant.PointStruct{
		Id: &qdrant.PointId{
			PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID},
		},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{
				Vector: &qdrant.Vector{Data: vector},
			},
		},
		Payload: map[string]*qdrant.Value{
			"document_id":      {Kind: &qdrant.Value_StringValue{StringValue: documentID}},
			"name":             {Kind: &qdrant.Value_StringValue{StringValue: b.Name}},
			"confidence_score": {Kind: &qdrant.Value_DoubleValue{DoubleValue: b.ConfidenceScore}},
			"requires_review":  {Kind: &qdrant.Value_BoolValue{BoolValue: b.RequiresReview}},
		},
	}

	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert borrower summary: %w", err)
	}

	return nil
}

// Close closes the Qdrant client connection.
func (q *QdrantClient) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
