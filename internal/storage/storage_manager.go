/**
 * Storage manager for the loan-document processing worker.
 *
 * Coordinates PostgreSQL (the document/borrower system of record) and
 * Qdrant (best-effort borrower semantic search). Implements the
 * borrower sink the task lifecycle controller persists through: a
 * Qdrant failure never blocks a successful PostgreSQL write.
 */
package storage

import (
	"context"
	"fmt"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// Manager coordinates PostgreSQL and Qdrant operations behind a single
// borrower-sink interface.
type Manager struct {
	postgres *PostgresStore
	qdrant   *QdrantClient
	logger   *logging.Logger
}

// NewManager builds a Manager. qdrantAddress may be empty, in which
// case semantic search is disabled and borrower persistence is
// PostgreSQL-only.
func NewManager(databaseURL, qdrantAddress, qdrantCollection string) (*Manager, error) {
	postgres, err := NewPostgresStore(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL store: %w", err)
	}

	var qdrant *QdrantClient
	if qdrantAddress != "" {
		qdrant, err = NewQdrantClient(qdrantAddress, qdrantCollection)
		if err != nil {
			postgres.Close()
			return nil, fmt.Errorf("failed to initialize Qdrant client: %w", err)
		}
	}

	return &Manager{postgres: postgres, qdrant: qdrant, logger: logging.NewLogger("StorageManager")}, nil
}

// GetDocument fetches a document by id, or nil if it doesn't exist.
func (m *Manager) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return m.postgres.GetDocument(ctx, id)
}

// UpdateDocumentStatus updates a document's lifecycle status and
// optional bookkeeping fields.
func (m *Manager) UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, pageCount *int, ocrProcessed *bool, errorMessage string) error {
	return m.postgres.UpdateDocumentStatus(ctx, id, status, pageCount, ocrProcessed, errorMessage)
}

// PersistBorrowers writes each borrower to PostgreSQL, collecting
// per-borrower failures rather than aborting the batch. On success it
// also best-effort indexes the borrower in Qdrant for semantic search;
// a Qdrant failure is logged and otherwise ignored.
func (m *Manager) PersistBorrowers(ctx context.Context, documentID string, borrowers []domain.BorrowerRecord) (succeeded int, failures []error) {
	for _, b := range borrowers {
		if err := m.postgres.UpsertBorrower(ctx, documentID, b); err != nil {
			failures = append(failures, fmt.Errorf("borrower %s: %w", b.ID, err))
			continue
		}
		succeeded++

		if m.qdrant != nil {
			if err := m.qdrant.UpsertBorrowerSummary(ctx, documentID, b); err != nil {
				m.logger.Warn("qdrant borrower indexing failed", "borrower_id", b.ID, "error", err)
			}
		}
	}
	return succeeded, failures
}

// Ping checks PostgreSQL connectivity. Called once at startup so a
// misconfigured database fails fast instead of surfacing as a
// transient failure on the first document task.
func (m *Manager) Ping(ctx context.Context) error {
	return m.postgres.Ping(ctx)
}

// Close closes all connections.
func (m *Manager) Close() error {
	var pgErr, qdErr error

	if m.postgres != nil {
		pgErr = m.postgres.Close()
	}
	if m.qdrant != nil {
		qdErr = m.qdrant.Close()
	}

	if pgErr != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", pgErr)
	}
	if qdErr != nil {
		return fmt.Errorf("failed to close Qdrant: %w", qdErr)
	}
	return nil
}
