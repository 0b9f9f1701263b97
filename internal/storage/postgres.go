/**
 * PostgreSQL client for the loan-document processing worker.
 *
 * Owns the document lifecycle row and the borrower records reconciled
 * from it. Raw SSNs never reach the database - only their SHA-256 hash
 * is written.
 */
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

// PostgresStore handles persistence of documents and reconciled
// borrowers.
type PostgresStore struct {
	db *sql.DB
}

// sanitizeConfidence rounds confidence to 4 decimal places and clamps
// to [0,1]. PostgreSQL's FLOAT type can otherwise surface values like
// 0.9632000000000001 that trip NUMERIC(5,4) casts downstream.
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0.0 {
		return 0.0
	}
	if confidence > 1.0 {
		return 1.0
	}
	return float64(int(confidence*10000+0.5)) / 10000
}

// hashSSN returns the SHA-256 hex digest of an SSN. The worker never
// persists a raw SSN.
func hashSSN(ssn string) string {
	if ssn == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ssn))
	return hex.EncodeToString(sum[:])
}

// NewPostgresStore opens and pings a connection pool against
// databaseURL.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// GetDocument fetches a document row by id.
func (p *PostgresStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, filename, content_hash, file_type, size_bytes, blob_uri,
		       status, page_count, error_message, extraction_method, ocr_mode,
		       ocr_processed, created_at, updated_at
		FROM core.documents
		WHERE id = $1::uuid
	`

	var (
		doc                                     domain.Document
		blobURI, errorMessage                   sql.NullString
		pageCount                               sql.NullInt64
		ocrProcessed                            sql.NullBool
	)

	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Filename, &doc.ContentHash, &doc.FileType, &doc.SizeBytes, &blobURI,
		&doc.Status, &pageCount, &errorMessage, &doc.ExtractionMethod, &doc.OCRMode,
		&ocrProcessed, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	doc.BlobURI = blobURI.String
	doc.ErrorMessage = errorMessage.String
	if pageCount.Valid {
		n := int(pageCount.Int64)
		doc.PageCount = &n
	}
	if ocrProcessed.Valid {
		v := ocrProcessed.Bool
		doc.OCRProcessed = &v
	}

	return &doc, nil
}

// UpdateDocumentStatus transitions a document's status and optional
// bookkeeping fields. Used for the PROCESSING transition, the
// post-OCR flush, and the terminal update.
func (p *PostgresStore) UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, pageCount *int, ocrProcessed *bool, errorMessage string) error {
	query := `
		UPDATE core.documents
		SET status = $2,
		    page_count = COALESCE($3, page_count),
		    ocr_processed = COALESCE($4, ocr_processed),
		    error_message = NULLIF($5, ''),
		    updated_at = NOW()
		WHERE id = $1::uuid
	`
	_, err := p.db.ExecContext(ctx, query, id, string(status), pageCount, ocrProcessed, errorMessage)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// UpsertBorrower persists one reconciled borrower row, along with its
// income history and source references. Individual borrower failures
// are the caller's concern; this method reports its own error only.
func (p *PostgresStore) UpsertBorrower(ctx context.Context, documentID string, b domain.BorrowerRecord) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var address []byte
	if b.Address != nil {
		address, err = json.Marshal(b.Address)
		if err != nil {
			return fmt.Errorf("marshal address: %w", err)
		}
	}

	confidence := sanitizeConfidence(b.ConfidenceScore)

	query := `
		INSERT INTO core.borrowers (
			id, document_id, name, ssn_hash, phone, email, address,
			account_numbers, loan_numbers, confidence_score, requires_review,
			created_at, updated_at
		) VALUES (
			$1::uuid, $2::uuid, $3, NULLIF($4, ''), $5, $6, $7::jsonb,
			$8, $9, $10, $11, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			ssn_hash = EXCLUDED.ssn_hash,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			address = EXCLUDED.address,
			account_numbers = EXCLUDED.account_numbers,
			loan_numbers = EXCLUDED.loan_numbers,
			confidence_score = EXCLUDED.confidence_score,
			requires_review = EXCLUDED.requires_review,
			updated_at = NOW()
	`

	_, err = tx.ExecContext(ctx, query,
		b.ID, documentID, b.Name, hashSSN(b.SSN), b.Phone, b.Email, nullableJSON(address),
		pq.Array(b.AccountNumbers), pq.Array(b.LoanNumbers), confidence, b.RequiresReview,
	)
	if err != nil {
		return fmt.Errorf("upsert borrower: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM core.income_records WHERE borrower_id = $1::uuid`, b.ID); err != nil {
		return fmt.Errorf("clear income records: %w", err)
	}
	for _, inc := range b.IncomeHistory {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO core.income_records (borrower_id, amount, period, year, source_type, employer)
			VALUES ($1::uuid, $2, $3, $4, $5, $6)
		`, b.ID, inc.Amount, inc.Period, inc.Year, inc.SourceType, inc.Employer)
		if err != nil {
			return fmt.Errorf("insert income record: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM core.source_references WHERE borrower_id = $1::uuid`, b.ID); err != nil {
		return fmt.Errorf("clear source references: %w", err)
	}
	for _, src := range b.Sources {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO core.source_references (
				borrower_id, document_id, document_name, page_number, section, snippet,
				char_start, char_end
			) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8)
		`, b.ID, src.DocumentID, src.DocumentName, src.PageNumber, nullableString(src.Section), src.Snippet,
			nullableOffset(src.CharStart), nullableOffset(src.CharEnd))
		if err != nil {
			return fmt.Errorf("insert source reference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableOffset(n int) interface{} {
	if n < 0 {
		return nil
	}
	return n
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
