package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/soochol/agentflow/internal/agentflow"
)

// PutDocument inserts doc or replaces the stored row with the same id. The
// caller assigns id, owner and timestamps.
func (d *DB) PutDocument(ctx context.Context, doc *agentflow.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO workflow_documents (id, user_id, name, document, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.UserID, doc.Name, body, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetDocument returns the document with id owned by userID.
func (d *DB) GetDocument(ctx context.Context, userID, id string) (*agentflow.Document, error) {
	var body []byte
	err := d.Pool.QueryRowContext(ctx,
		`SELECT document FROM workflow_documents WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", agentflow.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return unmarshalDocument(body)
}

// ListDocuments returns userID's documents, most recently updated first.
func (d *DB) ListDocuments(ctx context.Context, userID string) ([]*agentflow.Document, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT document FROM workflow_documents WHERE user_id = $1 ORDER BY updated_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var result []*agentflow.Document
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := unmarshalDocument(body)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, rows.Err()
}

// DeleteDocument removes the document with id owned by userID.
func (d *DB) DeleteDocument(ctx context.Context, userID, id string) error {
	res, err := d.Pool.ExecContext(ctx,
		`DELETE FROM workflow_documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", agentflow.ErrNotFound, id)
	}
	return nil
}

func unmarshalDocument(body []byte) (*agentflow.Document, error) {
	var doc agentflow.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}
