package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"
	"github.com/vistoria/inspection/internal/models"
	"go.uber.org/zap"
)

const duckSchema = `
CREATE TABLE IF NOT EXISTS inspections (
	id              VARCHAR PRIMARY KEY,
	property        VARCHAR NOT NULL,
	inspection_date VARCHAR NOT NULL,
	inspector       VARCHAR NOT NULL,
	status          VARCHAR NOT NULL,
	notes           VARCHAR,
	submitted_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS inspection_items (
	inspection_id  VARCHAR NOT NULL,
	seq            INTEGER NOT NULL,
	item_id        VARCHAR NOT NULL,
	name           VARCHAR NOT NULL,
	checked        BOOLEAN NOT NULL,
	notes          VARCHAR,
	item_condition VARCHAR NOT NULL
);
CREATE TABLE IF NOT EXISTS inspection_images (
	inspection_id VARCHAR NOT NULL,
	seq           INTEGER NOT NULL,
	image_id      VARCHAR NOT NULL,
	name          VARCHAR,
	size          BIGINT,
	content_type  VARCHAR,
	uploaded_at   TIMESTAMP
);
`

// DuckRepository stores inspections in a DuckDB database file.
type DuckRepository struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
}

// NewDuckRepository opens (or creates) the database at dbPath and ensures the schema.
func NewDuckRepository(dbPath string, logger *zap.Logger) (*DuckRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if _, err := db.Exec(duckSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("duckdb repository ready", zap.String("path", dbPath))
	return &DuckRepository{db: db, dbPath: dbPath, logger: logger}, nil
}

// Save writes the inspection with its items and images in one transaction.
func (r *DuckRepository) Save(ctx context.Context, record models.Inspection) (string, error) {
	id := uuid.New().String()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO inspections (id, property, inspection_date, inspector, status, notes, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, record.Property, record.Date, record.Inspector, string(record.Status), record.Notes, record.SubmittedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("insert inspection: %w", err)
	}

	for i, item := range record.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO inspection_items (inspection_id, seq, item_id, name, checked, notes, item_condition)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, item.ID, item.Name, item.Checked, item.Notes, string(item.Condition))
		if err != nil {
			return "", fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}

	for i, img := range record.Images {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO inspection_images (inspection_id, seq, image_id, name, size, content_type, uploaded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, img.ID, img.Name, img.Size, img.ContentType, img.UploadedAt.UTC())
		if err != nil {
			return "", fmt.Errorf("insert image %s: %w", img.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Get loads one inspection with its items and images in stored order.
func (r *DuckRepository) Get(ctx context.Context, id string) (*models.Inspection, error) {
	var (
		record models.Inspection
		status string
		notes  sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, property, inspection_date, inspector, status, notes, submitted_at
		 FROM inspections WHERE id = ?`, id).
		Scan(&record.ID, &record.Property, &record.Date, &record.Inspector, &status, &notes, &record.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inspection: %w", err)
	}
	record.Status = models.Status(status)
	record.Notes = notes.String
	record.SubmittedAt = record.SubmittedAt.UTC()

	if record.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	if record.Images, err = r.images(ctx, id); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *DuckRepository) items(ctx context.Context, id string) ([]models.InspectionItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id, name, checked, notes, item_condition
		 FROM inspection_items WHERE inspection_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]models.InspectionItem, 0)
	for rows.Next() {
		var (
			item      models.InspectionItem
			notes     sql.NullString
			condition string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Checked, &notes, &condition); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Notes = notes.String
		item.Condition = models.Condition(condition)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *DuckRepository) images(ctx context.Context, id string) ([]models.Attachment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT image_id, name, size, content_type, uploaded_at
		 FROM inspection_images WHERE inspection_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	images := make([]models.Attachment, 0)
	for rows.Next() {
		var (
			img         models.Attachment
			name, ctype sql.NullString
			size        sql.NullInt64
			uploadedAt  sql.NullTime
		)
		if err := rows.Scan(&img.ID, &name, &size, &ctype, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		img.Name = name.String
		img.Size = size.Int64
		img.ContentType = ctype.String
		if uploadedAt.Valid {
			img.UploadedAt = uploadedAt.Time.UTC()
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// List returns up to limit inspections, most recently submitted first.
// A non-positive limit returns all of them.
func (r *DuckRepository) List(ctx context.Context, limit int) ([]models.Inspection, error) {
	query := `SELECT id FROM inspections ORDER BY submitted_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Inspection, 0, len(ids))
	for _, id := range ids {
		record, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	return out, nil
}

// Close closes the database.
func (r *DuckRepository) Close() error {
	start := time.Now()
	err := r.db.Close()
	r.logger.Debug("duckdb repository closed", zap.Duration("took", time.Since(start)))
	return err
}
