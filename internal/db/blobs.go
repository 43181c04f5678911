package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"medical-summary/internal/storage"
)

type Blob struct {
	bun.BaseModel `bun:"table:blobs,alias:b"`
	Name          string    `bun:"name,pk"`
	ContentType   string    `bun:"content_type,notnull"`
	Data          []byte    `bun:"data,notnull,type:bytea"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// BlobStore keeps blobs in Postgres. It implements storage.BlobStore.
type BlobStore struct {
	db         *bun.DB
	publicBase string
}

func NewBlobStore(db *bun.DB, publicBase string) *BlobStore {
	return &BlobStore{db: db, publicBase: publicBase}
}

func (s *BlobStore) Store(ctx context.Context, data []byte, contentType, name string) (string, error) {
	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	blob := &Blob{Name: name, ContentType: contentType, Data: data}
	res, err := insertBlob(s.db, blob).Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", fmt.Errorf("%w: %s", storage.ErrExists, name)
	}
	log.Debug().Str("name", name).Int("bytes", len(data)).Msg("Stored blob in database")
	return storage.PublicURL(s.publicBase, name), nil
}

func (s *BlobStore) Retrieve(ctx context.Context, name string) (*storage.Blob, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	var blob Blob
	err := s.db.NewSelect().Model(&blob).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return &storage.Blob{Name: blob.Name, ContentType: blob.ContentType, Data: blob.Data}, nil
}

// insertBlob never replaces an existing row; a taken name affects no rows.
func insertBlob(db bun.IDB, blob *Blob) *bun.InsertQuery {
	return db.NewInsert().
		Model(blob).
		On("CONFLICT (name) DO NOTHING")
}
