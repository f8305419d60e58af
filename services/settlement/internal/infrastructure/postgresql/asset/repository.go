package asset

import (
	"context"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	assetv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/asset/v1"
)

const upsertQuery = `INSERT INTO assets (id, name, quotable, delisted_at) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, quotable = EXCLUDED.quotable, delisted_at = EXCLUDED.delisted_at`

const isQuotableQuery = `SELECT EXISTS (SELECT 1 FROM assets WHERE id = $1 AND quotable AND delisted_at IS NULL)`

const listQuery = `SELECT id, name, quotable, delisted_at FROM assets ORDER BY id ASC`

// Repository reads and writes listed assets. It serves as the quote asset
// registry.
type Repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a new asset repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the asset or overwrites the stored one.
func (r *Repository) Upsert(ctx context.Context, asset *assetv1.Asset) error {
	if _, err := r.db.Exec(ctx, upsertQuery, asset.ID, asset.Name, asset.Quotable, asset.DelistedAt); err != nil {
		return errors.Persistence("failed to upsert asset", err)
	}

	r.logger.InfoContext(ctx, "Asset registered",
		logger.Field{Key: "assetID", Value: asset.ID},
		logger.Field{Key: "quotable", Value: asset.IsQuotable()},
	)
	return nil
}

// IsQuotable reports whether assetID is listed, quotable and not delisted.
func (r *Repository) IsQuotable(ctx context.Context, assetID string) (bool, error) {
	var quotable bool
	if err := r.db.QueryRow(ctx, isQuotableQuery, assetID).Scan(&quotable); err != nil {
		return false, errors.Persistence("failed to look up asset", err)
	}
	return quotable, nil
}

// List returns all assets ordered by id.
func (r *Repository) List(ctx context.Context) ([]*assetv1.Asset, error) {
	rows, err := r.db.Query(ctx, listQuery)
	if err != nil {
		return nil, errors.Persistence("failed to list assets", err)
	}
	defer rows.Close()

	assets := make([]*assetv1.Asset, 0)
	for rows.Next() {
		a := &assetv1.Asset{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Quotable, &a.DelistedAt); err != nil {
			return nil, errors.Persistence("failed to scan asset", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to list assets", err)
	}
	return assets, nil
}
