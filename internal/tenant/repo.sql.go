package tenant

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads tenant master data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the tenant row.
func (r *Repository) Get(ctx context.Context, tenantID int64) (Tenant, error) {
	var t Tenant
	err := r.pool.QueryRow(ctx, `SELECT id, name, apmc_name, gstin, address, mobile, is_active, created_at, updated_at
FROM tenants WHERE id=$1`, tenantID).
		Scan(&t.ID, &t.Name, &t.APMCName, &t.GSTIN, &t.Address, &t.Mobile, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}

// GSTSettings returns the raw gst_settings document from the tenant settings
// column, or nil when unset.
func (r *Repository) GSTSettings(ctx context.Context, tenantID int64) ([]byte, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT settings->'gst_settings' FROM tenants WHERE id=$1`, tenantID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return raw, nil
}

// ListActiveIDs returns the ids of all active tenants.
func (r *Repository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM tenants WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SettingsPort resolves stored rate settings for a tenant.
type SettingsPort interface {
	GSTSettings(ctx context.Context, tenantID int64) ([]byte, error)
}

// Rates resolves the effective RateSettings for a tenant: stored settings
// merged over the canonical defaults.
func Rates(ctx context.Context, repo SettingsPort, tenantID int64) (RateSettings, error) {
	raw, err := repo.GSTSettings(ctx, tenantID)
	if err != nil {
		return RateSettings{}, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return DefaultRates, nil
	}
	var stored RateSettings
	if err := json.Unmarshal(raw, &stored); err != nil {
		return RateSettings{}, err
	}
	return stored.Merge(DefaultRates), nil
}
