package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tintd/salon-dispatch/internal/model"
)

// CatalogRepo reads priced services and combos. The catalog is owned by
// another system; this repository never writes.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// Lookup resolves keys to entries. Missing keys are absent from the result.
func (r *CatalogRepo) Lookup(ctx context.Context, keys []model.CatalogKey) (map[model.CatalogKey]model.CatalogEntry, error) {
	byKind := map[model.ItemKind][]any{}
	for _, k := range keys {
		byKind[k.Kind] = append(byKind[k.Kind], k.ID)
	}
	out := make(map[model.CatalogKey]model.CatalogEntry, len(keys))
	for kind, ids := range byKind {
		var table string
		switch kind {
		case model.ItemService:
			table = "services"
		case model.ItemCombo:
			table = "combos"
		default:
			return nil, fmt.Errorf("%w: unknown item_type %q", model.ErrInvalidLineItem, kind)
		}
		if err := r.lookupTable(ctx, table, kind, ids, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *CatalogRepo) lookupTable(ctx context.Context, table string, kind model.ItemKind, ids []any, out map[model.CatalogKey]model.CatalogEntry) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price FROM `+table+` WHERE id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		e := model.CatalogEntry{Kind: kind}
		if err := rows.Scan(&e.ID, &e.Name, &e.Price); err != nil {
			return err
		}
		out[model.CatalogKey{Kind: kind, ID: e.ID}] = e
	}
	return rows.Err()
}
