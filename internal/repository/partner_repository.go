package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tintd/salon-dispatch/internal/model"
)

// PartnerRepo reads and updates partner records. Duty reads always hit the
// database; roster changes must be visible to the next fan-out.
type PartnerRepo struct {
	db *sql.DB
}

func NewPartnerRepo(db *sql.DB) *PartnerRepo { return &PartnerRepo{db: db} }

const partnerColumns = `id, code, name, email, phone, approval, on_duty, push_token, created_at, updated_at`

func scanPartner(row rowScanner) (*model.Partner, error) {
	var (
		p           model.Partner
		code, token sql.NullString
	)
	if err := row.Scan(&p.ID, &code, &p.Name, &p.Email, &p.Phone, &p.Approval, &p.OnDuty, &token,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Code = nullString(code)
	p.PushToken = nullString(token)
	return &p, nil
}

// Create inserts a partner in the pending approval state.
func (r *PartnerRepo) Create(ctx context.Context, p *model.Partner) error {
	const q = `INSERT INTO partners (` + partnerColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.Code, p.Name, p.Email, p.Phone, p.Approval, p.OnDuty,
		p.PushToken, p.CreatedAt, p.UpdatedAt)
	if duplicateOn(err, "uq_partners_email") {
		return ErrDuplicateEmail
	}
	return err
}

// Get fetches a partner by id.
func (r *PartnerRepo) Get(ctx context.Context, id string) (*model.Partner, error) {
	p, err := scanPartner(r.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListOnDuty returns approved partners currently on duty.
func (r *PartnerRepo) ListOnDuty(ctx context.Context) ([]model.Partner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE approval = 'approved' AND on_duty = TRUE ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Partner, 0)
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SetDuty toggles the on-duty flag.
func (r *PartnerRepo) SetDuty(ctx context.Context, id string, on bool) error {
	return r.update(ctx, `UPDATE partners SET on_duty = ?, updated_at = ? WHERE id = ?`, on, time.Now().UTC(), id)
}

// SetPushToken stores or clears the device token.
func (r *PartnerRepo) SetPushToken(ctx context.Context, id string, token *string) error {
	return r.update(ctx, `UPDATE partners SET push_token = ?, updated_at = ? WHERE id = ?`, token, time.Now().UTC(), id)
}

// SetApproval records an approval decision. A nil code keeps the existing one.
func (r *PartnerRepo) SetApproval(ctx context.Context, id string, a model.Approval, code *string) error {
	return r.update(ctx, `UPDATE partners SET approval = ?, code = COALESCE(?, code), updated_at = ? WHERE id = ?`,
		a, code, time.Now().UTC(), id)
}

// update runs a single-row write; a missing row is ErrNotFound.
func (r *PartnerRepo) update(ctx context.Context, q string, args ...any) error {
	ok, err := affected(r.db.ExecContext(ctx, q, args...))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
