package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pocket/internal/core"
)

const payoutColumns = `id, user_id, person_id, person_name, person_email, amount_cents, type, status, due_date,
	notes, paid_at, created_at, updated_at`

// CreatePayout inserts p and links it to a person, creating the person when
// no existing one matches the name case-insensitively.
func (r *SQLiteRepository) CreatePayout(ctx context.Context, p core.Payout) (core.Payout, error) {
	now := r.now().UTC()
	p.ID = newID()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		person, err := resolvePerson(ctx, tx, p.UserID, p.PersonID, p.PersonName, p.PersonEmail, now)
		if err != nil {
			return err
		}
		p.PersonID = person.ID
		p.PersonName = person.Name

		_, err = tx.ExecContext(ctx,
			`INSERT INTO payouts (`+payoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.UserID, p.PersonID, p.PersonName, p.PersonEmail, p.Amount.Cents, string(p.Type),
			string(p.Status), toMillis(p.DueDate), p.Notes, nullMillis(p.PaidAt),
			toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert payout: %w", err)
		}
		return enqueueSync(ctx, tx, EntityPayout, p.ID, p.UserID, SyncUpsert, now)
	})
	if err != nil {
		return core.Payout{}, err
	}
	return p, nil
}

// UpdatePayout replaces the editable fields of p, relinking the person when
// the name changed.
func (r *SQLiteRepository) UpdatePayout(ctx context.Context, p core.Payout) (core.Payout, error) {
	now := r.now().UTC()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		person, err := resolvePerson(ctx, tx, p.UserID, p.PersonID, p.PersonName, p.PersonEmail, now)
		if err != nil {
			return err
		}
		p.PersonID = person.ID
		p.PersonName = person.Name

		res, err := tx.ExecContext(ctx,
			`UPDATE payouts SET person_id = ?, person_name = ?, person_email = ?, amount_cents = ?, type = ?,
			 status = ?, due_date = ?, notes = ?, paid_at = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			p.PersonID, p.PersonName, p.PersonEmail, p.Amount.Cents, string(p.Type), string(p.Status),
			toMillis(p.DueDate), p.Notes, nullMillis(p.PaidAt), toMillis(now), p.ID, p.UserID)
		if err != nil {
			return fmt.Errorf("update payout: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		return enqueueSync(ctx, tx, EntityPayout, p.ID, p.UserID, SyncUpsert, now)
	})
	if err != nil {
		return core.Payout{}, err
	}
	return r.GetPayout(ctx, p.UserID, p.ID)
}

func (r *SQLiteRepository) DeletePayout(ctx context.Context, userID, id string) error {
	now := r.now().UTC()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM payouts WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete payout: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		return enqueueSync(ctx, tx, EntityPayout, id, userID, SyncDelete, now)
	})
}

func (r *SQLiteRepository) GetPayout(ctx context.Context, userID, id string) (core.Payout, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPayout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payout{}, ErrNotFound
	}
	return p, err
}

// ListPayouts returns the user's payouts, newest first.
func (r *SQLiteRepository) ListPayouts(ctx context.Context, userID string) ([]core.Payout, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	payouts := []core.Payout{}
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// ListPeople returns the user's people ordered by name. Balance fields are
// left zero; they are derived from payouts by the caller.
func (r *SQLiteRepository) ListPeople(ctx context.Context, userID string) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, email, created_at FROM people WHERE user_id = ? ORDER BY normalized_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	people := []core.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (r *SQLiteRepository) GetPerson(ctx context.Context, userID, id string) (core.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, email, created_at FROM people WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Person{}, ErrNotFound
	}
	return p, err
}

// resolvePerson finds the person a payout belongs to. An explicit personID
// must belong to the user; otherwise the name is matched case-insensitively
// and a new person is created on a miss.
func resolvePerson(ctx context.Context, tx *sql.Tx, userID, personID, name, email string, now time.Time) (core.Person, error) {
	const q = `SELECT id, user_id, name, email, created_at FROM people WHERE user_id = ? AND `
	if personID != "" {
		p, err := scanPerson(tx.QueryRowContext(ctx, q+`id = ?`, userID, personID))
		if errors.Is(err, sql.ErrNoRows) {
			return core.Person{}, ErrNotFound
		}
		return p, err
	}

	normalized := core.NormalizeName(name)
	p, err := scanPerson(tx.QueryRowContext(ctx, q+`normalized_name = ?`, userID, normalized))
	switch {
	case err == nil:
		if p.Email == "" && strings.TrimSpace(email) != "" {
			p.Email = strings.TrimSpace(email)
			if _, err := tx.ExecContext(ctx, `UPDATE people SET email = ? WHERE id = ?`, p.Email, p.ID); err != nil {
				return core.Person{}, fmt.Errorf("update person email: %w", err)
			}
			if err := enqueueSync(ctx, tx, EntityPerson, p.ID, userID, SyncUpsert, now); err != nil {
				return core.Person{}, err
			}
		}
		return p, nil
	case !errors.Is(err, sql.ErrNoRows):
		return core.Person{}, err
	}

	p = core.Person{
		ID:        newID(),
		UserID:    userID,
		Name:      strings.Join(strings.Fields(name), " "),
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO people (id, user_id, name, normalized_name, email, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, normalized, p.Email, toMillis(p.CreatedAt))
	if err != nil {
		return core.Person{}, fmt.Errorf("insert person: %w", err)
	}
	if err := enqueueSync(ctx, tx, EntityPerson, p.ID, userID, SyncUpsert, now); err != nil {
		return core.Person{}, err
	}
	return p, nil
}

func scanPayout(row scanner) (core.Payout, error) {
	var (
		p                     core.Payout
		typ, status           string
		due, created, updated int64
		paidAt                sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.PersonID, &p.PersonName, &p.PersonEmail, &p.Amount.Cents, &typ,
		&status, &due, &p.Notes, &paidAt, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Payout{}, err
		}
		return core.Payout{}, fmt.Errorf("scan payout: %w", err)
	}
	p.Type = core.PayoutType(typ)
	p.Status = core.PayoutStatus(status)
	p.DueDate = fromMillis(due)
	p.PaidAt = fromNullMillis(paidAt)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func scanPerson(row scanner) (core.Person, error) {
	var (
		p       core.Person
		created int64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Person{}, err
		}
		return core.Person{}, fmt.Errorf("scan person: %w", err)
	}
	p.CreatedAt = fromMillis(created)
	return p, nil
}
