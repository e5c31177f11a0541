package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/cbt-marketplace/apiserver/types"
	"github.com/google/uuid"
)

const institutionColumns = `id, user_id, name, description, address, services, contacts, is_verified, psychologists_count, created_at, updated_at`

// InstitutionRepository handles persistence for institution profiles.
type InstitutionRepository struct {
	db *sql.DB
}

func NewInstitutionRepository(db *sql.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

func scanInstitution(row rowScanner) (types.Institution, error) {
	var inst types.Institution
	var servicesJSON, contactsJSON []byte
	if err := row.Scan(
		&inst.ID,
		&inst.UserID,
		&inst.Name,
		&inst.Description,
		&inst.Address,
		&servicesJSON,
		&contactsJSON,
		&inst.IsVerified,
		&inst.PsychologistsCount,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	); err != nil {
		return types.Institution{}, err
	}

	_ = json.Unmarshal(servicesJSON, &inst.Services)
	_ = json.Unmarshal(contactsJSON, &inst.Contacts)
	return inst, nil
}

func (r *InstitutionRepository) Get(ctx context.Context, id string) (types.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE id = $1`
	inst, err := scanInstitution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Institution{}, ErrNotFound
		}
		return types.Institution{}, err
	}
	return inst, nil
}

func (r *InstitutionRepository) List(ctx context.Context, filter types.InstitutionFilter, offset, limit int) ([]types.Institution, int, error) {
	where := institutionWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM institutions`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageClause, args := where.page(offset, limit)
	query := `SELECT ` + institutionColumns + ` FROM institutions` + where.String() + ` ORDER BY created_at, id` + pageClause
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	institutions := make([]types.Institution, 0)
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, 0, err
		}
		institutions = append(institutions, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return institutions, total, nil
}

func (r *InstitutionRepository) Create(ctx context.Context, inst types.Institution) (types.Institution, error) {
	now := time.Now()
	inst.ID = uuid.NewString()
	inst.CreatedAt = now
	inst.UpdatedAt = now

	servicesJSON, err := jsonArray(inst.Services)
	if err != nil {
		return types.Institution{}, err
	}
	contactsJSON, err := jsonObject(inst.Contacts)
	if err != nil {
		return types.Institution{}, err
	}

	const query = `
		INSERT INTO institutions (id, user_id, name, description, address, services, contacts, is_verified, psychologists_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		inst.ID,
		inst.UserID,
		inst.Name,
		inst.Description,
		inst.Address,
		servicesJSON,
		contactsJSON,
		inst.IsVerified,
		inst.PsychologistsCount,
		inst.CreatedAt,
		inst.UpdatedAt,
	); err != nil {
		return types.Institution{}, translateError(err)
	}
	return inst, nil
}

// Update writes the editable columns and the verification flag.
// psychologists_count is derived and only written by RefreshPsychologistCount.
func (r *InstitutionRepository) Update(ctx context.Context, inst types.Institution) (types.Institution, error) {
	inst.UpdatedAt = time.Now()

	servicesJSON, err := jsonArray(inst.Services)
	if err != nil {
		return types.Institution{}, err
	}
	contactsJSON, err := jsonObject(inst.Contacts)
	if err != nil {
		return types.Institution{}, err
	}

	const query = `
		UPDATE institutions
		SET name = $1,
			description = $2,
			address = $3,
			services = $4,
			contacts = $5,
			is_verified = $6,
			updated_at = $7
		WHERE id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		inst.Name,
		inst.Description,
		inst.Address,
		servicesJSON,
		contactsJSON,
		inst.IsVerified,
		inst.UpdatedAt,
		inst.ID,
	)
	if err != nil {
		return types.Institution{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Institution{}, err
	}
	if affected == 0 {
		return types.Institution{}, ErrNotFound
	}
	return inst, nil
}

// RefreshPsychologistCount recomputes the cached number of psychologists
// attached to the institution.
func (r *InstitutionRepository) RefreshPsychologistCount(ctx context.Context, id string) (int, error) {
	const query = `
		UPDATE institutions
		SET psychologists_count = (SELECT COUNT(1) FROM psychologists WHERE institution_id = $1)
		WHERE id = $1
		RETURNING psychologists_count`
	var count int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

