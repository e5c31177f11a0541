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

const psychologistColumns = `id, user_id, institution_id, description, experience, rating, reviews_count,
	specializations, languages, memberships, education, certifications, gallery, location, contacts,
	created_at, updated_at`

// PsychologistRepository handles persistence for psychologist profiles.
type PsychologistRepository struct {
	db *sql.DB
}

func NewPsychologistRepository(db *sql.DB) *PsychologistRepository {
	return &PsychologistRepository{db: db}
}

func scanPsychologist(row rowScanner) (types.Psychologist, error) {
	var p types.Psychologist
	var specJSON, langJSON, memberJSON, eduJSON, certJSON, galleryJSON, locationJSON, contactsJSON []byte
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.InstitutionID,
		&p.Description,
		&p.Experience,
		&p.Rating,
		&p.ReviewsCount,
		&specJSON,
		&langJSON,
		&memberJSON,
		&eduJSON,
		&certJSON,
		&galleryJSON,
		&locationJSON,
		&contactsJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return types.Psychologist{}, err
	}

	_ = json.Unmarshal(specJSON, &p.Specializations)
	_ = json.Unmarshal(langJSON, &p.Languages)
	_ = json.Unmarshal(memberJSON, &p.Memberships)
	_ = json.Unmarshal(eduJSON, &p.Education)
	_ = json.Unmarshal(certJSON, &p.Certifications)
	_ = json.Unmarshal(galleryJSON, &p.Gallery)
	_ = json.Unmarshal(locationJSON, &p.Location)
	_ = json.Unmarshal(contactsJSON, &p.Contacts)
	return p, nil
}

// psychologistJSON holds the encoded JSON columns of a profile, in column order.
type psychologistJSON struct {
	specializations, languages, memberships, education, certifications, gallery, location, contacts []byte
}

func encodePsychologist(p types.Psychologist) (psychologistJSON, error) {
	var enc psychologistJSON
	var err error
	lists := []struct {
		dst *[]byte
		val any
	}{
		{&enc.specializations, p.Specializations},
		{&enc.languages, p.Languages},
		{&enc.memberships, p.Memberships},
		{&enc.education, p.Education},
		{&enc.certifications, p.Certifications},
		{&enc.gallery, p.Gallery},
	}
	for _, item := range lists {
		if *item.dst, err = jsonArray(item.val); err != nil {
			return psychologistJSON{}, err
		}
	}
	if enc.location, err = jsonObject(p.Location); err != nil {
		return psychologistJSON{}, err
	}
	if enc.contacts, err = jsonObject(p.Contacts); err != nil {
		return psychologistJSON{}, err
	}
	return enc, nil
}

func (r *PsychologistRepository) Get(ctx context.Context, id string) (types.Psychologist, error) {
	query := `SELECT ` + psychologistColumns + ` FROM psychologists WHERE id = $1`
	p, err := scanPsychologist(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Psychologist{}, ErrNotFound
		}
		return types.Psychologist{}, err
	}
	return p, nil
}

func (r *PsychologistRepository) List(ctx context.Context, filter types.PsychologistFilter, offset, limit int) ([]types.Psychologist, int, error) {
	where := psychologistWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM psychologists`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageClause, args := where.page(offset, limit)
	query := `SELECT ` + psychologistColumns + ` FROM psychologists` + where.String() + ` ORDER BY rating DESC, created_at, id` + pageClause
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	psychologists := make([]types.Psychologist, 0)
	for rows.Next() {
		p, err := scanPsychologist(rows)
		if err != nil {
			return nil, 0, err
		}
		psychologists = append(psychologists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return psychologists, total, nil
}

func (r *PsychologistRepository) Create(ctx context.Context, p types.Psychologist) (types.Psychologist, error) {
	now := time.Now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	enc, err := encodePsychologist(p)
	if err != nil {
		return types.Psychologist{}, err
	}

	const query = `
		INSERT INTO psychologists (
			id, user_id, institution_id, description, experience, rating, reviews_count,
			specializations, languages, memberships, education, certifications, gallery, location, contacts,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		p.ID,
		p.UserID,
		p.InstitutionID,
		p.Description,
		p.Experience,
		p.Rating,
		p.ReviewsCount,
		enc.specializations,
		enc.languages,
		enc.memberships,
		enc.education,
		enc.certifications,
		enc.gallery,
		enc.location,
		enc.contacts,
		p.CreatedAt,
		p.UpdatedAt,
	); err != nil {
		return types.Psychologist{}, translateError(err)
	}
	return p, nil
}

func (r *PsychologistRepository) Update(ctx context.Context, p types.Psychologist) (types.Psychologist, error) {
	p.UpdatedAt = time.Now()

	enc, err := encodePsychologist(p)
	if err != nil {
		return types.Psychologist{}, err
	}

	const query = `
		UPDATE psychologists
		SET institution_id = $1,
			description = $2,
			experience = $3,
			rating = $4,
			reviews_count = $5,
			specializations = $6,
			languages = $7,
			memberships = $8,
			education = $9,
			certifications = $10,
			gallery = $11,
			location = $12,
			contacts = $13,
			updated_at = $14
		WHERE id = $15`
	result, err := r.db.ExecContext(
		ctx,
		query,
		p.InstitutionID,
		p.Description,
		p.Experience,
		p.Rating,
		p.ReviewsCount,
		enc.specializations,
		enc.languages,
		enc.memberships,
		enc.education,
		enc.certifications,
		enc.gallery,
		enc.location,
		enc.contacts,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return types.Psychologist{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Psychologist{}, err
	}
	if affected == 0 {
		return types.Psychologist{}, ErrNotFound
	}
	return p, nil
}

