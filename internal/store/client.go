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

const clientColumns = `id, user_id, preferences, saved_psychologists, saved_institutions, created_at, updated_at`

// ClientRepository handles persistence for client profiles.
type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func scanClient(row rowScanner) (types.Client, error) {
	var client types.Client
	var prefsJSON, savedPsychJSON, savedInstJSON []byte
	if err := row.Scan(
		&client.ID,
		&client.UserID,
		&prefsJSON,
		&savedPsychJSON,
		&savedInstJSON,
		&client.CreatedAt,
		&client.UpdatedAt,
	); err != nil {
		return types.Client{}, err
	}

	_ = json.Unmarshal(prefsJSON, &client.Preferences)
	_ = json.Unmarshal(savedPsychJSON, &client.SavedPsychologists)
	_ = json.Unmarshal(savedInstJSON, &client.SavedInstitutions)
	return client, nil
}

func (r *ClientRepository) GetByUserID(ctx context.Context, userID string) (types.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE user_id = $1`
	client, err := scanClient(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Client{}, ErrNotFound
		}
		return types.Client{}, err
	}
	return client, nil
}

// insertClient stores a new client profile. Profiles are only created
// together with their user, see UserRepository.CreateWithClient.
func insertClient(ctx context.Context, exec execer, client types.Client) (types.Client, error) {
	now := time.Now()
	client.ID = uuid.NewString()
	client.CreatedAt = now
	client.UpdatedAt = now

	prefsJSON, err := jsonObject(client.Preferences)
	if err != nil {
		return types.Client{}, err
	}
	savedPsychJSON, err := jsonArray(client.SavedPsychologists)
	if err != nil {
		return types.Client{}, err
	}
	savedInstJSON, err := jsonArray(client.SavedInstitutions)
	if err != nil {
		return types.Client{}, err
	}

	const query = `
		INSERT INTO clients (id, user_id, preferences, saved_psychologists, saved_institutions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := exec.ExecContext(
		ctx,
		query,
		client.ID,
		client.UserID,
		prefsJSON,
		savedPsychJSON,
		savedInstJSON,
		client.CreatedAt,
		client.UpdatedAt,
	); err != nil {
		return types.Client{}, translateError(err)
	}
	return client, nil
}

func (r *ClientRepository) Update(ctx context.Context, client types.Client) (types.Client, error) {
	client.UpdatedAt = time.Now()

	prefsJSON, err := jsonObject(client.Preferences)
	if err != nil {
		return types.Client{}, err
	}
	savedPsychJSON, err := jsonArray(client.SavedPsychologists)
	if err != nil {
		return types.Client{}, err
	}
	savedInstJSON, err := jsonArray(client.SavedInstitutions)
	if err != nil {
		return types.Client{}, err
	}

	const query = `
		UPDATE clients
		SET preferences = $1,
			saved_psychologists = $2,
			saved_institutions = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, prefsJSON, savedPsychJSON, savedInstJSON, client.UpdatedAt, client.ID)
	if err != nil {
		return types.Client{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Client{}, err
	}
	if affected == 0 {
		return types.Client{}, ErrNotFound
	}
	return client, nil
}

