// Package pg implementa el record store sobre Postgres con pgx.
//
// La serialización de updates concurrentes se apoya en la columna version:
// el UPDATE condiciona sobre (id, version) y un rowcount cero distingue entre
// registro inexistente y stale write.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ pool *pgxpool.Pool }

// Tuning son los knobs del pool expuestos en la config.
type Tuning struct {
	MaxOpenConns    int
	MinIdleConns    int
	ConnMaxLifetime string
}

// New abre el pool y hace un ping best effort: si la base está caída el
// proceso igual arranca y los requests fallan como técnicos hasta que vuelva.
func New(ctx context.Context, dsn string, tuning Tuning) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if tuning.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(tuning.MaxOpenConns)
	}
	if tuning.MinIdleConns > 0 {
		pcfg.MinConns = int32(tuning.MinIdleConns)
	}
	if tuning.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(tuning.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("pg pool startup ping failed", logger.Err(err))
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (migraciones, health checks).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

const selectColumns = `id, parent_id, authorisation_type, sca_status, sca_approach,
	psu_id, psu_id_type, psu_corporate_id, psu_corporate_id_type,
	chosen_sca_method, available_sca_methods, sca_authentication_data,
	failed_attempts, redirect_uri, nok_redirect_uri, version, created_at, expires_at`

func (s *Store) Get(ctx context.Context, authorisationID string) (*repository.Authorisation, error) {
	q := `SELECT ` + selectColumns + ` FROM sca_authorisation WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, authorisationID)
	a, err := scanAuthorisation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: get authorisation: %w", err)
	}
	return a, nil
}

func (s *Store) Create(ctx context.Context, a *repository.Authorisation) error {
	chosen, available, err := encodeMethods(a)
	if err != nil {
		return err
	}
	const q = `INSERT INTO sca_authorisation (
		id, parent_id, authorisation_type, sca_status, sca_approach,
		psu_id, psu_id_type, psu_corporate_id, psu_corporate_id_type,
		chosen_sca_method, available_sca_methods, sca_authentication_data,
		failed_attempts, redirect_uri, nok_redirect_uri, version, created_at, expires_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err = s.pool.Exec(ctx, q,
		a.ID, a.ParentID, string(a.Type), string(a.ScaStatus), string(a.ScaApproach),
		a.PsuData.PsuID, a.PsuData.PsuIDType, a.PsuData.PsuCorporateID, a.PsuData.PsuCorporateIDType,
		chosen, available, a.ScaAuthenticationData,
		a.FailedAttempts, a.RedirectURI, a.NokRedirectURI, a.Version, a.CreatedAt, nullableTime(a.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("pg: create authorisation: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, a *repository.Authorisation) error {
	chosen, available, err := encodeMethods(a)
	if err != nil {
		return err
	}
	const q = `UPDATE sca_authorisation SET
		sca_status = $1,
		psu_id = $2, psu_id_type = $3, psu_corporate_id = $4, psu_corporate_id_type = $5,
		chosen_sca_method = $6, available_sca_methods = $7, sca_authentication_data = $8,
		failed_attempts = $9, version = version + 1
	WHERE id = $10 AND version = $11`
	tag, err := s.pool.Exec(ctx, q,
		string(a.ScaStatus),
		a.PsuData.PsuID, a.PsuData.PsuIDType, a.PsuData.PsuCorporateID, a.PsuData.PsuCorporateIDType,
		chosen, available, a.ScaAuthenticationData,
		a.FailedAttempts, a.ID, a.Version,
	)
	if err != nil {
		return fmt.Errorf("pg: save authorisation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguir inexistente de stale write.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sca_authorisation WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
			return fmt.Errorf("pg: save authorisation: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

func (s *Store) ListByParent(ctx context.Context, parentID string, t types.AuthorisationType) ([]string, error) {
	const q = `SELECT id FROM sca_authorisation
		WHERE parent_id = $1 AND authorisation_type = $2
		ORDER BY created_at, id`
	rows, err := s.pool.Query(ctx, q, parentID, string(t))
	if err != nil {
		return nil, fmt.Errorf("pg: list authorisations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanAuthorisation(row pgx.Row) (*repository.Authorisation, error) {
	var (
		a         repository.Authorisation
		authType  string
		status    string
		approach  string
		chosen    []byte
		available []byte
		expiresAt *time.Time
	)
	err := row.Scan(
		&a.ID, &a.ParentID, &authType, &status, &approach,
		&a.PsuData.PsuID, &a.PsuData.PsuIDType, &a.PsuData.PsuCorporateID, &a.PsuData.PsuCorporateIDType,
		&chosen, &available, &a.ScaAuthenticationData,
		&a.FailedAttempts, &a.RedirectURI, &a.NokRedirectURI, &a.Version, &a.CreatedAt, &expiresAt,
	)
	if err != nil {
		return nil, err
	}
	a.Type = types.AuthorisationType(authType)
	a.ScaStatus = types.ScaStatus(status)
	a.ScaApproach = types.ScaApproach(approach)
	if expiresAt != nil {
		a.ExpiresAt = *expiresAt
	}
	if len(chosen) > 0 {
		var m types.AuthenticationObject
		if err := json.Unmarshal(chosen, &m); err != nil {
			return nil, fmt.Errorf("pg: decode chosen method: %w", err)
		}
		a.ChosenScaMethod = &m
	}
	if len(available) > 0 {
		if err := json.Unmarshal(available, &a.AvailableScaMethods); err != nil {
			return nil, fmt.Errorf("pg: decode available methods: %w", err)
		}
	}
	return &a, nil
}

func encodeMethods(a *repository.Authorisation) (chosen, available []byte, err error) {
	if a.ChosenScaMethod != nil {
		chosen, err = json.Marshal(a.ChosenScaMethod)
		if err != nil {
			return nil, nil, fmt.Errorf("pg: encode chosen method: %w", err)
		}
	}
	if a.AvailableScaMethods != nil {
		available, err = json.Marshal(a.AvailableScaMethods)
		if err != nil {
			return nil, nil, fmt.Errorf("pg: encode available methods: %w", err)
		}
	}
	return chosen, available, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
