package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ethforwarder/internal/models"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// EnsureSchema creates the deployments table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS deployments (
			id SERIAL PRIMARY KEY,
			contract_address TEXT NOT NULL UNIQUE,
			recipient_address TEXT NOT NULL,
			deployer_address TEXT NOT NULL,
			network TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// ListDeployments returns all deployment records in insertion order
func (r *PostgresRepository) ListDeployments(ctx context.Context) ([]models.Deployment, error) {
	query := `
		SELECT id, contract_address, recipient_address, deployer_address, network, created_at
		FROM deployments
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []models.Deployment

	for rows.Next() {
		var d models.Deployment

		err := rows.Scan(
			&d.ID,
			&d.ContractAddress,
			&d.RecipientAddress,
			&d.DeployerAddress,
			&d.Network,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}

		deployments = append(deployments, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deployments: %w", err)
	}

	return deployments, nil
}

// CreateDeployment saves a new deployment record and returns it with the
// store-assigned id and creation time
func (r *PostgresRepository) CreateDeployment(ctx context.Context, in models.InsertDeployment) (*models.Deployment, error) {
	query := `
		INSERT INTO deployments (contract_address, recipient_address, deployer_address, network)
		VALUES ($1, $2, $3, $4)
		RETURNING id, contract_address, recipient_address, deployer_address, network, created_at
	`

	var d models.Deployment
	err := r.pool.QueryRow(ctx, query,
		in.ContractAddress,
		in.RecipientAddress,
		in.DeployerAddress,
		in.Network,
	).Scan(
		&d.ID,
		&d.ContractAddress,
		&d.RecipientAddress,
		&d.DeployerAddress,
		&d.Network,
		&d.CreatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrDuplicateContract
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment: %w", err)
	}

	return &d, nil
}

// UpdateDeploymentRecipient overwrites the recipient of an existing record
func (r *PostgresRepository) UpdateDeploymentRecipient(ctx context.Context, id int, recipientAddress string) (*models.Deployment, error) {
	query := `
		UPDATE deployments
		SET recipient_address = $2
		WHERE id = $1
		RETURNING id, contract_address, recipient_address, deployer_address, network, created_at
	`

	var d models.Deployment
	err := r.pool.QueryRow(ctx, query, id, recipientAddress).Scan(
		&d.ID,
		&d.ContractAddress,
		&d.RecipientAddress,
		&d.DeployerAddress,
		&d.Network,
		&d.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update deployment recipient: %w", err)
	}

	return &d, nil
}

// Ping checks if the database connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
