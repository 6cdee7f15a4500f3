package postgres

import (
	"context"
	"fmt"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// TokenStore implements storage.TokenStore backed by PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new Postgres token store.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (address, name, symbol, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, t.Address, t.Name, t.Symbol, t.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// GetByAddress retrieves a token by mint address.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT address, name, symbol, created_at
		FROM tokens
		WHERE address = $1
	`

	var t domain.Token
	err := s.pool.QueryRow(ctx, query, address).Scan(&t.Address, &t.Name, &t.Symbol, &t.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}

	return &t, nil
}

// GetAll retrieves all tokens ordered by created_at ASC.
func (s *TokenStore) GetAll(ctx context.Context) ([]*domain.Token, error) {
	query := `
		SELECT address, name, symbol, created_at
		FROM tokens
		ORDER BY created_at, address
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(&t.Address, &t.Name, &t.Symbol, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return tokens, nil
}
