package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Pool hands out the shared database handle. *db.Manager satisfies it.
type Pool interface {
	Acquire(ctx context.Context) (*sql.DB, error)
}

// acquire normalizes every pool failure to ErrUnavailable.
func acquire(ctx context.Context, pool Pool) (*sql.DB, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return conn, nil
}
