package repository

import (
	"errors"
	"fmt"

	"inventory-catalog/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

const pgUniqueViolation = "23505"

// storageErr marks err as a persistence failure while keeping the cause
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isMongoDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
