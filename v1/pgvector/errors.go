package pgvector

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

var (
	// ErrInvalidIdentifier is returned for collection names that are not
	// plain Postgres identifiers.
	ErrInvalidIdentifier = errors.New("pgvector: invalid identifier")

	// ErrClientNotInitialized is returned when the gorm handle is missing.
	ErrClientNotInitialized = errors.New("pgvector: database client is not initialized")
)

// SQLSTATE codes the adapter distinguishes.
const (
	codeUndefinedTable     = "42P01"
	codeDuplicateTable     = "42P07"
	codeUndefinedObject    = "42704"
	codeInsufficientPriv   = "42501"
	codeInvalidTextRepr    = "22P02"
	codeDataException      = "22000"
	codeUniqueViolation    = "23505"
	codeInvalidCatalogName = "3D000"
)

// TranslateError maps driver errors onto the vectordb sentinels. Errors
// without a mapping are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable, codeInvalidCatalogName:
			return fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, pgErr.Message)
		case codeDuplicateTable:
			return fmt.Errorf("%w: %s", vectordb.ErrCollectionExists, pgErr.Message)
		case codeInvalidTextRepr, codeDataException, codeUniqueViolation:
			return fmt.Errorf("%w: %s", vectordb.ErrInvalidArgument, pgErr.Message)
		case codeUndefinedObject:
			return fmt.Errorf("%w: %s", vectordb.ErrUnsupported, pgErr.Message)
		}
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: duplicate id", vectordb.ErrInvalidArgument)
	case errors.Is(err, gorm.ErrInvalidData):
		return fmt.Errorf("%w: %v", vectordb.ErrInvalidArgument, err)
	}

	return err
}

// IsPermissionError reports whether the server rejected the statement for
// lack of privileges.
func IsPermissionError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInsufficientPriv
}
