package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"gorm.io/gorm"
)

// ErrStaleVersion marks a guarded skill_mastery update that matched no row
// because another write moved the version first.
var ErrStaleVersion = errors.New("skill mastery version is stale")

func staleVersion(msg string) error {
	return fmt.Errorf("%w: %s", ErrStaleVersion, strings.TrimSpace(msg))
}

// SQLSTATE codes MapError recognises.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// Driver message fragments for errors that carry no SQLSTATE, mainly SQLite.
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"duplicate key", domainagg.CodeConflict},
	{"unique constraint", domainagg.CodeConflict},
	{"already exists", domainagg.CodeConflict},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"database is locked", domainagg.CodeRetryable},
	{"busy", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError assigns a domain code to a failed mastery write. Errors that already
// carry a code pass through. A unique violation is two first interactions
// racing to create the same row, so it maps to a retryable conflict.
func MapError(op domainagg.Op, err error) error {
	if err == nil {
		return nil
	}
	if domainagg.CodeOf(err) != "" {
		return err
	}
	name := string(op)
	switch {
	case errors.Is(err, ErrStaleVersion):
		return domainagg.Wrap(domainagg.CodeConflict, name, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, name, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, name, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domainagg.Wrap(domainagg.CodeConflict, name, err)
		case pgForeignKeyViolation:
			return domainagg.Wrap(domainagg.CodePreconditionFailed, name, err)
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return domainagg.Wrap(domainagg.CodeRetryable, name, err)
		}
	}

	msg := strings.ToLower(err.Error())
	for _, mc := range messageCodes {
		if strings.Contains(msg, mc.fragment) {
			return domainagg.Wrap(mc.code, name, err)
		}
	}
	return domainagg.Wrap(domainagg.CodeInternal, name, err)
}
