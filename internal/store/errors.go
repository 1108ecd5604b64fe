package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// OperationError reports a failed statement. It matches
// sparkload.ErrStoreOperation under errors.Is and unwraps to the driver error,
// so retry classification still sees the *pgconn.PgError.
type OperationError struct {
	Statement sparkload.StatementID
	Err       error
}

func (e *OperationError) Error() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return fmt.Sprintf("%s failed: %s (SQLSTATE %s)", e.Statement, pgErr.Message, pgErr.Code)
	}
	return fmt.Sprintf("%s failed: %v", e.Statement, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func (e *OperationError) Is(target error) bool {
	return target == sparkload.ErrStoreOperation
}

func opError(stmt sparkload.StatementID, err error) error {
	return &OperationError{Statement: stmt, Err: err}
}
