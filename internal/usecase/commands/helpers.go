package commands

import (
	"errors"

	"shopkit/internal/pkg/errs"

	"github.com/jackc/pgx/v5"
)

// markf builds a descriptive error and marks it with a sentinel so handlers
// can branch with errors.Is while logs keep the detail.
func markf(sentinel error, format string, args ...any) error {
	return errs.Mark(errs.Newf(format, args...), sentinel)
}

func isTxClosed(err error) bool {
	return errors.Is(err, pgx.ErrTxClosed)
}
