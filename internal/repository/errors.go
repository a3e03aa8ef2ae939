package repository

import (
	"context"
	"errors"

	"delivery_api/pkg/apperrors"

	"gorm.io/gorm"
)

// notFound maps gorm's missing-row error onto NotFound and leaves anything
// else untouched.
func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFoundError(message)
	}
	return err
}

// storeError turns the result of a write transaction into the error the
// service layer sees. Application errors raised inside the transaction pass
// through; everything else is a TransactionFailed.
func storeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return apperrors.NewTransactionFailedError(
			"the store did not answer in time, the outcome is unknown: re-query before retrying", err)
	}
	return apperrors.NewTransactionFailedError("", err)
}
