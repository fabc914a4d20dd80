package school

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const insertVoucher = `
INSERT INTO vouchers (
code,
name,
category,
amount,
single_use,
for_first_time_customers_only,
expires_at,
created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,now())
RETURNING id
`

const insertVoucherRestriction = `
INSERT INTO voucher_level_restrictions (voucher_id, dance_type_level_id)
VALUES ($1,$2)
`

const uniqueViolation = "23505"
const maxCodeAttempts = 5

// CreateVoucher persists a fresh voucher under a newly generated code. A code
// collision regenerates and retries; any other failure is permanent.
func (s *Store) CreateVoucher(ctx context.Context, draft VoucherDraft) (Voucher, error) {
	var created Voucher

	attempt := func() error {
		code := newVoucherCode(draft.Prefix)
		row := s.pool.QueryRow(ctx, insertVoucher,
			code,
			draft.Name,
			draft.Category,
			draft.Amount,
			draft.SingleUse,
			draft.ForFirstTimeOnly,
			draft.ExpiresAt,
		)
		var id int64
		if err := row.Scan(&id); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("voucher code collision on %s: %w", code, err)
			}
			return backoff.Permanent(fmt.Errorf("insert voucher: %w", err))
		}
		created = Voucher{
			ID:               id,
			Code:             code,
			Name:             draft.Name,
			Category:         draft.Category,
			Amount:           draft.Amount,
			SingleUse:        draft.SingleUse,
			ForFirstTimeOnly: draft.ForFirstTimeOnly,
			ExpiresAt:        draft.ExpiresAt,
		}
		return nil
	}

	op := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxCodeAttempts)
	if err := backoff.Retry(attempt, backoff.WithContext(op, ctx)); err != nil {
		return Voucher{}, err
	}
	return created, nil
}

func (s *Store) RestrictVoucherToLevel(ctx context.Context, voucherID, levelID int64) error {
	if _, err := s.pool.Exec(ctx, insertVoucherRestriction, voucherID, levelID); err != nil {
		return fmt.Errorf("restrict voucher %d to level %d: %w", voucherID, levelID, err)
	}
	return nil
}

func newVoucherCode(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(suffix[:8])
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
