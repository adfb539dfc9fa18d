package repository

import (
	"context"
	"fmt"
)

// NextClientCode issues the next client code. The increment is committed
// before the value is returned, so a code that reaches the caller is durable;
// a failed allocation never hands out a number. Codes lost to later failures
// elsewhere are never reused (gaps are fine, duplicates are not).
func (r *Repository) NextClientCode(ctx context.Context) (int, error) {
	var code int

	err := r.db.QueryRow(ctx, AllocateCodeSQL).Scan(&code)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate client code: %w", err)
	}

	return code, nil
}
