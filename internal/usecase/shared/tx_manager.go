package shared

import "context"

// RunInTx runs fn through uow.Within and hands back its result only when the unit committed.
func RunInTx[T any](ctx context.Context, uow UnitOfWork, fn func(ctx context.Context, tx Tx) (T, error)) (T, error) {
	var (
		zero   T
		result T
	)
	err := uow.Within(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		result, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}
