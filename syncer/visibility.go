package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotVisible возвращается, когда запись так и не стала видимой
// до истечения таймаута.
var ErrNotVisible = errors.New("record not visible before timeout")

// AwaitVisible опрашивает fn с заданным интервалом, пока запись,
// закоммиченная чужой транзакцией, не станет видимой на этом
// соединении. Ограниченная по времени замена безусловному sleep:
// after-хук не контролирует коммит исходной мутации и не имеет
// гарантии видимости в момент срабатывания.
func AwaitVisible[T any](ctx context.Context, interval, timeout time.Duration, fn func(ctx context.Context) (T, bool, error)) (T, error) {
	var zero T

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		value, found, err := fn(ctx)
		if err != nil {
			return zero, err
		}
		if found {
			return value, nil
		}
		if time.Now().After(deadline) {
			return zero, fmt.Errorf("%w (after %s)", ErrNotVisible, timeout)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
