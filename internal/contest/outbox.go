package contest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RelayDisbursements reenvia até limit pagamentos pendentes e retorna
// quantos o Disburser aceitou
func (e *Engine) RelayDisbursements(ctx context.Context, limit int) (int, error) {
	var pending []Disbursement
	err := e.view(ctx, "relay disbursements", func(tx Tx) error {
		var err error
		pending, err = tx.PendingDisbursements(ctx, limit)
		return err
	})
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, d := range pending {
		if ctx.Err() != nil {
			break
		}
		if e.deliver(ctx, "relay", d) {
			delivered++
		}
	}
	return delivered, nil
}

// RunDisbursementRelay chama RelayDisbursements a cada interval até o ctx
// terminar
func (e *Engine) RunDisbursementRelay(ctx context.Context, interval time.Duration, batch int) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := e.RelayDisbursements(ctx, batch)
			if err != nil {
				e.log.Warn("relay disbursements failed", zap.Error(err))
				continue
			}
			if n > 0 {
				e.log.Info("relayed pending disbursements", zap.Int("count", n))
			}
		}
	}
}
