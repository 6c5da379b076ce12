package payout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/shared/kafka"
	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

// Crediter é o que o processor usa da wallet
type Crediter interface {
	Credit(ctx context.Context, userID string, amount uint64, externalRef string) (decimal.Decimal, error)
}

// Processor aplica instruções de payout nas carteiras, com retry em falhas
// transitórias e envio para a DLQ quando as tentativas acabam
type Processor struct {
	Wallet  Crediter
	DLQ     kafka.MessageWriter // opcional
	Log     *zap.Logger
	Retries int
	Backoff func(attempt int) time.Duration

	OnCredited func(amount uint64)
	OnFailed   func()
}

func NewProcessor(wallet Crediter, dlq kafka.MessageWriter, log *zap.Logger) *Processor {
	return &Processor{
		Wallet:  wallet,
		DLQ:     dlq,
		Log:     log,
		Retries: 3,
		Backoff: func(attempt int) time.Duration { return time.Duration(300*(attempt+1)) * time.Millisecond },
	}
}

// HandleMessage decodifica uma mensagem do Kafka e processa. Payload
// inválido vai direto para a DLQ
func (p *Processor) HandleMessage(ctx context.Context, key, value []byte) error {
	var in events.PayoutInstruction
	if err := json.Unmarshal(value, &in); err != nil {
		p.Log.Error("unmarshal payout instruction", zap.Error(err))
		p.deadLetter(ctx, string(key), value)
		return err
	}
	return p.Process(ctx, in)
}

func (p *Processor) Process(ctx context.Context, in events.PayoutInstruction) error {
	if in.Amount == 0 {
		return nil
	}

	balance, err := p.Wallet.Credit(ctx, in.Recipient, in.Amount, in.ExternalRef)
	for i := 0; err != nil && i < p.Retries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(i)):
		}
		balance, err = p.Wallet.Credit(ctx, in.Recipient, in.Amount, in.ExternalRef)
	}
	if err != nil {
		p.Log.Error("payout failed",
			zap.String("instruction_id", in.InstructionID),
			zap.String("external_ref", in.ExternalRef),
			zap.Error(err),
		)
		if b, merr := json.Marshal(in); merr == nil {
			p.deadLetter(ctx, in.Recipient, b)
		}
		if p.OnFailed != nil {
			p.OnFailed()
		}
		return err
	}

	p.Log.Info("payout credited",
		zap.String("recipient", in.Recipient),
		zap.Uint64("amount", in.Amount),
		zap.String("external_ref", in.ExternalRef),
		zap.Stringer("balance", balance),
	)
	if p.OnCredited != nil {
		p.OnCredited(in.Amount)
	}
	return nil
}

func (p *Processor) deadLetter(ctx context.Context, key string, value []byte) {
	if p.DLQ == nil {
		return
	}
	if err := kafka.WriteJSON(ctx, p.DLQ, key, value); err != nil {
		p.Log.Error("dlq write", zap.Error(err))
	}
}
