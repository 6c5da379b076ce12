package payout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/radieske/pari-contest-platform/internal/shared/kafka"
	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

// Producer transforma pagamentos em instruções de payout no Kafka.
// Implementa contest.Disburser
type Producer struct {
	w     kafka.MessageWriter
	clock func() time.Time
}

func NewProducer(w kafka.MessageWriter) *Producer {
	return &Producer{w: w, clock: time.Now}
}

func (p *Producer) Disburse(ctx context.Context, recipient string, amount uint64, reference string) error {
	in := events.PayoutInstruction{
		InstructionID: uuid.NewString(),
		Recipient:     recipient,
		Amount:        amount,
		ExternalRef:   reference,
		Ts:            p.clock().UTC(),
	}
	return errors.Wrapf(kafka.Publish(ctx, p.w, recipient, in), "publish payout %s", reference)
}
