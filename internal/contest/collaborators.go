package contest

import (
	"context"

	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

// Oracle responde o outcome vencedor de um contest; 0 anula o contest
type Oracle interface {
	QueryContestResult(ctx context.Context, contestID uint32) (OutcomeID, error)
}

// SignatureVerifier valida a assinatura de message com a chave pública em hex
type SignatureVerifier interface {
	Verify(publicKeyHex string, message []byte, signatureHex string) (bool, error)
}

// Disburser emite uma instrução de transferência. É chamado após o commit;
// em caso de erro a instrução fica no outbox e é reenviada com a mesma
// referência
type Disburser interface {
	Disburse(ctx context.Context, recipient string, amount uint64, reference string) error
}

// AccessControl protege as consultas que expõem as apostas de um usuário
type AccessControl interface {
	AssertValid(ctx context.Context, user, credential string) error
}

// EventPublisher recebe as notificações das mudanças confirmadas
type EventPublisher interface {
	Publish(ctx context.Context, e events.ContestEvent) error
}

type nopDisburser struct{}

func (nopDisburser) Disburse(context.Context, string, uint64, string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.ContestEvent) error { return nil }

type denyAll struct{}

func (denyAll) AssertValid(_ context.Context, user, _ string) error {
	return &Error{Kind: ErrInvalidAccessCredential, User: user}
}
