package contest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

// Hooks são callbacks de métricas.
// Hook nil é ignorado
type Hooks struct {
	OnContestCreated func()
	OnDisbursement   func(delivered bool)
	OnBetPlaced      func(amount uint64)
	OnOracleQuery    func(ok bool)
	OnSettled        func(void bool)
	OnClaim          func(amount uint64)
	OnFeesAccrued    func(amount uint64)
	OnError          func(kind string)
}

// Engine concentra todas as transições de estado da plataforma. Cada
// operação exportada roda com acesso exclusivo ao store e confirma numa
// única unidade
type Engine struct {
	mu sync.RWMutex

	store     Store
	oracle    Oracle
	verifier  SignatureVerifier
	disburser Disburser
	access    AccessControl
	publisher EventPublisher
	clock     func() time.Time
	log       *zap.Logger
	hooks     Hooks

	deliveryTimeout time.Duration
}

type Option func(*Engine)

func WithDisburser(d Disburser) Option         { return func(e *Engine) { e.disburser = d } }
func WithAccessControl(a AccessControl) Option { return func(e *Engine) { e.access = a } }
func WithPublisher(p EventPublisher) Option    { return func(e *Engine) { e.publisher = p } }
func WithClock(now func() time.Time) Option    { return func(e *Engine) { e.clock = now } }
func WithLogger(l *zap.Logger) Option          { return func(e *Engine) { e.log = l } }
func WithHooks(h Hooks) Option                 { return func(e *Engine) { e.hooks = h } }

// WithDeliveryTimeout limita cada chamada ao Disburser feita após o commit
// ou pelo relay
func WithDeliveryTimeout(d time.Duration) Option {
	return func(e *Engine) { e.deliveryTimeout = d }
}

// New cria o engine. Sem WithAccessControl toda consulta por usuário é
// rejeitada
func New(store Store, oracle Oracle, verifier SignatureVerifier, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		oracle:    oracle,
		verifier:  verifier,
		disburser: nopDisburser{},
		access:    denyAll{},
		publisher: nopPublisher{},
		clock:     time.Now,
		log:       zap.NewNop(),

		deliveryTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Bootstrap grava cfg como config global se ainda não existir uma
func (e *Engine) Bootstrap(ctx context.Context, cfg GlobalConfig) error {
	if !cfg.Fee.Valid() {
		return &Error{Kind: ErrInvalidFee, Expected: "numerator <= denominator, denominator > 0"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Update(ctx, func(tx Tx) error {
		_, ok, err := tx.Config(ctx)
		if err != nil || ok {
			return err
		}
		return tx.PutConfig(ctx, cfg)
	})
}

func (e *Engine) now() uint64 { return uint64(e.clock().Unix()) }

// effects acumula o que só acontece após o commit. Os pagamentos também
// são gravados no outbox na mesma unidade
type effects struct {
	disbursements []Disbursement
	events        []events.ContestEvent
	hooks         []func()
}

func (fx *effects) disburse(recipient string, amount uint64, ref string) {
	fx.disbursements = append(fx.disbursements, Disbursement{Reference: ref, Recipient: recipient, Amount: amount})
}

func (fx *effects) emit(ev events.ContestEvent) { fx.events = append(fx.events, ev) }

func (fx *effects) after(f func()) {
	if f != nil {
		fx.hooks = append(fx.hooks, f)
	}
}

// update roda fn numa unidade junto com a gravação no outbox dos pagamentos
// enfileirados. Os efeitos são disparados após o commit, fora do lock do
// engine
func (e *Engine) update(ctx context.Context, op string, fn func(tx Tx, fx *effects) error) error {
	var fx *effects
	err := e.locked(func() error {
		return e.store.Update(ctx, func(tx Tx) error {
			fx = &effects{}
			if err := fn(tx, fx); err != nil {
				return err
			}
			for _, d := range fx.disbursements {
				if err := tx.PutDisbursement(ctx, d); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		e.fail(op, err)
		return err
	}
	e.flush(ctx, op, fx)
	return nil
}

func (e *Engine) locked(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

func (e *Engine) view(ctx context.Context, op string, fn func(tx Tx) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.store.View(ctx, fn); err != nil {
		e.fail(op, err)
		return err
	}
	return nil
}

// flush ignora o cancelamento do ctx: o estado que ele reporta já foi
// confirmado
func (e *Engine) flush(ctx context.Context, op string, fx *effects) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range fx.hooks {
		h()
	}
	for _, d := range fx.disbursements {
		e.deliver(ctx, op, d)
	}
	for _, ev := range fx.events {
		if ev.TsUnixMs == 0 {
			ev.TsUnixMs = e.clock().UnixMilli()
		}
		pctx, cancel := context.WithTimeout(ctx, e.deliveryTimeout)
		err := e.publisher.Publish(pctx, ev)
		cancel()
		if err != nil {
			e.log.Warn("publish event failed", zap.String("type", ev.Type), zap.Uint32("contest_id", ev.ContestID), zap.Error(err))
		}
	}
}

// deliver entrega d ao Disburser e remove a entrada do outbox. Falha na
// entrega mantém a entrada para RelayDisbursements
func (e *Engine) deliver(ctx context.Context, op string, d Disbursement) bool {
	dctx, cancel := context.WithTimeout(ctx, e.deliveryTimeout)
	err := e.disburser.Disburse(dctx, d.Recipient, d.Amount, d.Reference)
	cancel()
	if e.hooks.OnDisbursement != nil {
		e.hooks.OnDisbursement(err == nil)
	}
	if err != nil {
		e.log.Error("disburse failed, kept in outbox",
			zap.String("op", op),
			zap.String("recipient", d.Recipient),
			zap.Uint64("amount", d.Amount),
			zap.String("reference", d.Reference),
			zap.Error(err),
		)
		return false
	}
	if err := e.store.Update(ctx, func(tx Tx) error {
		return tx.DeleteDisbursement(ctx, d.Reference)
	}); err != nil {
		// o relay reenvia; a referência deduplica no destino
		e.log.Warn("clear outbox entry failed", zap.String("reference", d.Reference), zap.Error(err))
	}
	return true
}

func (e *Engine) fail(op string, err error) {
	kind := "internal"
	if k, ok := KindOf(err); ok {
		kind = string(k)
		e.log.Warn(op+" rejected", zap.String("kind", kind), zap.String("class", k.Class().String()), zap.Error(err))
	} else {
		e.log.Error(op+" failed", zap.Error(err))
	}
	if e.hooks.OnError != nil {
		e.hooks.OnError(kind)
	}
}

func (e *Engine) assertOwner(cfg GlobalConfig, caller string) error {
	if caller != cfg.Owner {
		return &Error{Kind: ErrUnauthorized, User: caller, Expected: cfg.Owner, Actual: caller}
	}
	return nil
}
