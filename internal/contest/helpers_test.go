package contest_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radieske/pari-contest-platform/internal/contest"
	"github.com/radieske/pari-contest-platform/internal/signer"
	"github.com/radieske/pari-contest-platform/internal/store/memory"
	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

const (
	owner   = "owner"
	start   = int64(1_700_000_000)
	closeAt = uint64(start + 100)
	resolve = uint64(start + 200)
)

type fakeOracle struct {
	mu      sync.Mutex
	results map[uint32]contest.OutcomeID
	err     error
	calls   map[uint32]int
	onQuery func()
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{results: map[uint32]contest.OutcomeID{}, calls: map[uint32]int{}}
}

func (o *fakeOracle) QueryContestResult(_ context.Context, id uint32) (contest.OutcomeID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[id]++
	if o.onQuery != nil {
		o.onQuery()
	}
	if o.err != nil {
		return 0, o.err
	}
	r, ok := o.results[id]
	if !ok {
		return 0, errors.New("no result yet")
	}
	return r, nil
}

type payment struct {
	recipient string
	amount    uint64
	reference string
}

// fakeDisburser respeita o ctx como um cliente de rede e falha enquanto err estiver setado
type fakeDisburser struct {
	mu       sync.Mutex
	payments []payment
	err      error
	before   func()
}

func (d *fakeDisburser) Disburse(ctx context.Context, recipient string, amount uint64, ref string) error {
	if d.before != nil {
		d.before()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.err != nil {
		return d.err
	}
	d.payments = append(d.payments, payment{recipient, amount, ref})
	return nil
}

func (d *fakeDisburser) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDisburser) paid() []payment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]payment(nil), d.payments...)
}

func (d *fakeDisburser) total(recipient string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sum uint64
	for _, p := range d.payments {
		if p.recipient == recipient {
			sum += p.amount
		}
	}
	return sum
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.ContestEvent
}

func (p *fakePublisher) Publish(_ context.Context, e events.ContestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// keyAccess aceita a credencial "key-" + user
type keyAccess struct{}

func (keyAccess) AssertValid(_ context.Context, user, credential string) error {
	if credential != "key-"+user {
		return &contest.Error{Kind: contest.ErrInvalidAccessCredential, User: user}
	}
	return nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(unix uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Unix(int64(unix), 0)
}

type harness struct {
	t         *testing.T
	ctx       context.Context
	engine    *contest.Engine
	store     *memory.Store
	oracle    *fakeOracle
	disburser *fakeDisburser
	publisher *fakePublisher
	clock     *testClock
	signer    *signer.Signer
}

func newHarness(t *testing.T, fee contest.FeeFraction, minimum uint64) *harness {
	t.Helper()
	s, err := signer.GenerateSigner()
	require.NoError(t, err)

	h := &harness{
		t:         t,
		ctx:       context.Background(),
		store:     memory.New(),
		oracle:    newFakeOracle(),
		disburser: &fakeDisburser{},
		publisher: &fakePublisher{},
		clock:     &testClock{t: time.Unix(start, 0)},
		signer:    s,
	}
	h.engine = contest.New(h.store, h.oracle, signer.NewVerifier(),
		contest.WithDisburser(h.disburser),
		contest.WithPublisher(h.publisher),
		contest.WithAccessControl(keyAccess{}),
		contest.WithClock(h.clock.Now),
	)
	require.NoError(t, h.engine.Bootstrap(h.ctx, contest.GlobalConfig{
		Owner:           owner,
		SignerPublicKey: s.PublicKeyHex(),
		MinimumBet:      minimum,
		Fee:             fee,
	}))
	return h
}

func binaryInfo(id uint32) contest.ContestInfo {
	return contest.ContestInfo{
		ID:            id,
		Outcomes:      []contest.Outcome{{ID: 1, Name: "yes"}, {ID: 2, Name: "no"}},
		TimeOfClose:   closeAt,
		TimeOfResolve: resolve,
		EventDetails:  "Will it rain tomorrow?",
	}
}

func (h *harness) sign(info contest.ContestInfo) string {
	h.t.Helper()
	msg, err := contest.CanonicalJSON(info)
	require.NoError(h.t, err)
	sig, err := h.signer.Sign(msg)
	require.NoError(h.t, err)
	return sig
}

func (h *harness) create(info contest.ContestInfo) contest.ContestView {
	h.t.Helper()
	v, err := h.engine.CreateContest(h.ctx, contest.CreateContestInput{Info: info, Signature: h.sign(info), Creator: owner})
	require.NoError(h.t, err)
	return v
}

func (h *harness) bet(user string, id uint32, outcome contest.OutcomeID, amount uint64) contest.PlaceBetResult {
	h.t.Helper()
	r, err := h.engine.PlaceBet(h.ctx, user, id, outcome, amount)
	require.NoError(h.t, err)
	return r
}

func (h *harness) claim(user string, id uint32) uint64 {
	h.t.Helper()
	r, err := h.engine.Claim(h.ctx, id, user)
	require.NoError(h.t, err)
	return r.Amount
}

func (h *harness) summary(id uint32) contest.ContestBetSummary {
	h.t.Helper()
	v, err := h.engine.GetContest(h.ctx, id)
	require.NoError(h.t, err)
	return v.Summary
}

func (h *harness) storedBet(user string, id uint32) contest.Bet {
	h.t.Helper()
	v, err := h.engine.UserBet(h.ctx, user, "key-"+user, id)
	require.NoError(h.t, err)
	return v.Bet
}

func (h *harness) pending() []contest.Disbursement {
	h.t.Helper()
	var out []contest.Disbursement
	require.NoError(h.t, h.store.View(h.ctx, func(tx contest.Tx) error {
		var err error
		out, err = tx.PendingDisbursements(h.ctx, 0)
		return err
	}))
	return out
}

func requireKind(t *testing.T, err error, kind contest.Kind) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
}

var noFee = contest.FeeFraction{Numerator: 0, Denominator: 100}
