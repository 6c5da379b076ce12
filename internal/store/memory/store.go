package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

// Store mantém o estado dos contests em memória. Update trabalha sobre uma
// cópia e só a aplica quando fn retorna sem erro
type Store struct {
	mu    sync.RWMutex
	state *state
}

func New() *Store { return &Store{state: newState()} }

func (s *Store) View(ctx context.Context, fn func(contest.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{st: s.state, readOnly: true})
}

func (s *Store) Update(ctx context.Context, fn func(contest.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	next := s.state.clone()
	if err := fn(&tx{st: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

type state struct {
	config       *contest.GlobalConfig
	contests     map[uint32]contest.ContestInfo
	summaries    map[uint32]contest.ContestBetSummary
	bets         map[contest.UserContest]contest.Bet
	contestIDs   []uint32
	userContests map[string][]uint32
	cursors      map[string]int
	stats        contest.Stats
	outbox       map[string]outboxEntry
	outboxSeq    uint64
}

type outboxEntry struct {
	seq uint64
	d   contest.Disbursement
}

func newState() *state {
	return &state{
		contests:     make(map[uint32]contest.ContestInfo),
		summaries:    make(map[uint32]contest.ContestBetSummary),
		bets:         make(map[contest.UserContest]contest.Bet),
		userContests: make(map[string][]uint32),
		cursors:      make(map[string]int),
		outbox:       make(map[string]outboxEntry),
	}
}

// clone copia todos os mapas. ContestInfo nunca muda após a criação e é
// compartilhado
func (st *state) clone() *state {
	c := newState()
	if st.config != nil {
		cfg := *st.config
		c.config = &cfg
	}
	for k, v := range st.contests {
		c.contests[k] = v
	}
	for k, v := range st.summaries {
		c.summaries[k] = v.Clone()
	}
	for k, v := range st.bets {
		c.bets[k] = v
	}
	c.contestIDs = append([]uint32(nil), st.contestIDs...)
	for k, v := range st.userContests {
		c.userContests[k] = append([]uint32(nil), v...)
	}
	for k, v := range st.cursors {
		c.cursors[k] = v
	}
	c.stats = st.stats
	for k, v := range st.outbox {
		c.outbox[k] = v
	}
	c.outboxSeq = st.outboxSeq
	return c
}

type tx struct {
	st       *state
	readOnly bool
}

var errReadOnly = errors.New("memory store: write in read-only transaction")

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *tx) Config(context.Context) (contest.GlobalConfig, bool, error) {
	if t.st.config == nil {
		return contest.GlobalConfig{}, false, nil
	}
	return *t.st.config, true, nil
}

func (t *tx) PutConfig(_ context.Context, cfg contest.GlobalConfig) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.config = &cfg
	return nil
}

func (t *tx) Contest(_ context.Context, id uint32) (contest.ContestInfo, bool, error) {
	c, ok := t.st.contests[id]
	return c, ok, nil
}

func (t *tx) PutContest(_ context.Context, info contest.ContestInfo) error {
	if err := t.writable(); err != nil {
		return err
	}
	info.Outcomes = append([]contest.Outcome(nil), info.Outcomes...)
	t.st.contests[info.ID] = info
	return nil
}

func (t *tx) Summary(_ context.Context, id uint32) (contest.ContestBetSummary, bool, error) {
	s, ok := t.st.summaries[id]
	if !ok {
		return contest.ContestBetSummary{}, false, nil
	}
	return s.Clone(), true, nil
}

func (t *tx) PutSummary(_ context.Context, s contest.ContestBetSummary) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.summaries[s.ContestID] = s.Clone()
	return nil
}

func (t *tx) Bet(_ context.Context, key contest.UserContest) (contest.Bet, bool, error) {
	b, ok := t.st.bets[key]
	return b, ok, nil
}

func (t *tx) PutBet(_ context.Context, b contest.Bet) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.bets[b.Key()] = b
	return nil
}

func (t *tx) ContestIDs(context.Context) ([]uint32, error) {
	return append([]uint32(nil), t.st.contestIDs...), nil
}

func (t *tx) AppendContestID(_ context.Context, id uint32) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.contestIDs = append(t.st.contestIDs, id)
	return nil
}

func (t *tx) UserContests(_ context.Context, user string) ([]uint32, error) {
	return append([]uint32(nil), t.st.userContests[user]...), nil
}

func (t *tx) AppendUserContest(_ context.Context, user string, id uint32) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.userContests[user] = append(t.st.userContests[user], id)
	return nil
}

func (t *tx) ClaimCursor(_ context.Context, user string) (int, error) {
	return t.st.cursors[user], nil
}

func (t *tx) PutClaimCursor(_ context.Context, user string, cursor int) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.cursors[user] = cursor
	return nil
}

func (t *tx) Stats(context.Context) (contest.Stats, error) { return t.st.stats, nil }

func (t *tx) PutStats(_ context.Context, s contest.Stats) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.stats = s
	return nil
}

func (t *tx) PutDisbursement(_ context.Context, d contest.Disbursement) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.outbox[d.Reference]; ok {
		return nil
	}
	t.st.outboxSeq++
	t.st.outbox[d.Reference] = outboxEntry{seq: t.st.outboxSeq, d: d}
	return nil
}

func (t *tx) PendingDisbursements(_ context.Context, limit int) ([]contest.Disbursement, error) {
	entries := make([]outboxEntry, 0, len(t.st.outbox))
	for _, e := range t.st.outbox {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]contest.Disbursement, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.d)
	}
	return out, nil
}

func (t *tx) DeleteDisbursement(_ context.Context, reference string) error {
	if err := t.writable(); err != nil {
		return err
	}
	delete(t.st.outbox, reference)
	return nil
}
