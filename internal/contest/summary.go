package contest

import "math/bits"

// OptionSummary é o total apostado em um outcome
type OptionSummary struct {
	Outcome      Outcome `json:"outcome"`
	StakedAmount uint64  `json:"staked_amount"`
	BetCount     uint32  `json:"bet_count"`
}

// ContestBetSummary agrega o pool do contest. ResolvedOutcome é definido no
// máximo uma vez via SetOutcome. Fee é copiada da config na criação
type ContestBetSummary struct {
	ContestID       uint32          `json:"contest_id"`
	Options         []OptionSummary `json:"options"`
	ResolvedOutcome *Outcome        `json:"outcome,omitempty"`
	Fee             FeeFraction     `json:"fee"`
}

// NewSummary cria um pool vazio para info com a taxa congelada em fee
func NewSummary(info ContestInfo, fee FeeFraction) ContestBetSummary {
	opts := make([]OptionSummary, 0, len(info.Outcomes))
	for _, o := range info.Outcomes {
		opts = append(opts, OptionSummary{Outcome: o})
	}
	return ContestBetSummary{ContestID: info.ID, Options: opts, Fee: fee}
}

func (s *ContestBetSummary) option(id OutcomeID) (*OptionSummary, error) {
	for i := range s.Options {
		if s.Options[i].Outcome.ID == id {
			return &s.Options[i], nil
		}
	}
	e := newError(ErrOutcomeDoesNotExist, s.ContestID)
	e.Outcome = outcomePtr(id)
	return nil, e
}

// AddBetToOption soma amount ao outcome. newBet também incrementa o número
// de apostas do outcome
func (s *ContestBetSummary) AddBetToOption(id OutcomeID, amount uint64, newBet bool) error {
	opt, err := s.option(id)
	if err != nil {
		return err
	}
	if _, carry := bits.Add64(s.TotalPool(), amount, 0); carry != 0 {
		e := newError(ErrAmountOverflow, s.ContestID)
		e.Amount = amount
		return e
	}
	opt.StakedAmount += amount
	if newBet {
		opt.BetCount++
	}
	return nil
}

// TotalPool soma as apostas de todos os outcomes
func (s ContestBetSummary) TotalPool() uint64 {
	var total uint64
	for _, o := range s.Options {
		total += o.StakedAmount
	}
	return total
}

// Allocation retorna o total apostado em um outcome declarado
func (s ContestBetSummary) Allocation(id OutcomeID) (uint64, error) {
	opt, err := s.option(id)
	if err != nil {
		return 0, err
	}
	return opt.StakedAmount, nil
}

func (s ContestBetSummary) BetCount() uint32 {
	var n uint32
	for _, o := range s.Options {
		n += o.BetCount
	}
	return n
}

func (s ContestBetSummary) IsResolved() bool { return s.ResolvedOutcome != nil }

// SetOutcome fixa o outcome resolvido. Uma segunda chamada sempre falha
func (s *ContestBetSummary) SetOutcome(o Outcome) error {
	if s.ResolvedOutcome != nil {
		e := newError(ErrCannotResetOutcome, s.ContestID)
		e.Outcome = outcomePtr(s.ResolvedOutcome.ID)
		return e
	}
	s.ResolvedOutcome = &o
	return nil
}

// Clone retorna uma cópia profunda
func (s ContestBetSummary) Clone() ContestBetSummary {
	c := s
	c.Options = append([]OptionSummary(nil), s.Options...)
	if s.ResolvedOutcome != nil {
		o := *s.ResolvedOutcome
		c.ResolvedOutcome = &o
	}
	return c
}
