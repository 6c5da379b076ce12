package contest

import "github.com/holiman/uint256"

// PoolAfterFee é floor(total * (den - num) / den), calculado em 256 bits
func PoolAfterFee(total uint64, fee FeeFraction) uint64 {
	if !fee.Valid() {
		return total
	}
	z, _ := new(uint256.Int).MulDivOverflow(
		uint256.NewInt(total),
		uint256.NewInt(fee.Denominator-fee.Numerator),
		uint256.NewInt(fee.Denominator),
	)
	return z.Uint64()
}

// FeeAmount é o que o protocolo retém de um pool resolvido. Zero em contest
// anulado e em pool sem oposição
func FeeAmount(s ContestBetSummary) uint64 {
	if s.ResolvedOutcome == nil || s.ResolvedOutcome.IsVoid() {
		return 0
	}
	total := s.TotalPool()
	winner, err := s.Allocation(s.ResolvedOutcome.ID)
	if err != nil || total == winner {
		return 0
	}
	return total - PoolAfterFee(total, s.Fee)
}

// PayoutShare calcula quanto bet recebe de um pool resolvido.
//
// Void devolve a aposta. Sem oposição a aposta volta inteira.
// Caso contrário o vencedor recebe floor(amount * poolAfterFee / winnerPool)
func PayoutShare(s ContestBetSummary, bet Bet) (uint64, error) {
	if s.ResolvedOutcome == nil {
		return 0, newError(ErrTimeOfResolveNotYetPassed, s.ContestID)
	}
	if s.ResolvedOutcome.IsVoid() {
		return bet.Amount, nil
	}
	if bet.OutcomeID != s.ResolvedOutcome.ID {
		e := newError(ErrCannotClaimOnLostContest, s.ContestID)
		e.User = bet.User
		e.Outcome = outcomePtr(bet.OutcomeID)
		return 0, e
	}
	total := s.TotalPool()
	winner, err := s.Allocation(bet.OutcomeID)
	if err != nil {
		return 0, err
	}
	if total == winner {
		return bet.Amount, nil
	}
	z, _ := new(uint256.Int).MulDivOverflow(
		uint256.NewInt(bet.Amount),
		uint256.NewInt(PoolAfterFee(total, s.Fee)),
		uint256.NewInt(winner),
	)
	return z.Uint64(), nil
}
