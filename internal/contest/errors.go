package contest

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifica uma falha de domínio. Cada Kind também é sentinela:
// errors.Is(err, ErrBetAlreadyPaid) casa com qualquer *Error desse tipo
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrContestAlreadyExists      Kind = "contest already exists"
	ErrContestNotFound           Kind = "contest not found"
	ErrInvalidContest            Kind = "invalid contest"
	ErrInvalidOutcomeID          Kind = "invalid outcome id"
	ErrOutcomeDoesNotExist       Kind = "outcome does not exist"
	ErrOutcomeNotFound           Kind = "oracle outcome not declared on contest"
	ErrTimeOfClosePassed         Kind = "time of close passed"
	ErrTimeOfResolveNotYetPassed Kind = "time of resolve has yet to pass"
	ErrBetBelowMinimum           Kind = "bet below minimum"
	ErrAmountOverflow            Kind = "amount overflow"
	ErrCannotBetOnBothSides      Kind = "cannot bet on both sides"
	ErrNoBetForUserContest       Kind = "no bet for user and contest"
	ErrCannotClaimOnLostContest  Kind = "cannot claim on lost contest"
	ErrBetAlreadyPaid            Kind = "bet already paid"
	ErrCannotResetOutcome        Kind = "cannot reset outcome"
	ErrInvalidFee                Kind = "invalid fee fraction"
	ErrUnauthorized              Kind = "unauthorized"
	ErrInvalidSignature          Kind = "invalid signature"
	ErrInvalidAccessCredential   Kind = "invalid access credential"
	ErrOracleQueryFailed         Kind = "oracle query failed"
)

// Class agrupa os kinds pela reação esperada do chamador
type Class int

const (
	ClassPrecondition Class = iota
	ClassAuthorization
	ClassIntegration
)

func (c Class) String() string {
	switch c {
	case ClassAuthorization:
		return "authorization"
	case ClassIntegration:
		return "integration"
	default:
		return "precondition"
	}
}

func (k Kind) Class() Class {
	switch k {
	case ErrUnauthorized, ErrInvalidSignature, ErrInvalidAccessCredential:
		return ClassAuthorization
	case ErrOracleQueryFailed:
		return ClassIntegration
	default:
		return ClassPrecondition
	}
}

// Error carrega o kind e o contexto que identifica a chamada que falhou.
// Campos zerados ficam fora da mensagem
type Error struct {
	Kind      Kind
	ContestID uint32
	User      string
	Outcome   *OutcomeID
	Amount    uint64
	Minimum   uint64
	Expected  string
	Actual    string
	Now       uint64
	Deadline  uint64
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))

	var fields []string
	if e.ContestID != 0 {
		fields = append(fields, fmt.Sprintf("contest_id=%d", e.ContestID))
	}
	if e.User != "" {
		fields = append(fields, "user="+e.User)
	}
	if e.Outcome != nil {
		fields = append(fields, fmt.Sprintf("outcome_id=%d", *e.Outcome))
	}
	if e.Amount != 0 {
		fields = append(fields, fmt.Sprintf("amount=%d", e.Amount))
	}
	if e.Minimum != 0 {
		fields = append(fields, fmt.Sprintf("minimum=%d", e.Minimum))
	}
	if e.Expected != "" || e.Actual != "" {
		fields = append(fields, "expected="+e.Expected, "actual="+e.Actual)
	}
	if e.Deadline != 0 {
		fields = append(fields, fmt.Sprintf("deadline=%d", e.Deadline), fmt.Sprintf("now=%d", e.Now))
	}
	if len(fields) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(fields, " "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, contestID uint32) *Error {
	return &Error{Kind: kind, ContestID: contestID}
}

func outcomePtr(id OutcomeID) *OutcomeID { return &id }

// KindOf retorna o kind de domínio de err, se houver
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	var k Kind
	if errors.As(err, &k) {
		return k, true
	}
	return "", false
}

// IsRetryable indica falha de integração que não confirmou nada e pode dar
// certo depois
func IsRetryable(err error) bool {
	k, ok := KindOf(err)
	return ok && k.Class() == ClassIntegration
}
