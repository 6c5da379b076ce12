package topics

const (
	// Ciclo de vida dos contests
	ContestEvents = "contest_events"

	// Pagamentos
	PayoutInstructions = "payout_instructions"

	// DLQs
	PayoutInstructionsDLQ = "payout_instructions_dlq"
)
