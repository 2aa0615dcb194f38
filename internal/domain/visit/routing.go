package visit

// GateFacts is a snapshot of the external conditions that can block entry to
// a gated stage. It is resolved once per routing request, before validation.
type GateFacts struct {
	UnpaidConsultation bool
	UnpaidDiagnostics  bool
	UnpaidPharmacy     bool

	// DischargeSummarySigned is a clinical fact owned elsewhere; the
	// validator only reads it.
	DischargeSummarySigned bool
}

// paymentGate names the unpaid-charge flag that blocks entry to a stage.
// Stages absent from this map have no payment gate.
var paymentGate = map[Stage]func(GateFacts) bool{
	StageWithDoctor: func(f GateFacts) bool { return f.UnpaidConsultation },
	StageAtPharmacy: func(f GateFacts) bool { return f.UnpaidDiagnostics },
	StageAdmitted:   func(f GateFacts) bool { return f.UnpaidPharmacy },
	StageDischarged: func(f GateFacts) bool { return f.UnpaidPharmacy },
}

// ValidateTransition decides whether a non-forced hop from current to dest is
// legal given the gate facts. It is pure: no I/O, no mutation.
//
// A destination equal to the current stage is always allowed so that retries
// from flaky clients stay idempotent; the caller detects the no-op and skips
// the append.
func ValidateTransition(current, dest Stage, facts GateFacts) error {
	if dest == current {
		return nil
	}
	if !AllowedNextStages(current)[dest] {
		return ErrInvalidTransition
	}
	if gate, ok := paymentGate[dest]; ok && gate(facts) {
		return ErrPaymentGateBlocked
	}
	if dest == StageDischarged && !facts.DischargeSummarySigned {
		return ErrClinicalGateBlocked
	}
	return nil
}
