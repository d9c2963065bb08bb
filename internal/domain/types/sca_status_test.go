package types

import "testing"

func TestScaStatus_CanTransitionTo_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to ScaStatus
		want     bool
	}{
		{ScaStatusReceived, ScaStatusPsuIdentified, true},
		{ScaStatusReceived, ScaStatusScaMethodSelected, true},
		{ScaStatusPsuIdentified, ScaStatusPsuAuthenticated, true},
		{ScaStatusPsuAuthenticated, ScaStatusScaMethodSelected, true},
		{ScaStatusScaMethodSelected, ScaStatusFinalised, true},
		{ScaStatusScaMethodSelected, ScaStatusUnconfirmed, true},
		{ScaStatusUnconfirmed, ScaStatusFinalised, true},

		// retrocesos
		{ScaStatusPsuAuthenticated, ScaStatusPsuIdentified, false},
		{ScaStatusScaMethodSelected, ScaStatusReceived, false},
		{ScaStatusFinalised, ScaStatusReceived, false},

		// repetición: solo PSUAUTHENTICATED mientras el PSU elige método
		{ScaStatusPsuAuthenticated, ScaStatusPsuAuthenticated, true},
		{ScaStatusReceived, ScaStatusReceived, false},
		{ScaStatusPsuIdentified, ScaStatusPsuIdentified, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("CanTransitionTo(%s → %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestScaStatus_FailedReachableFromAnyNonTerminal(t *testing.T) {
	nonTerminal := []ScaStatus{
		ScaStatusReceived, ScaStatusPsuIdentified, ScaStatusPsuAuthenticated,
		ScaStatusScaMethodSelected, ScaStatusUnconfirmed,
	}
	for _, s := range nonTerminal {
		if !s.CanTransitionTo(ScaStatusFailed) {
			t.Errorf("%s should allow transition to FAILED", s)
		}
		if !s.CanTransitionTo(ScaStatusExempted) {
			t.Errorf("%s should allow transition to EXEMPTED", s)
		}
	}
}

func TestScaStatus_TerminalStatesAreImmutable(t *testing.T) {
	all := []ScaStatus{
		ScaStatusReceived, ScaStatusPsuIdentified, ScaStatusPsuAuthenticated,
		ScaStatusScaMethodSelected, ScaStatusUnconfirmed,
		ScaStatusFinalised, ScaStatusFailed, ScaStatusExempted,
	}
	for _, terminal := range []ScaStatus{ScaStatusFinalised, ScaStatusFailed, ScaStatusExempted} {
		if !terminal.IsTerminal() {
			t.Fatalf("%s should be terminal", terminal)
		}
		for _, next := range all {
			if terminal.CanTransitionTo(next) {
				t.Errorf("terminal %s should not transition to %s", terminal, next)
			}
		}
	}
}

func TestScaStatus_Valid(t *testing.T) {
	if !ScaStatusUnconfirmed.Valid() {
		t.Fatal("UNCONFIRMED should be valid")
	}
	if ScaStatus("BOGUS").Valid() {
		t.Fatal("unknown status should be invalid")
	}
}
