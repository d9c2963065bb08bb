package types

// ScaStatus representa el estado de una autorización SCA.
// El ciclo de vida es estrictamente hacia adelante:
//
//	RECEIVED → PSUIDENTIFIED → PSUAUTHENTICATED → SCAMETHODSELECTED → FINALISED
//
// FAILED es alcanzable desde cualquier estado no terminal.
// EXEMPTED termina el flujo cuando el banco decide que no se requiere SCA.
// UNCONFIRMED aplica solo al approach REDIRECT: la autorización espera el
// confirmation code del TPP antes de finalizar.
type ScaStatus string

const (
	ScaStatusReceived          ScaStatus = "RECEIVED"
	ScaStatusPsuIdentified     ScaStatus = "PSUIDENTIFIED"
	ScaStatusPsuAuthenticated  ScaStatus = "PSUAUTHENTICATED"
	ScaStatusScaMethodSelected ScaStatus = "SCAMETHODSELECTED"
	ScaStatusUnconfirmed       ScaStatus = "UNCONFIRMED"
	ScaStatusFinalised         ScaStatus = "FINALISED"
	ScaStatusFailed            ScaStatus = "FAILED"
	ScaStatusExempted          ScaStatus = "EXEMPTED"
)

// IsTerminal indica si el estado no admite más transiciones.
// Una autorización en estado terminal es inmutable.
func (s ScaStatus) IsTerminal() bool {
	return s == ScaStatusFinalised || s == ScaStatusFailed || s == ScaStatusExempted
}

// Valid indica si el valor pertenece al conjunto de estados conocidos.
func (s ScaStatus) Valid() bool {
	switch s {
	case ScaStatusReceived, ScaStatusPsuIdentified, ScaStatusPsuAuthenticated,
		ScaStatusScaMethodSelected, ScaStatusUnconfirmed,
		ScaStatusFinalised, ScaStatusFailed, ScaStatusExempted:
		return true
	}
	return false
}

// rank define el orden del flujo. FAILED y EXEMPTED no tienen rank porque
// son alcanzables como salto lateral, no como avance.
var scaStatusRank = map[ScaStatus]int{
	ScaStatusReceived:          0,
	ScaStatusPsuIdentified:     1,
	ScaStatusPsuAuthenticated:  2,
	ScaStatusScaMethodSelected: 3,
	ScaStatusUnconfirmed:       4,
	ScaStatusFinalised:         5,
}

// CanTransitionTo valida la regla forward-only de la tabla de transiciones.
// FAILED es válido desde cualquier estado no terminal. EXEMPTED es válido
// desde cualquier estado previo a la finalización. El resto de transiciones
// deben avanzar en el rank (nunca retroceder ni repetir, con la excepción de
// PSUAUTHENTICATED → PSUAUTHENTICATED mientras el PSU elige entre múltiples
// métodos).
func (s ScaStatus) CanTransitionTo(next ScaStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == ScaStatusFailed || next == ScaStatusExempted {
		return true
	}
	from, okFrom := scaStatusRank[s]
	to, okTo := scaStatusRank[next]
	if !okFrom || !okTo {
		return false
	}
	if s == ScaStatusPsuAuthenticated && next == ScaStatusPsuAuthenticated {
		// El PSU todavía no eligió método: el estado se mantiene.
		return true
	}
	return to > from
}
