package types

// AuthorisationType distingue qué recurso padre está autorizando el PSU.
type AuthorisationType string

const (
	AuthorisationTypePaymentCreation     AuthorisationType = "PAYMENT_CREATION"
	AuthorisationTypePaymentCancellation AuthorisationType = "PAYMENT_CANCELLATION"
	AuthorisationTypeConsentCreation     AuthorisationType = "CONSENT_CREATION"
)

// Valid indica si el valor pertenece al conjunto de tipos conocidos.
func (t AuthorisationType) Valid() bool {
	switch t {
	case AuthorisationTypePaymentCreation, AuthorisationTypePaymentCancellation, AuthorisationTypeConsentCreation:
		return true
	}
	return false
}

// BusinessStatus es el estado de negocio del recurso padre (transaction status
// del pago o estado del consent). El engine no interpreta estos valores: los
// recibe del connector y los reenvía al status sink.
type BusinessStatus string

const (
	BusinessStatusAcceptedSettlement BusinessStatus = "ACSP"
	BusinessStatusRejected           BusinessStatus = "RJCT"
	BusinessStatusCanceled           BusinessStatus = "CANC"
	BusinessStatusConsentValid       BusinessStatus = "VALID"
	BusinessStatusConsentRejected    BusinessStatus = "REJECTED"
)
