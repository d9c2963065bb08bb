package sca

import "github.com/dropDatabas3/scaflow/internal/domain/types"

// ProcessorResponse es la salida de un stage handler: el estado resultante
// más los datos que la capa externa necesita para construir su respuesta.
// Cada stage crea una fresca; el dispatcher la devuelve sin tocarla y la
// facade decide el write-back según ErrorHolder.
//
// Los campos opcionales usan nil/"" como variante ausente; todo consumidor
// debe contemplar la ausencia.
type ProcessorResponse struct {
	ScaStatus types.ScaStatus

	// ErrorHolder presente = el paso falló; la facade no persiste.
	ErrorHolder *ErrorHolder

	// ChosenScaMethod se setea cuando el stage seleccionó (o auto-seleccionó)
	// un método.
	ChosenScaMethod *types.AuthenticationObject

	// AvailableScaMethods se retorna cuando el PSU debe elegir entre varios.
	AvailableScaMethods []types.AuthenticationObject

	// ChallengeData acompaña a SCAMETHODSELECTED en approach embedded.
	ChallengeData *types.ChallengeData

	// PsuMessage es texto para mostrar al PSU (típico del flujo decoupled).
	PsuMessage string

	// PsuData es la identidad resultante del paso (merge de la almacenada
	// con el refinamiento del request).
	PsuData types.PsuIdData

	// ScaAuthenticationData es material nuevo de TAN que el stage quiere
	// dejar persistido en el registro (write-once por intento).
	ScaAuthenticationData string

	// CredentialFailed marca un rechazo de credencial para el contador de
	// intentos del registro.
	CredentialFailed bool

	// Persisted indica que el servicio que produjo la respuesta ya hizo el
	// write-back (caso del confirmation service). La facade no re-escribe.
	Persisted bool
}

// HasError indica si el paso terminó con error.
func (r *ProcessorResponse) HasError() bool {
	return r != nil && r.ErrorHolder != nil
}

// FailedResponse construye la respuesta FAILED con el error dado.
func FailedResponse(holder *ErrorHolder, psu types.PsuIdData) *ProcessorResponse {
	return &ProcessorResponse{
		ScaStatus:   types.ScaStatusFailed,
		ErrorHolder: holder,
		PsuData:     psu,
	}
}

// TechnicalResponse construye una respuesta de fallo técnico: el estado no
// cambia (el caller puede reintentar la misma etapa).
func TechnicalResponse(current types.ScaStatus, psu types.PsuIdData, message string) *ProcessorResponse {
	return &ProcessorResponse{
		ScaStatus:   current,
		ErrorHolder: NewError(CategoryTechnical, CodeTechnicalError, message),
		PsuData:     psu,
	}
}
