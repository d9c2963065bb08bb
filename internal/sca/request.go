package sca

import "github.com/dropDatabas3/scaflow/internal/domain/types"

// UpdateRequest es el value object transitorio con lo que el PSU/TPP mandó en
// un paso de interacción. No se persiste: cada stage mapea los campos que le
// interesan sobre el registro de autorización.
type UpdateRequest struct {
	AuthorisationID string
	ParentID        string
	Type            types.AuthorisationType

	// PsuData puede ser un refinamiento de la identidad ya almacenada.
	PsuData types.PsuIdData

	// UpdatePsuIdentification: el paso es solo identificación (sin credencial).
	UpdatePsuIdentification bool

	// Password es la prueba de credencial, opaca para el engine.
	Password string

	// AuthenticationMethodID selecciona un método SCA listado previamente.
	AuthenticationMethodID string

	// ScaAuthenticationData es el TAN/OTP ingresado por el PSU (embedded).
	ScaAuthenticationData string

	// ConfirmationCode cierra una autorización REDIRECT en UNCONFIRMED.
	ConfirmationCode string
}

// IsIdentification indica si el paso debe tratarse como identificación pura:
// o lo pidió explícito el TPP, o no hay credencial que verificar.
func (r *UpdateRequest) IsIdentification() bool {
	return r.UpdatePsuIdentification || (r.Password == "" && r.AuthenticationMethodID == "" && r.ScaAuthenticationData == "" && r.ConfirmationCode == "")
}
