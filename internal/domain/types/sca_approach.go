package types

// ScaApproach es el canal por el que el PSU completa la autenticación fuerte.
// Se fija al crear la autorización (según el default del perfil ASPSP) y no
// cambia durante la vida del registro.
type ScaApproach string

const (
	// ScaApproachEmbedded: PIN/OTP directamente contra esta API.
	ScaApproachEmbedded ScaApproach = "EMBEDDED"
	// ScaApproachDecoupled: push a la app bancaria del PSU.
	ScaApproachDecoupled ScaApproach = "DECOUPLED"
	// ScaApproachRedirect: el PSU se autentica en la web del ASPSP.
	ScaApproachRedirect ScaApproach = "REDIRECT"
	// ScaApproachOAuth: delegado por completo a un authorization server OAuth.
	ScaApproachOAuth ScaApproach = "OAUTH"
)

// Valid indica si el valor pertenece al conjunto de approaches conocidos.
func (a ScaApproach) Valid() bool {
	switch a {
	case ScaApproachEmbedded, ScaApproachDecoupled, ScaApproachRedirect, ScaApproachOAuth:
		return true
	}
	return false
}
