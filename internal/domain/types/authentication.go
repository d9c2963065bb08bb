package types

// AuthenticationObject describe un método SCA disponible para el PSU
// (ej: SMS OTP, push a la app, chipTAN).
type AuthenticationObject struct {
	AuthenticationMethodID string
	AuthenticationType     string // "SMS_OTP" | "PUSH_OTP" | "CHIP_OTP" | ...
	AuthenticationVersion  string
	Name                   string
	Explanation            string
	// Decoupled marca métodos que se completan en la app bancaria aunque la
	// autorización haya arrancado embedded.
	Decoupled bool
}

// ChallengeData es el challenge que el ASPSP quiere mostrar al PSU para un
// método embedded (imagen OTP, longitud máxima del código, etc).
type ChallengeData struct {
	Image                 []byte
	Data                  []string
	ImageLink             string
	OtpMaxLength          int
	OtpFormat             string // "characters" | "integer"
	AdditionalInformation string
}
