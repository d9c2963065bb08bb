// Package sca contiene el modelo del engine de autorización SCA: el request
// de update que envía el TPP/PSU, la respuesta de cada stage handler y la
// taxonomía de errores que cruza el borde del engine.
package sca

import "fmt"

// ErrorCategory clasifica el fallo para la capa regulada que consume el
// engine. Nunca se lanzan panics a través del borde: todo fallo viaja como
// ErrorHolder dentro de la ProcessorResponse.
type ErrorCategory string

const (
	// CategoryFormat: input malformado (ej: falta PsuIdData).
	CategoryFormat ErrorCategory = "FORMAT"
	// CategoryCredentialsInvalid: identidad o credencial del PSU incorrecta.
	CategoryCredentialsInvalid ErrorCategory = "CREDENTIALS_INVALID"
	// CategoryScaInvalid: confirmation code incorrecto/expirado o método desconocido.
	CategoryScaInvalid ErrorCategory = "SCA_INVALID"
	// CategoryResourceUnknown: autorización o recurso padre inexistente.
	CategoryResourceUnknown ErrorCategory = "RESOURCE_UNKNOWN"
	// CategoryStatusInvalid: operación no permitida desde el estado actual.
	CategoryStatusInvalid ErrorCategory = "STATUS_INVALID"
	// CategoryTechnical: fallo de store/connector, no atribuible al PSU.
	// No marca la autorización como FAILED: el caller puede reintentar.
	CategoryTechnical ErrorCategory = "TECHNICAL"
)

// Códigos de error. Siguen la nomenclatura de los TPP messages de PSD2.
const (
	CodeFormatErrorNoPsu      = "FORMAT_ERROR_NO_PSU"
	CodeFormatErrorScaStatus  = "FORMAT_ERROR_SCA_STATUS"
	CodePsuCredentialsInvalid = "PSU_CREDENTIALS_INVALID"
	CodeScaInvalid            = "SCA_INVALID"
	CodeScaMethodUnknown      = "SCA_METHOD_UNKNOWN"
	CodeResourceUnknown       = "RESOURCE_UNKNOWN"
	CodeStatusInvalid         = "STATUS_INVALID"
	CodeTechnicalError        = "INTERNAL_SERVER_ERROR"
	CodeStaleWrite            = "STALE_WRITE_REJECTED"
)

// ErrorHolder es el par (categoría, código) con un texto opcional para el
// TPP. Viaja adjunto a la ProcessorResponse.
type ErrorHolder struct {
	Category ErrorCategory
	Code     string
	Message  string
}

// NewError construye un ErrorHolder.
func NewError(category ErrorCategory, code, message string) *ErrorHolder {
	return &ErrorHolder{Category: category, Code: code, Message: message}
}

// Error implementa error para poder loguear el holder directamente.
func (e *ErrorHolder) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s/%s", e.Category, e.Code)
	}
	return fmt.Sprintf("%s/%s: %s", e.Category, e.Code, e.Message)
}

// IsTechnical indica si el fallo es recuperable reintentando la misma etapa.
func (e *ErrorHolder) IsTechnical() bool {
	return e != nil && e.Category == CategoryTechnical
}
