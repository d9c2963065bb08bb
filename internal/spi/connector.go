// Package spi define el contrato contra el connector bancario (SPI): el
// adaptador que ejecuta las acciones reales de autenticación contra el core
// bancario del ASPSP.
//
// Convención de errores: un error retornado por cualquier método es un fallo
// técnico (red, timeout, backend caído) y el engine lo mapea a categoría
// TECHNICAL sin marcar la autorización como FAILED. Los fallos de negocio
// (credencial incorrecta, TAN inválido) viajan dentro del resultado, nunca
// como error de Go.
package spi

import (
	"context"

	"github.com/dropDatabas3/scaflow/internal/domain/types"
)

// ContextData acompaña cada llamada al connector: identifica al PSU y al
// recurso padre sobre el que se está autorizando.
type ContextData struct {
	PsuData  types.PsuIdData
	ParentID string
	Type     types.AuthorisationType
}

// AuthenticationStatus es el veredicto de negocio de AuthenticatePsu.
type AuthenticationStatus string

const (
	AuthenticationSuccess AuthenticationStatus = "SUCCESS"
	AuthenticationFailure AuthenticationStatus = "FAILURE"
)

// PsuAuthenticationResult es la respuesta de AuthenticatePsu.
type PsuAuthenticationResult struct {
	Status AuthenticationStatus
	// ScaExempted: el backend decidió que este recurso no requiere SCA.
	ScaExempted bool
}

// AvailableMethodsResult es la respuesta de ListAvailableMethods.
type AvailableMethodsResult struct {
	Methods     []types.AuthenticationObject
	ScaExempted bool
}

// ChallengeResult es la respuesta de RequestAuthorisationCode.
type ChallengeResult struct {
	Challenge types.ChallengeData
	// ScaAuthenticationData es el material que el engine guarda para poder
	// validar el código localmente (puede venir hasheado con bcrypt).
	ScaAuthenticationData string
}

// DecoupledResult es la respuesta de StartDecoupled.
type DecoupledResult struct {
	// PsuMessage es el texto para mostrar al PSU
	// (ej: "Please use your BankApp for transaction Authorisation").
	PsuMessage string
	ScaStatus  types.ScaStatus
}

// ExecutionResult es la respuesta de VerifyScaAndExecute: verificación del
// TAN embedded más la ejecución del recurso padre en el backend.
type ExecutionResult struct {
	Success        bool
	BusinessStatus types.BusinessStatus
}

// ConfirmationResult es la respuesta de ValidateConfirmationCode (modo
// delegado): el backend decide el estado SCA resultante y el nuevo estado de
// negocio del recurso padre.
type ConfirmationResult struct {
	ScaStatus      types.ScaStatus
	BusinessStatus types.BusinessStatus
}

// Connector es el SPI completo que el engine necesita.
// Los timeouts son responsabilidad de la implementación; el engine trata un
// timeout igual que cualquier otro fallo técnico.
type Connector interface {
	// AuthenticatePsu verifica la credencial del PSU (password/PIN).
	AuthenticatePsu(ctx context.Context, data ContextData, credential string) (*PsuAuthenticationResult, error)

	// ListAvailableMethods lista los métodos SCA disponibles para el PSU.
	ListAvailableMethods(ctx context.Context, data ContextData) (*AvailableMethodsResult, error)

	// RequestAuthorisationCode pide al backend que emita un challenge
	// (OTP/código) para el método elegido.
	RequestAuthorisationCode(ctx context.Context, data ContextData, methodID string) (*ChallengeResult, error)

	// StartDecoupled dispara el flujo decoupled (push a la app bancaria).
	// methodID es nil cuando el PSU no pre-eligió método.
	StartDecoupled(ctx context.Context, data ContextData, authorisationID string, methodID *string) (*DecoupledResult, error)

	// VerifyScaAndExecute valida el TAN embedded y ejecuta el recurso padre.
	VerifyScaAndExecute(ctx context.Context, data ContextData, authenticationData string) (*ExecutionResult, error)

	// ValidateConfirmationCode delega la validación del confirmation code
	// al backend (modo delegado del Confirmation Service).
	ValidateConfirmationCode(ctx context.Context, data ContextData, code string) (*ConfirmationResult, error)

	// ExecuteWithoutSca ejecuta el recurso padre sin segundo factor
	// (exención o lista de métodos vacía).
	ExecuteWithoutSca(ctx context.Context, data ContextData) (*ExecutionResult, error)
}
