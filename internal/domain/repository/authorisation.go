package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/types"
)

// Authorisation es la entidad central del engine: el estado durable de un
// intento de autorización SCA sobre un pago, una cancelación o un consent.
//
// Invariantes (las hace cumplir el engine, no el store):
//   - ScaApproach se fija en la creación y nunca cambia.
//   - ScaStatus solo avanza según la tabla de transiciones (FAILED es la
//     única transición lateral permitida).
//   - En estado terminal el registro es inmutable.
type Authorisation struct {
	ID       string
	ParentID string
	Type     types.AuthorisationType

	ScaStatus   types.ScaStatus
	ScaApproach types.ScaApproach

	PsuData types.PsuIdData

	// ChosenScaMethod queda nil hasta que el PSU (o la auto-selección)
	// elige un método.
	ChosenScaMethod *types.AuthenticationObject

	// AvailableScaMethods se persiste cuando el connector lista los métodos,
	// para poder validar el authenticationMethodId de updates posteriores.
	AvailableScaMethods []types.AuthenticationObject

	// ScaAuthenticationData es el material del confirmation code/TAN.
	// Write-once por intento. Puede ser un hash bcrypt o el valor plano,
	// según lo que entregue el connector.
	ScaAuthenticationData string

	// FailedAttempts cuenta verificaciones de credencial fallidas.
	FailedAttempts int

	// RedirectURI / NokRedirectURI solo aplican al approach REDIRECT.
	RedirectURI    string
	NokRedirectURI string

	// Version es la columna de optimistic locking del store.
	Version int

	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired indica si la autorización superó su ventana de vida.
func (a *Authorisation) IsExpired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}

// KnowsMethod verifica que un authenticationMethodId pertenezca al conjunto
// listado por el connector.
func (a *Authorisation) KnowsMethod(methodID string) bool {
	for _, m := range a.AvailableScaMethods {
		if m.AuthenticationMethodID == methodID {
			return true
		}
	}
	return false
}

// MethodByID busca un método disponible por id. Retorna nil si no existe.
func (a *Authorisation) MethodByID(methodID string) *types.AuthenticationObject {
	for i := range a.AvailableScaMethods {
		if a.AvailableScaMethods[i].AuthenticationMethodID == methodID {
			m := a.AvailableScaMethods[i]
			return &m
		}
	}
	return nil
}

// Clone retorna una copia profunda del snapshot. Los stage handlers trabajan
// sobre snapshots inmutables; el write-back lo hace solo la facade.
func (a *Authorisation) Clone() *Authorisation {
	out := *a
	if a.ChosenScaMethod != nil {
		m := *a.ChosenScaMethod
		out.ChosenScaMethod = &m
	}
	if a.AvailableScaMethods != nil {
		out.AvailableScaMethods = make([]types.AuthenticationObject, len(a.AvailableScaMethods))
		copy(out.AvailableScaMethods, a.AvailableScaMethods)
	}
	return &out
}

// AuthorisationRepository define el contrato contra el record store externo.
// La serialización de updates concurrentes sobre el mismo id es responsabilidad
// del store (Save retorna ErrConflict ante un stale write).
type AuthorisationRepository interface {
	// Get obtiene una autorización por id. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, authorisationID string) (*Authorisation, error)

	// Create persiste una autorización nueva. El caller ya asignó ID,
	// approach y estado inicial.
	Create(ctx context.Context, a *Authorisation) error

	// Save persiste el snapshot completo. Retorna ErrConflict si la versión
	// almacenada ya no coincide con a.Version.
	Save(ctx context.Context, a *Authorisation) error

	// ListByParent retorna los ids de autorización de un recurso padre,
	// ordenados por creación.
	ListByParent(ctx context.Context, parentID string, t types.AuthorisationType) ([]string, error)
}

// ParentStatusSink actualiza el estado de negocio del recurso padre
// (transaction status del pago, estado del consent). Se invoca únicamente
// después de una finalización exitosa o una exención.
type ParentStatusSink interface {
	UpdateBusinessStatus(ctx context.Context, parentID string, t types.AuthorisationType, status types.BusinessStatus) error
}
