// Package approach contiene las estrategias por SCA approach.
//
// Una interfaz, cuatro structs independientes (sin base compartida: el
// acoplamiento entre approaches fue una fuente de bugs en sistemas
// anteriores). La selección se hace una sola vez, al crear la autorización,
// con el approach default del perfil ASPSP; después el registro queda atado a
// esa estrategia de por vida.
package approach

import (
	"context"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/sca"
)

// InitResult es lo que la estrategia aporta a la creación del registro.
// nil = la estrategia no crea autorizaciones localmente (OAuth).
type InitResult struct {
	ScaStatus      types.ScaStatus
	RedirectURI    string
	NokRedirectURI string
	PsuMessage     string
}

// Service es la interfaz uniforme de las cuatro estrategias.
type Service interface {
	// Approach identifica la estrategia en el lookup table del resolver.
	Approach() types.ScaApproach

	// Init decide el estado inicial y los datos propios del approach para
	// un registro recién creado. La persistencia la hace la facade.
	Init(ctx context.Context, auth *repository.Authorisation) (*InitResult, error)

	// Update procesa un paso de interacción PSU/TPP sobre el snapshot
	// cargado. La respuesta indica con Persisted si el write-back ya
	// ocurrió (confirmación).
	Update(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse

	// GetScaStatus retorna el estado SCA actual de una autorización.
	GetScaStatus(ctx context.Context, authorisationID string) (types.ScaStatus, error)

	// ListSubResources lista los ids de autorización del recurso padre.
	ListSubResources(ctx context.Context, parentID string, t types.AuthorisationType) ([]string, error)
}

// Resolver es el lookup table approach → estrategia.
type Resolver struct {
	services map[types.ScaApproach]Service
}

// NewResolver arma el lookup con las estrategias dadas.
func NewResolver(services ...Service) *Resolver {
	m := make(map[types.ScaApproach]Service, len(services))
	for _, s := range services {
		m[s.Approach()] = s
	}
	return &Resolver{services: m}
}

// ByApproach retorna la estrategia registrada para el approach.
func (r *Resolver) ByApproach(a types.ScaApproach) (Service, bool) {
	s, ok := r.services[a]
	return s, ok
}
