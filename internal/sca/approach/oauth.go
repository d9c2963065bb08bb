package approach

import (
	"context"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/sca"
)

// OAuth delega la autenticación completa al authorisation server del ASPSP:
// el engine no crea registro local ni procesa pasos. Las operaciones existen
// para que el resolver sea total, y devuelven vacío sin error.
type OAuth struct{}

// NewOAuth crea la estrategia oauth.
func NewOAuth() *OAuth { return &OAuth{} }

func (o *OAuth) Approach() types.ScaApproach { return types.ScaApproachOAuth }

func (o *OAuth) Init(ctx context.Context, auth *repository.Authorisation) (*InitResult, error) {
	return nil, nil
}

func (o *OAuth) Update(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	return &sca.ProcessorResponse{}
}

func (o *OAuth) GetScaStatus(ctx context.Context, authorisationID string) (types.ScaStatus, error) {
	return "", repository.ErrNotFound
}

func (o *OAuth) ListSubResources(ctx context.Context, parentID string, t types.AuthorisationType) ([]string, error) {
	return nil, nil
}
