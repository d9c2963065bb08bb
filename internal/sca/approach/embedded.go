package approach

import (
	"context"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/sca/chain"
	"github.com/dropDatabas3/scaflow/internal/sca/confirm"
)

// Embedded rutea todo create/update por el dispatcher con la secuencia
// completa de stages: identificación, autenticación, selección de método,
// challenge y finalización con TAN.
type Embedded struct {
	repo       repository.AuthorisationRepository
	dispatcher *chain.Dispatcher
	confirmer  *confirm.Service
}

// NewEmbedded crea la estrategia embedded.
func NewEmbedded(repo repository.AuthorisationRepository, dispatcher *chain.Dispatcher, confirmer *confirm.Service) *Embedded {
	return &Embedded{repo: repo, dispatcher: dispatcher, confirmer: confirmer}
}

func (e *Embedded) Approach() types.ScaApproach { return types.ScaApproachEmbedded }

func (e *Embedded) Init(ctx context.Context, auth *repository.Authorisation) (*InitResult, error) {
	return &InitResult{ScaStatus: types.ScaStatusReceived}, nil
}

func (e *Embedded) Update(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	if req.ConfirmationCode != "" || auth.ScaStatus == types.ScaStatusUnconfirmed {
		return e.confirmer.Process(ctx, req)
	}
	return e.dispatcher.Process(ctx, auth, req)
}

func (e *Embedded) GetScaStatus(ctx context.Context, authorisationID string) (types.ScaStatus, error) {
	a, err := e.repo.Get(ctx, authorisationID)
	if err != nil {
		return "", err
	}
	return a.ScaStatus, nil
}

func (e *Embedded) ListSubResources(ctx context.Context, parentID string, t types.AuthorisationType) ([]string, error) {
	return e.repo.ListByParent(ctx, parentID, t)
}
