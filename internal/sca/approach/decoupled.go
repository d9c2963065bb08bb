package approach

import (
	"context"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/sca/chain"
	"github.com/dropDatabas3/scaflow/internal/sca/confirm"
)

// Decoupled es igual a embedded hasta la autenticación; después el challenge
// viaja por el canal push del banco (la app del PSU) y el engine solo espera
// el desenlace. El PSU message del connector se propaga tal cual al TPP.
type Decoupled struct {
	repo       repository.AuthorisationRepository
	dispatcher *chain.Dispatcher
	confirmer  *confirm.Service
}

// NewDecoupled crea la estrategia decoupled.
func NewDecoupled(repo repository.AuthorisationRepository, dispatcher *chain.Dispatcher, confirmer *confirm.Service) *Decoupled {
	return &Decoupled{repo: repo, dispatcher: dispatcher, confirmer: confirmer}
}

func (d *Decoupled) Approach() types.ScaApproach { return types.ScaApproachDecoupled }

func (d *Decoupled) Init(ctx context.Context, auth *repository.Authorisation) (*InitResult, error) {
	return &InitResult{ScaStatus: types.ScaStatusReceived}, nil
}

func (d *Decoupled) Update(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	if req.ConfirmationCode != "" || auth.ScaStatus == types.ScaStatusUnconfirmed {
		return d.confirmer.Process(ctx, req)
	}
	return d.dispatcher.Process(ctx, auth, req)
}

func (d *Decoupled) GetScaStatus(ctx context.Context, authorisationID string) (types.ScaStatus, error) {
	a, err := d.repo.Get(ctx, authorisationID)
	if err != nil {
		return "", err
	}
	return a.ScaStatus, nil
}

func (d *Decoupled) ListSubResources(ctx context.Context, parentID string, t types.AuthorisationType) ([]string, error) {
	return d.repo.ListByParent(ctx, parentID, t)
}
