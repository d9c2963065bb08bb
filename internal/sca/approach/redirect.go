package approach

import (
	"context"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/profile"
	"github.com/dropDatabas3/scaflow/internal/redirectlink"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/sca/confirm"
)

// Redirect entrega el flujo SCA al online banking del ASPSP: el engine solo
// emite los links firmados en la creación y espera el confirmation code al
// final. No hay stages intermedios; cualquier update que no sea una
// confirmación se rechaza.
type Redirect struct {
	repo      repository.AuthorisationRepository
	confirmer *confirm.Service
	profiles  profile.Source
	secret    []byte
}

// NewRedirect crea la estrategia redirect. secret firma los state tokens de
// los links.
func NewRedirect(repo repository.AuthorisationRepository, confirmer *confirm.Service, profiles profile.Source, secret []byte) *Redirect {
	return &Redirect{repo: repo, confirmer: confirmer, profiles: profiles, secret: secret}
}

func (r *Redirect) Approach() types.ScaApproach { return types.ScaApproachRedirect }

func (r *Redirect) Init(ctx context.Context, auth *repository.Authorisation) (*InitResult, error) {
	prof, err := r.profiles.Current(ctx)
	if err != nil {
		return nil, err
	}

	builder := &redirectlink.Builder{
		Secret:      r.secret,
		OkTemplate:  prof.RedirectURLTemplate,
		NokTemplate: prof.NokRedirectURLTemplate,
		TokenTTL:    prof.RedirectTokenTTL,
	}
	ok, nok, err := builder.Build(auth.ID, auth.ParentID)
	if err != nil {
		return nil, err
	}

	return &InitResult{
		ScaStatus:      types.ScaStatusReceived,
		RedirectURI:    ok,
		NokRedirectURI: nok,
	}, nil
}

func (r *Redirect) Update(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	if req.ConfirmationCode != "" {
		return r.confirmer.Process(ctx, req)
	}
	return &sca.ProcessorResponse{
		ScaStatus: auth.ScaStatus,
		ErrorHolder: sca.NewError(sca.CategoryStatusInvalid, sca.CodeStatusInvalid,
			"redirect authorisations only accept a confirmation code"),
		PsuData: auth.PsuData,
	}
}

func (r *Redirect) GetScaStatus(ctx context.Context, authorisationID string) (types.ScaStatus, error) {
	a, err := r.repo.Get(ctx, authorisationID)
	if err != nil {
		return "", err
	}
	return a.ScaStatus, nil
}

func (r *Redirect) ListSubResources(ctx context.Context, parentID string, t types.AuthorisationType) ([]string, error) {
	return r.repo.ListByParent(ctx, parentID, t)
}
