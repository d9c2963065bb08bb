// Package facade expone las operaciones de autorización hacia los callers
// (capa API del ASPSP): crear, procesar un paso, consultar estado y listar
// sub-recursos. Es el único lugar del engine que escribe el record store
// después de un paso: los stages devuelven la transición y la facade decide
// el write-back según la ProcessorResponse.
package facade

import (
	"context"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/profile"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/sca/approach"
	"github.com/google/uuid"
)

// CreateResult es el desenlace de la creación de una autorización.
// Una creación OAUTH no deja registro local: AuthorisationID queda vacío.
type CreateResult struct {
	AuthorisationID string
	ScaStatus       types.ScaStatus
	ScaApproach     types.ScaApproach
	RedirectURI     string
	NokRedirectURI  string
	PsuMessage      string
}

// Facade orquesta las autorizaciones de un tipo de recurso padre concreto.
type Facade struct {
	authType types.AuthorisationType
	repo     repository.AuthorisationRepository
	resolver *approach.Resolver
	profiles profile.Source
}

// NewPayment crea la facade de autorizaciones de iniciación de pago.
func NewPayment(repo repository.AuthorisationRepository, resolver *approach.Resolver, profiles profile.Source) *Facade {
	return &Facade{authType: types.AuthorisationTypePaymentCreation, repo: repo, resolver: resolver, profiles: profiles}
}

// NewCancellation crea la facade de autorizaciones de cancelación de pago.
func NewCancellation(repo repository.AuthorisationRepository, resolver *approach.Resolver, profiles profile.Source) *Facade {
	return &Facade{authType: types.AuthorisationTypePaymentCancellation, repo: repo, resolver: resolver, profiles: profiles}
}

// NewConsent crea la facade de autorizaciones de consent.
func NewConsent(repo repository.AuthorisationRepository, resolver *approach.Resolver, profiles profile.Source) *Facade {
	return &Facade{authType: types.AuthorisationTypeConsentCreation, repo: repo, resolver: resolver, profiles: profiles}
}

// Type retorna el tipo de autorización que sirve esta facade.
func (f *Facade) Type() types.AuthorisationType { return f.authType }

// CreateAuthorisation abre una autorización nueva sobre el recurso padre.
// El approach sale del perfil ASPSP vigente y queda fijo de por vida.
func (f *Facade) CreateAuthorisation(ctx context.Context, parentID string, psu types.PsuIdData) (*CreateResult, error) {
	log := logger.From(ctx)

	prof, err := f.profiles.Current(ctx)
	if err != nil {
		return nil, err
	}

	svc, ok := f.resolver.ByApproach(prof.DefaultScaApproach)
	if !ok {
		return nil, sca.NewError(sca.CategoryTechnical, sca.CodeTechnicalError,
			"no strategy registered for approach "+string(prof.DefaultScaApproach))
	}

	now := time.Now()
	auth := &repository.Authorisation{
		ID:          uuid.NewString(),
		ParentID:    parentID,
		Type:        f.authType,
		ScaApproach: prof.DefaultScaApproach,
		PsuData:     psu,
		CreatedAt:   now,
		ExpiresAt:   now.Add(prof.AuthorisationTTL),
	}

	initRes, err := svc.Init(ctx, auth)
	if err != nil {
		log.Error("authorisation init failed",
			logger.ParentID(parentID),
			logger.ScaApproach(string(prof.DefaultScaApproach)),
			logger.Err(err))
		return nil, err
	}
	if initRes == nil {
		// OAuth: la identidad vive en el authorisation server, no acá.
		return &CreateResult{ScaApproach: prof.DefaultScaApproach}, nil
	}

	auth.ScaStatus = initRes.ScaStatus
	auth.RedirectURI = initRes.RedirectURI
	auth.NokRedirectURI = initRes.NokRedirectURI

	if err := f.repo.Create(ctx, auth); err != nil {
		log.Error("authorisation create failed",
			logger.ParentID(parentID), logger.Err(err))
		return nil, err
	}

	log.Info("authorisation created",
		logger.AuthorisationID(auth.ID),
		logger.ParentID(parentID),
		logger.AuthorisationType(string(f.authType)),
		logger.ScaApproach(string(auth.ScaApproach)))

	return &CreateResult{
		AuthorisationID: auth.ID,
		ScaStatus:       auth.ScaStatus,
		ScaApproach:     auth.ScaApproach,
		RedirectURI:     auth.RedirectURI,
		NokRedirectURI:  auth.NokRedirectURI,
		PsuMessage:      initRes.PsuMessage,
	}, nil
}

// UpdateAuthorisation procesa un paso de interacción y persiste el resultado.
// Los errores técnicos no persisten nada: el mismo request puede
// reintentarse sobre el estado intacto.
func (f *Facade) UpdateAuthorisation(ctx context.Context, req *sca.UpdateRequest) *sca.ProcessorResponse {
	log := logger.From(ctx)

	auth, err := f.repo.Get(ctx, req.AuthorisationID)
	if err != nil {
		if err == repository.ErrNotFound {
			return &sca.ProcessorResponse{
				ErrorHolder: sca.NewError(sca.CategoryResourceUnknown, sca.CodeResourceUnknown, "authorisation not found"),
				PsuData:     req.PsuData,
			}
		}
		log.Error("authorisation load failed", logger.AuthorisationID(req.AuthorisationID), logger.Err(err))
		return sca.TechnicalResponse("", req.PsuData, "authorisation store unavailable")
	}

	if auth.Type != f.authType {
		// Un id de otro tipo de recurso no existe para esta facade.
		return &sca.ProcessorResponse{
			ErrorHolder: sca.NewError(sca.CategoryResourceUnknown, sca.CodeResourceUnknown, "authorisation not found"),
			PsuData:     req.PsuData,
		}
	}

	if !auth.ScaStatus.IsTerminal() && auth.IsExpired(time.Now()) {
		return f.failExpired(ctx, auth)
	}

	svc, ok := f.resolver.ByApproach(auth.ScaApproach)
	if !ok {
		log.Error("no strategy registered for stored approach",
			logger.AuthorisationID(auth.ID), logger.ScaApproach(string(auth.ScaApproach)))
		return sca.TechnicalResponse(auth.ScaStatus, auth.PsuData, "unsupported SCA approach")
	}

	req.ParentID = auth.ParentID
	req.Type = auth.Type

	resp := svc.Update(ctx, auth, req)
	if resp == nil {
		return sca.TechnicalResponse(auth.ScaStatus, auth.PsuData, "strategy returned no response")
	}

	if f.shouldPersist(auth, resp) {
		if failed := f.writeBack(ctx, auth, resp); failed != nil {
			return failed
		}
	}
	return resp
}

// GetScaStatus retorna el estado SCA actual.
func (f *Facade) GetScaStatus(ctx context.Context, authorisationID string) (types.ScaStatus, error) {
	auth, err := f.repo.Get(ctx, authorisationID)
	if err != nil {
		return "", err
	}
	if auth.Type != f.authType {
		return "", repository.ErrNotFound
	}
	return auth.ScaStatus, nil
}

// ListAuthorisations retorna los ids de autorización del recurso padre, en
// orden de creación.
func (f *Facade) ListAuthorisations(ctx context.Context, parentID string) ([]string, error) {
	return f.repo.ListByParent(ctx, parentID, f.authType)
}

// shouldPersist decide el write-back. Se persiste todo desenlace de negocio
// (incluido FAILED); los errores técnicos y los pasos ya persistidos por el
// servicio de confirmación no se tocan.
func (f *Facade) shouldPersist(auth *repository.Authorisation, resp *sca.ProcessorResponse) bool {
	if resp.Persisted {
		return false
	}
	if !resp.HasError() {
		return resp.ScaStatus != "" && resp.ScaStatus != auth.ScaStatus ||
			resp.ChosenScaMethod != nil ||
			resp.AvailableScaMethods != nil ||
			resp.ScaAuthenticationData != "" ||
			!resp.PsuData.IsEmpty()
	}
	return resp.ScaStatus == types.ScaStatusFailed && !resp.ErrorHolder.IsTechnical()
}

// writeBack aplica la respuesta sobre el registro y la guarda. Un stale write
// del optimistic locking degrada a técnico: otro worker ganó la carrera.
func (f *Facade) writeBack(ctx context.Context, auth *repository.Authorisation, resp *sca.ProcessorResponse) *sca.ProcessorResponse {
	updated := auth.Clone()
	if resp.ScaStatus != "" {
		updated.ScaStatus = resp.ScaStatus
	}
	if !resp.PsuData.IsEmpty() {
		updated.PsuData = resp.PsuData
	}
	if resp.ChosenScaMethod != nil {
		updated.ChosenScaMethod = resp.ChosenScaMethod
	}
	if resp.AvailableScaMethods != nil {
		updated.AvailableScaMethods = resp.AvailableScaMethods
	}
	if resp.ScaAuthenticationData != "" {
		updated.ScaAuthenticationData = resp.ScaAuthenticationData
	}
	if resp.CredentialFailed {
		updated.FailedAttempts++
	}

	if err := f.repo.Save(ctx, updated); err != nil {
		logger.From(ctx).Error("authorisation save failed",
			logger.AuthorisationID(auth.ID),
			logger.ScaStatus(string(updated.ScaStatus)),
			logger.Err(err))
		code := sca.CodeTechnicalError
		if err == repository.ErrConflict {
			code = sca.CodeStaleWrite
		}
		return &sca.ProcessorResponse{
			ScaStatus:   auth.ScaStatus,
			ErrorHolder: sca.NewError(sca.CategoryTechnical, code, "authorisation store write failed"),
			PsuData:     auth.PsuData,
		}
	}
	return nil
}

// failExpired marca la autorización vencida como FAILED (best effort) y
// responde STATUS_INVALID.
func (f *Facade) failExpired(ctx context.Context, auth *repository.Authorisation) *sca.ProcessorResponse {
	updated := auth.Clone()
	updated.ScaStatus = types.ScaStatusFailed
	if err := f.repo.Save(ctx, updated); err != nil {
		logger.From(ctx).Error("expired authorisation save failed",
			logger.AuthorisationID(auth.ID), logger.Err(err))
	}
	return &sca.ProcessorResponse{
		ScaStatus: types.ScaStatusFailed,
		ErrorHolder: sca.NewError(sca.CategoryStatusInvalid, sca.CodeStatusInvalid,
			"authorisation expired"),
		PsuData: auth.PsuData,
	}
}
