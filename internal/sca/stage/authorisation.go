package stage

import (
	"context"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/metrics"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/spi"
)

// applyAuthorisation verifica la credencial del PSU contra el connector y, en
// el mismo paso, resuelve la selección de método:
//
//   - exención reportada por el banco → EXEMPTED (ejecución sin SCA)
//   - sin métodos disponibles → ejecución directa → FINALISED
//   - un solo método → auto-selección; si es decoupled arranca el push, si no
//     pide el challenge → SCAMETHODSELECTED
//   - varios métodos → la lista viaja en la respuesta y el estado queda en
//     PSUAUTHENTICATED hasta que el PSU elija
func applyAuthorisation(ctx context.Context, deps Deps, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	log := logger.From(ctx)
	psu := auth.PsuData.Merge(req.PsuData)

	if psu.IsEmpty() {
		return sca.FailedResponse(
			sca.NewError(sca.CategoryFormat, sca.CodeFormatErrorNoPsu, "no PSU identification data available"),
			psu,
		)
	}
	if !auth.PsuData.IsEmpty() && !req.PsuData.IsEmpty() && !req.PsuData.Matches(auth.PsuData) {
		return sca.FailedResponse(
			sca.NewError(sca.CategoryCredentialsInvalid, sca.CodePsuCredentialsInvalid, "PSU in request does not match PSU bound to resource"),
			req.PsuData,
		)
	}

	data := contextData(auth, psu)

	start := time.Now()
	authRes, err := deps.Connector.AuthenticatePsu(ctx, data, req.Password)
	observe(ctx, "AuthenticatePsu", start)
	if err != nil {
		log.Error("connector psu authentication failed",
			logger.AuthorisationID(auth.ID), logger.Err(err))
		return sca.TechnicalResponse(auth.ScaStatus, psu, "PSU authentication unavailable")
	}

	if authRes.Status == spi.AuthenticationFailure {
		metrics.FailedAttempts.Inc()
		log.Warn("psu credentials rejected",
			logger.AuthorisationID(auth.ID), logger.PsuID(psu.PsuID))
		resp := sca.FailedResponse(
			sca.NewError(sca.CategoryCredentialsInvalid, sca.CodePsuCredentialsInvalid, "PSU credentials invalid"),
			psu,
		)
		resp.CredentialFailed = true
		return resp
	}

	if authRes.ScaExempted {
		log.Info("sca exempted after psu authentication", logger.AuthorisationID(auth.ID))
		return executeWithoutSca(ctx, deps, auth, psu, types.ScaStatusExempted)
	}

	// Approach decoupled: tras autenticar no hay selección de método local,
	// se dispara el push directamente.
	if auth.ScaApproach == types.ScaApproachDecoupled {
		decReq := *req
		decReq.PsuData = psu
		return Decoupled(ctx, deps, auth, &decReq)
	}

	start = time.Now()
	methodsRes, err := deps.Connector.ListAvailableMethods(ctx, data)
	observe(ctx, "ListAvailableMethods", start)
	if err != nil {
		log.Error("connector list sca methods failed",
			logger.AuthorisationID(auth.ID), logger.Err(err))
		return sca.TechnicalResponse(auth.ScaStatus, psu, "SCA method listing unavailable")
	}

	if methodsRes.ScaExempted {
		log.Info("sca exempted after method listing", logger.AuthorisationID(auth.ID))
		return executeWithoutSca(ctx, deps, auth, psu, types.ScaStatusExempted)
	}

	methods := methodsRes.Methods
	switch {
	case len(methods) == 0:
		log.Info("no sca methods available, executing without sca", logger.AuthorisationID(auth.ID))
		return executeWithoutSca(ctx, deps, auth, psu, types.ScaStatusFinalised)

	case len(methods) == 1:
		return autoSelectSingleMethod(ctx, deps, auth, req, psu, methods)

	default:
		return &sca.ProcessorResponse{
			ScaStatus:           types.ScaStatusPsuAuthenticated,
			PsuData:             psu,
			AvailableScaMethods: methods,
		}
	}
}

// autoSelectSingleMethod elige el único método disponible sin esperar al PSU.
func autoSelectSingleMethod(ctx context.Context, deps Deps, auth *repository.Authorisation, req *sca.UpdateRequest, psu types.PsuIdData, methods []types.AuthenticationObject) *sca.ProcessorResponse {
	chosen := methods[0]

	if chosen.Decoupled {
		decReq := *req
		decReq.PsuData = psu
		decReq.AuthenticationMethodID = chosen.AuthenticationMethodID
		resp := Decoupled(ctx, deps, auth, &decReq)
		resp.AvailableScaMethods = methods
		return resp
	}

	resp := requestAuthorisationCode(ctx, deps, auth, psu, chosen)
	resp.AvailableScaMethods = methods
	return resp
}

// requestAuthorisationCode pide el challenge para el método elegido y avanza
// a SCAMETHODSELECTED.
func requestAuthorisationCode(ctx context.Context, deps Deps, auth *repository.Authorisation, psu types.PsuIdData, chosen types.AuthenticationObject) *sca.ProcessorResponse {
	start := time.Now()
	challengeRes, err := deps.Connector.RequestAuthorisationCode(ctx, contextData(auth, psu), chosen.AuthenticationMethodID)
	observe(ctx, "RequestAuthorisationCode", start)
	if err != nil {
		logger.From(ctx).Error("connector authorisation code request failed",
			logger.AuthorisationID(auth.ID),
			logger.MethodID(chosen.AuthenticationMethodID),
			logger.Err(err))
		return sca.TechnicalResponse(auth.ScaStatus, psu, "authorisation code request unavailable")
	}

	challenge := challengeRes.Challenge
	return &sca.ProcessorResponse{
		ScaStatus:             types.ScaStatusScaMethodSelected,
		PsuData:               psu,
		ChosenScaMethod:       &chosen,
		ChallengeData:         &challenge,
		ScaAuthenticationData: challengeRes.ScaAuthenticationData,
	}
}

// executeWithoutSca ejecuta el recurso padre sin segundo factor y cierra la
// autorización en target (EXEMPTED o FINALISED).
func executeWithoutSca(ctx context.Context, deps Deps, auth *repository.Authorisation, psu types.PsuIdData, target types.ScaStatus) *sca.ProcessorResponse {
	start := time.Now()
	execRes, err := deps.Connector.ExecuteWithoutSca(ctx, contextData(auth, psu))
	observe(ctx, "ExecuteWithoutSca", start)
	if err != nil {
		logger.From(ctx).Error("connector execution without sca failed",
			logger.AuthorisationID(auth.ID), logger.Err(err))
		return sca.TechnicalResponse(auth.ScaStatus, psu, "execution unavailable")
	}
	if !execRes.Success {
		return sca.FailedResponse(
			sca.NewError(sca.CategoryScaInvalid, sca.CodeScaInvalid, "execution rejected by backend"),
			psu,
		)
	}

	notifySink(ctx, deps, auth, execRes.BusinessStatus)

	return &sca.ProcessorResponse{
		ScaStatus: target,
		PsuData:   psu,
	}
}
