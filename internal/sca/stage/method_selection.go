package stage

import (
	"context"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/sca"
)

// PsuAuthenticated procesa una autorización en PSUAUTHENTICATED: el PSU ya
// probó su credencial y ahora debe elegir método. El id enviado tiene que
// pertenecer al conjunto que el connector listó en el paso anterior.
func PsuAuthenticated(ctx context.Context, deps Deps, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	psu := auth.PsuData.Merge(req.PsuData)

	if req.AuthenticationMethodID == "" {
		// Sin método elegido no hay nada que avanzar: re-ejecución de la
		// autenticación (ej: el TPP reintenta con credencial).
		return applyAuthorisation(ctx, deps, auth, req)
	}

	chosen := auth.MethodByID(req.AuthenticationMethodID)
	if chosen == nil {
		logger.From(ctx).Warn("unknown sca method selected",
			logger.AuthorisationID(auth.ID),
			logger.MethodID(req.AuthenticationMethodID))
		return sca.FailedResponse(
			sca.NewError(sca.CategoryScaInvalid, sca.CodeScaMethodUnknown, "SCA method unknown"),
			psu,
		)
	}

	if chosen.Decoupled {
		decReq := *req
		decReq.PsuData = psu
		return Decoupled(ctx, deps, auth, &decReq)
	}

	return requestAuthorisationCode(ctx, deps, auth, psu, *chosen)
}
