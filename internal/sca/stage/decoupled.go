package stage

import (
	"context"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/sca"
)

// Decoupled es el stage combinado del flujo push-to-app: pide al connector
// arrancar el SCA decoupled con un método opcionalmente pre-elegido y deja la
// autorización en SCAMETHODSELECTED con el mensaje para el PSU.
func Decoupled(ctx context.Context, deps Deps, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	psu := auth.PsuData.Merge(req.PsuData)

	var methodID *string
	if req.AuthenticationMethodID != "" {
		// El método pre-elegido debe ser conocido si ya hay lista persistida.
		if len(auth.AvailableScaMethods) > 0 && !auth.KnowsMethod(req.AuthenticationMethodID) {
			return sca.FailedResponse(
				sca.NewError(sca.CategoryScaInvalid, sca.CodeScaMethodUnknown, "SCA method unknown"),
				psu,
			)
		}
		id := req.AuthenticationMethodID
		methodID = &id
	}

	start := time.Now()
	decRes, err := deps.Connector.StartDecoupled(ctx, contextData(auth, psu), auth.ID, methodID)
	observe(ctx, "StartDecoupled", start)
	if err != nil {
		logger.From(ctx).Error("connector decoupled start failed",
			logger.AuthorisationID(auth.ID), logger.Err(err))
		return sca.TechnicalResponse(auth.ScaStatus, psu, "decoupled SCA unavailable")
	}

	status := decRes.ScaStatus
	if status == "" {
		status = types.ScaStatusScaMethodSelected
	}
	if status == types.ScaStatusFailed {
		return sca.FailedResponse(
			sca.NewError(sca.CategoryScaInvalid, sca.CodeScaInvalid, "decoupled SCA rejected by backend"),
			psu,
		)
	}

	resp := &sca.ProcessorResponse{
		ScaStatus:  status,
		PsuData:    psu,
		PsuMessage: decRes.PsuMessage,
	}
	if methodID != nil {
		if known := auth.MethodByID(*methodID); known != nil {
			resp.ChosenScaMethod = known
		} else {
			resp.ChosenScaMethod = &types.AuthenticationObject{AuthenticationMethodID: *methodID, Decoupled: true}
		}
	}
	return resp
}
