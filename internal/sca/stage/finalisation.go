package stage

import (
	"context"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/sca"
)

// ScaMethodSelected procesa una autorización en SCAMETHODSELECTED: el PSU
// envió el TAN/OTP del challenge. El connector verifica el código y ejecuta
// el recurso padre en un solo paso; el resultado de negocio se propaga al
// status sink.
func ScaMethodSelected(ctx context.Context, deps Deps, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	log := logger.From(ctx)
	psu := auth.PsuData.Merge(req.PsuData)

	if req.ScaAuthenticationData == "" {
		return sca.FailedResponse(
			sca.NewError(sca.CategoryFormat, sca.CodeScaInvalid, "no SCA authentication data in request"),
			psu,
		)
	}

	start := time.Now()
	execRes, err := deps.Connector.VerifyScaAndExecute(ctx, contextData(auth, psu), req.ScaAuthenticationData)
	observe(ctx, "VerifyScaAndExecute", start)
	if err != nil {
		log.Error("connector sca verification failed",
			logger.AuthorisationID(auth.ID), logger.Err(err))
		return sca.TechnicalResponse(auth.ScaStatus, psu, "SCA verification unavailable")
	}

	if !execRes.Success {
		log.Warn("sca authentication data rejected", logger.AuthorisationID(auth.ID))
		return sca.FailedResponse(
			sca.NewError(sca.CategoryScaInvalid, sca.CodeScaInvalid, "SCA authentication data invalid or expired"),
			psu,
		)
	}

	notifySink(ctx, deps, auth, execRes.BusinessStatus)

	return &sca.ProcessorResponse{
		ScaStatus: types.ScaStatusFinalised,
		PsuData:   psu,
	}
}
