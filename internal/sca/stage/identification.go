package stage

import (
	"context"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/sca"
)

// Received procesa una autorización en RECEIVED: identificación pura del PSU
// o, si el request ya trae credencial, identificación + autenticación en un
// solo paso.
func Received(ctx context.Context, deps Deps, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	if req.IsIdentification() {
		return applyIdentification(ctx, auth, req)
	}
	return applyAuthorisation(ctx, deps, auth, req)
}

// PsuIdentified procesa una autorización en PSUIDENTIFIED. Mismas reglas que
// RECEIVED: el TPP puede re-identificar o avanzar con la credencial.
func PsuIdentified(ctx context.Context, deps Deps, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	return Received(ctx, deps, auth, req)
}

// applyIdentification valida que haya identidad de PSU y que no contradiga a
// la ya vinculada al recurso. Tolerante si todavía no hay ninguna vinculada.
func applyIdentification(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	if req.PsuData.IsEmpty() {
		logger.From(ctx).Warn("psu identification without psu data",
			logger.AuthorisationID(auth.ID), logger.ParentID(auth.ParentID))
		return sca.FailedResponse(
			sca.NewError(sca.CategoryFormat, sca.CodeFormatErrorNoPsu, "no PSU identification data in request"),
			req.PsuData,
		)
	}

	if !auth.PsuData.IsEmpty() && !req.PsuData.Matches(auth.PsuData) {
		logger.From(ctx).Warn("psu identification mismatch",
			logger.AuthorisationID(auth.ID), logger.PsuID(req.PsuData.PsuID))
		return sca.FailedResponse(
			sca.NewError(sca.CategoryCredentialsInvalid, sca.CodePsuCredentialsInvalid, "PSU in request does not match PSU bound to resource"),
			req.PsuData,
		)
	}

	return &sca.ProcessorResponse{
		ScaStatus: types.ScaStatusPsuIdentified,
		PsuData:   auth.PsuData.Merge(req.PsuData),
	}
}
