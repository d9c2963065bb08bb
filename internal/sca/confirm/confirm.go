// Package confirm implementa la validación del confirmation code que cierra
// una autorización en UNCONFIRMED.
//
// Dos modos, elegidos por el perfil ASPSP:
//
//   - Local: el engine compara el código contra scaAuthenticationData
//     almacenado (soporta material hasheado con bcrypt o plano, comparación
//     en tiempo constante).
//   - Delegado: el connector valida el código y decide el estado SCA
//     resultante y el nuevo estado de negocio del recurso padre.
//
// A diferencia de los stages, este servicio persiste él mismo el resultado:
// el estado SCA y la notificación al sink son un solo desenlace lógico. Si el
// sink falla después de persistir, la autorización ya es final y el fallo
// solo se loguea (frontera at-least-once, documentada para los callers).
package confirm

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/metrics"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/profile"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/spi"
	"golang.org/x/crypto/bcrypt"
)

// Service valida confirmation codes y cierra autorizaciones REDIRECT (o
// cualquier otra que haya quedado en UNCONFIRMED).
type Service struct {
	repo      repository.AuthorisationRepository
	connector spi.Connector
	sink      repository.ParentStatusSink
	profiles  profile.Source
}

// NewService crea el servicio de confirmación.
func NewService(repo repository.AuthorisationRepository, connector spi.Connector, sink repository.ParentStatusSink, profiles profile.Source) *Service {
	return &Service{repo: repo, connector: connector, sink: sink, profiles: profiles}
}

// Process valida el confirmation code del request.
// Precondición: la autorización debe estar en UNCONFIRMED; cualquier otro
// estado produce STATUS_INVALID sin contactar al connector.
func (s *Service) Process(ctx context.Context, req *sca.UpdateRequest) *sca.ProcessorResponse {
	log := logger.From(ctx)

	auth, err := s.repo.Get(ctx, req.AuthorisationID)
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

	if auth.ScaStatus != types.ScaStatusUnconfirmed {
		log.Warn("confirmation rejected: authorisation not awaiting confirmation",
			logger.AuthorisationID(auth.ID), logger.ScaStatus(string(auth.ScaStatus)))
		return &sca.ProcessorResponse{
			ScaStatus: auth.ScaStatus,
			ErrorHolder: sca.NewError(sca.CategoryStatusInvalid, sca.CodeFormatErrorScaStatus,
				"confirmation only allowed in SCA status UNCONFIRMED"),
			PsuData: auth.PsuData,
		}
	}

	prof, err := s.profiles.Current(ctx)
	if err != nil {
		log.Error("aspsp profile unavailable", logger.Err(err))
		return sca.TechnicalResponse(auth.ScaStatus, auth.PsuData, "ASPSP profile unavailable")
	}

	if prof.ConfirmationCodeCheckByEngine {
		return s.checkLocally(ctx, auth, req)
	}
	return s.checkOnConnector(ctx, auth, req)
}

// checkLocally compara el código contra el material almacenado en el registro.
func (s *Service) checkLocally(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	ok := codeMatches(auth.ScaAuthenticationData, req.ConfirmationCode)

	outcome := "finalised"
	resp := &sca.ProcessorResponse{
		ScaStatus: types.ScaStatusFinalised,
		PsuData:   auth.PsuData,
	}
	if !ok {
		outcome = "failed"
		resp = sca.FailedResponse(
			sca.NewError(sca.CategoryScaInvalid, sca.CodeScaInvalid, "confirmation code is wrong"),
			auth.PsuData,
		)
		logger.From(ctx).Warn("confirmation code mismatch", logger.AuthorisationID(auth.ID))
	}
	metrics.ConfirmationOutcomes.WithLabelValues("local", outcome).Inc()

	if persisted := s.persist(ctx, auth, resp.ScaStatus); persisted != nil {
		return persisted
	}
	resp.Persisted = true
	return resp
}

// checkOnConnector delega la validación al backend bancario.
func (s *Service) checkOnConnector(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	log := logger.From(ctx)
	data := spi.ContextData{PsuData: auth.PsuData, ParentID: auth.ParentID, Type: auth.Type}

	start := time.Now()
	res, err := s.connector.ValidateConfirmationCode(ctx, data, req.ConfirmationCode)
	elapsed := time.Since(start)
	metrics.ConnectorLatency.WithLabelValues("ValidateConfirmationCode").Observe(float64(elapsed.Milliseconds()))
	log.Debug("connector call completed", logger.Operation("ValidateConfirmationCode"), logger.Duration(elapsed))
	if err != nil {
		// Fallo técnico: no se persistió nada, el mismo request puede
		// reintentarse.
		log.Error("connector confirmation code validation failed",
			logger.AuthorisationID(auth.ID), logger.Err(err))
		metrics.ConfirmationOutcomes.WithLabelValues("spi", "technical").Inc()
		return sca.TechnicalResponse(auth.ScaStatus, auth.PsuData, "confirmation validation unavailable")
	}

	resp := &sca.ProcessorResponse{
		ScaStatus: res.ScaStatus,
		PsuData:   auth.PsuData,
	}
	if res.ScaStatus == types.ScaStatusFailed {
		resp.ErrorHolder = sca.NewError(sca.CategoryScaInvalid, sca.CodeScaInvalid, "confirmation code rejected by backend")
		metrics.ConfirmationOutcomes.WithLabelValues("spi", "failed").Inc()
	} else {
		metrics.ConfirmationOutcomes.WithLabelValues("spi", "finalised").Inc()
	}

	if persisted := s.persist(ctx, auth, resp.ScaStatus); persisted != nil {
		return persisted
	}
	resp.Persisted = true

	// El estado SCA ya quedó persistido: un fallo del sink no lo revierte.
	if err := s.sink.UpdateBusinessStatus(ctx, auth.ParentID, auth.Type, res.BusinessStatus); err != nil {
		log.Error("parent business status update failed after confirmation",
			logger.AuthorisationID(auth.ID),
			logger.ParentID(auth.ParentID),
			logger.Err(err))
	}
	return resp
}

// persist guarda el estado resultante. Retorna una respuesta técnica si el
// write falla (incluye el stale write del optimistic locking).
func (s *Service) persist(ctx context.Context, auth *repository.Authorisation, status types.ScaStatus) *sca.ProcessorResponse {
	updated := auth.Clone()
	updated.ScaStatus = status

	if err := s.repo.Save(ctx, updated); err != nil {
		logger.From(ctx).Error("authorisation save failed after confirmation",
			logger.AuthorisationID(auth.ID), logger.Err(err))
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

// codeMatches compara en tiempo constante; si el material almacenado es un
// hash bcrypt, compara contra el hash.
func codeMatches(stored, submitted string) bool {
	if stored == "" || submitted == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
