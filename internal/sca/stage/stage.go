// Package stage contiene las funciones de transición del engine SCA.
//
// Cada stage es una función (snapshot de la autorización, update request) →
// ProcessorResponse. Los stages no persisten nada: el write-back lo hace la
// facade con la respuesta, y solo cuando no hay ErrorHolder. El único efecto
// colateral permitido son las llamadas al connector y, en los stages que
// finalizan, la notificación al status sink del recurso padre.
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

// Deps son los colaboradores externos que un stage puede invocar.
type Deps struct {
	Connector spi.Connector
	Sink      repository.ParentStatusSink
}

// Func es la firma común de todos los stages.
type Func func(ctx context.Context, deps Deps, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse

// contextData arma el ContextData del connector para la autorización.
func contextData(auth *repository.Authorisation, psu types.PsuIdData) spi.ContextData {
	return spi.ContextData{
		PsuData:  psu,
		ParentID: auth.ParentID,
		Type:     auth.Type,
	}
}

// observe registra la latencia de una llamada al connector.
func observe(ctx context.Context, op string, start time.Time) {
	elapsed := time.Since(start)
	metrics.ConnectorLatency.WithLabelValues(op).Observe(float64(elapsed.Milliseconds()))
	logger.From(ctx).Debug("connector call completed", logger.Operation(op), logger.Duration(elapsed))
}

// notifySink actualiza el estado de negocio del recurso padre. Un fallo acá
// no revierte la autorización: el estado SCA ya es final y la inconsistencia
// se reporta como error técnico logueado (frontera at-least-once).
func notifySink(ctx context.Context, deps Deps, auth *repository.Authorisation, status types.BusinessStatus) {
	if err := deps.Sink.UpdateBusinessStatus(ctx, auth.ParentID, auth.Type, status); err != nil {
		logger.From(ctx).Error("parent business status update failed after finalisation",
			logger.AuthorisationID(auth.ID),
			logger.ParentID(auth.ParentID),
			logger.Err(err),
		)
	}
}
