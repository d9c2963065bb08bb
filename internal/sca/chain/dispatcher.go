// Package chain implementa el dispatcher de stages: dado el estado actual de
// la autorización elige la única función de transición aplicable y la invoca.
//
// El mapa estado → stage reemplaza a una cadena de objetos polimórficos para
// que la tabla de transiciones quede auditable en un solo lugar. El dispatcher
// no persiste: devuelve la ProcessorResponse tal cual al caller.
package chain

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/metrics"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/sca/stage"
)

// Dispatcher resuelve y ejecuta el stage aplicable al estado actual.
type Dispatcher struct {
	deps   stage.Deps
	stages map[types.ScaStatus]stage.Func
}

// New crea un Dispatcher con el conjunto de stages dado.
// Los estados terminales nunca llevan stage: ante un update sobre una
// autorización terminal el dispatcher falla cerrado con STATUS_INVALID.
func New(deps stage.Deps, stages map[types.ScaStatus]stage.Func) *Dispatcher {
	return &Dispatcher{deps: deps, stages: stages}
}

// EmbeddedStages es la secuencia completa del approach embedded.
func EmbeddedStages() map[types.ScaStatus]stage.Func {
	return map[types.ScaStatus]stage.Func{
		types.ScaStatusReceived:          stage.Received,
		types.ScaStatusPsuIdentified:     stage.PsuIdentified,
		types.ScaStatusPsuAuthenticated:  stage.PsuAuthenticated,
		types.ScaStatusScaMethodSelected: stage.ScaMethodSelected,
	}
}

// DecoupledStages es la secuencia del approach decoupled: identificación y
// luego el stage combinado que arranca el push.
func DecoupledStages() map[types.ScaStatus]stage.Func {
	return map[types.ScaStatus]stage.Func{
		types.ScaStatusReceived:          stage.Received,
		types.ScaStatusPsuIdentified:     stage.PsuIdentified,
		types.ScaStatusPsuAuthenticated:  stage.Decoupled,
		types.ScaStatusScaMethodSelected: stage.ScaMethodSelected,
	}
}

// Process ejecuta una transición sobre el snapshot dado.
// Falla cerrado (STATUS_INVALID) si ningún stage declara el estado actual
// como precondición; nunca hace no-op silencioso.
func (d *Dispatcher) Process(ctx context.Context, auth *repository.Authorisation, req *sca.UpdateRequest) *sca.ProcessorResponse {
	current := auth.ScaStatus

	fn, ok := d.stages[current]
	if !ok || current.IsTerminal() {
		logger.From(ctx).Warn("update rejected: no stage applicable for current status",
			logger.AuthorisationID(auth.ID), logger.ScaStatus(string(current)))
		return &sca.ProcessorResponse{
			ScaStatus: current,
			ErrorHolder: sca.NewError(sca.CategoryStatusInvalid, sca.CodeStatusInvalid,
				fmt.Sprintf("operation not allowed in SCA status %s", current)),
			PsuData: auth.PsuData,
		}
	}

	resp := fn(ctx, d.deps, auth.Clone(), req)

	// Guardia forward-only: una transición fuera de tabla es un bug del
	// stage, no un error del caller. Se degrada a técnico sin persistir.
	if !resp.HasError() && resp.ScaStatus != current && !current.CanTransitionTo(resp.ScaStatus) {
		logger.From(ctx).Error("stage produced illegal transition",
			logger.AuthorisationID(auth.ID),
			logger.ScaStatus(string(current)),
			logger.Component("chain"),
		)
		return sca.TechnicalResponse(current, auth.PsuData, "illegal stage transition")
	}

	metrics.StageTransitions.WithLabelValues(string(auth.ScaApproach), string(current), string(resp.ScaStatus)).Inc()
	return resp
}
