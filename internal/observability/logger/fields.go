package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - AUTORIZACIÓN
// =================================================================================

// AuthorisationID crea un campo para el id de la autorización.
func AuthorisationID(v string) zap.Field {
	return zap.String("authorisation_id", v)
}

// ParentID crea un campo para el id del recurso padre (pago/consent).
func ParentID(v string) zap.Field {
	return zap.String("parent_id", v)
}

// AuthorisationType crea un campo para el tipo de autorización.
func AuthorisationType(v string) zap.Field {
	return zap.String("authorisation_type", v)
}

// ScaStatus crea un campo para el estado SCA.
func ScaStatus(v string) zap.Field {
	return zap.String("sca_status", v)
}

// ScaApproach crea un campo para el approach SCA.
func ScaApproach(v string) zap.Field {
	return zap.String("sca_approach", v)
}

// PsuID crea un campo para el id del PSU. Nunca loguear credenciales ni
// confirmation codes; el id del PSU es el único dato de identidad permitido.
func PsuID(v string) zap.Field {
	return zap.String("psu_id", v)
}

// MethodID crea un campo para el authentication method elegido.
func MethodID(v string) zap.Field {
	return zap.String("authentication_method_id", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - GENERALES
// =================================================================================

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Operation crea un campo para la operación SPI invocada.
func Operation(v string) zap.Field {
	return zap.String("operation", v)
}

// Component crea un campo para el componente que emite el log.
func Component(v string) zap.Field {
	return zap.String("component", v)
}
