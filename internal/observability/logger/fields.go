package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - MANTENIMIENTO
// =================================================================================

// Server crea un campo para el nombre del nodo de correo.
func Server(v string) zap.Field {
	return zap.String("server", v)
}

// Partner crea un campo para el nodo partner de redirección.
func Partner(v string) zap.Field {
	return zap.String("partner", v)
}

// PlanName crea un campo para el nombre del plan (enter/exit).
func PlanName(v string) zap.Field {
	return zap.String("plan", v)
}

// StepName crea un campo para el paso actual del plan.
func StepName(v string) zap.Field {
	return zap.String("step", v)
}

// RunID crea un campo para el ID de ejecución.
func RunID(v string) zap.Field {
	return zap.String("run_id", v)
}

// Attempt crea un campo para el número de intento de poll.
func Attempt(v int) zap.Field {
	return zap.Int("attempt", v)
}

// Database crea un campo para el nombre de una base de datos de mailbox.
func Database(v string) zap.Field {
	return zap.String("database", v)
}

// Group crea un campo para el grupo de replicación.
func Group(v string) zap.Field {
	return zap.String("group", v)
}

// Policy crea un campo para la política de auto-activación.
func Policy(v string) zap.Field {
	return zap.String("policy", v)
}

// Requester crea un campo para el tag de requester de las llamadas admin.
func Requester(v string) zap.Field {
	return zap.String("requester", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Duration crea un campo para una duración.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// =================================================================================
// CAMPOS ESTÁNDAR - DATOS
// =================================================================================

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Key crea un campo genérico para una clave.
func Key(v string) zap.Field {
	return zap.String("key", v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
