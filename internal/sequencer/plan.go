// Package sequencer ejecuta planes ordenados de pasos administrativos contra
// un nodo de correo, con semántica abort-on-first-failure y un único estado
// de espera (el poll de quiescencia).
//
// El sequencer no persiste estado entre runs ni cachea el estado del nodo:
// el control plane externo es siempre la autoridad.
package sequencer

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/mailmaint/internal/controlplane"
	"github.com/dropDatabas3/mailmaint/internal/progress"
)

// Class clasifica un paso del plan.
type Class string

const (
	// ClassRequired: si falla, se aborta el resto del plan.
	ClassRequired Class = "required"
	// ClassBestEffort: si falla, se loguea y se continúa.
	ClassBestEffort Class = "best-effort"
)

// Reporter emite detalle intermedio de un paso en curso (lo usa el poll de
// quiescencia para reportar cada intento sin terminar el paso).
type Reporter func(detail string)

// Step es un paso idempotente del plan. Run hace la llamada al control plane;
// puede devolver Skip(...) para reportar que la condición del paso no aplica.
type Step struct {
	Name  string // id de máquina (ej: "drain-transport")
	Label string // texto para el operador
	Class Class
	Run   func(ctx context.Context, report Reporter) error
}

// Plan es una secuencia ordenada de pasos sobre un servidor.
type Plan struct {
	Name   string
	RunID  string
	Server string
	Steps  []Step

	// Record captura la política de auto-activación previa durante el plan
	// de enter; lo llena el paso block-activation-policy.
	Record *MaintenanceRecord
}

// MaintenanceRecord captura la política de auto-activación pre-transición
// para que el plan inverso pueda restaurarla. El sequencer no lo persiste:
// se entrega al operador (y opcionalmente a un record store externo).
type MaintenanceRecord struct {
	Server  string                        `json:"server" yaml:"server"`
	Partner string                        `json:"partner,omitempty" yaml:"partner,omitempty"`
	Policy  controlplane.ActivationPolicy `json:"policy" yaml:"policy"`
	RunID   string                        `json:"runId" yaml:"runId"`
	SavedAt time.Time                     `json:"savedAt" yaml:"savedAt"`
}

// StepResult es el resultado de un paso ya procesado.
type StepResult struct {
	Step   string
	Label  string
	Class  Class
	Status progress.Status
	Detail string
	Err    error
	Took   time.Duration
}

// Outcome es el resultado final de Run.
type Outcome struct {
	Plan   string
	RunID  string
	Server string
	Steps  []StepResult
	// Err es el primer error que abortó el plan (required o cancelación);
	// nil si el plan completó. Los errores best-effort viven en Steps.
	Err    error
	Record *MaintenanceRecord
	Took   time.Duration
}

// OK reporta si el plan completó sin abortar.
func (o Outcome) OK() bool { return o.Err == nil }

// Warnings devuelve los pasos best-effort que fallaron.
func (o Outcome) Warnings() []StepResult {
	var out []StepResult
	for _, s := range o.Steps {
		if s.Status == progress.StatusWarned {
			out = append(out, s)
		}
	}
	return out
}

// skipErr marca un paso como skipped (no es falla).
type skipErr struct{ reason string }

func (s *skipErr) Error() string { return "skipped: " + s.reason }

// Skip devuelve el sentinel que el runner interpreta como paso salteado.
func Skip(reason string) error { return &skipErr{reason: reason} }

func asSkip(err error) (*skipErr, bool) {
	var s *skipErr
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}
