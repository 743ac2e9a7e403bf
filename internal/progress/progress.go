// Package progress provee el stream de eventos de avance del sequencer.
//
// Reemplaza el print directo a consola: cada transición de paso se emite como
// un Event {step, status, detail} que cualquier capa de presentación puede
// consumir (consola, zap, métricas, buffer en memoria para el status listener).
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/mailmaint/internal/observability/logger"
)

// Status es el estado de un paso dentro del plan.
type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"  // paso required: aborta el resto del plan
	StatusWarned  Status = "warned"  // paso best-effort que falló: se continúa
	StatusSkipped Status = "skipped" // condición del paso no aplica
	StatusWaiting Status = "waiting" // intento de poll de quiescencia
)

// Event es una transición observable de un paso.
type Event struct {
	Seq    int       `json:"seq"` // monotónico por run
	RunID  string    `json:"runId"`
	Plan   string    `json:"plan"`
	Server string    `json:"server"`
	Step   string    `json:"step"`
	Label  string    `json:"label"`
	Status Status    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Sink consume eventos. Las implementaciones deben ser baratas: el runner
// emite de forma síncrona entre pasos.
type Sink interface {
	Emit(ev Event)
}

// Multi agrupa varios sinks en uno.
func Multi(sinks ...Sink) Sink { return multiSink(sinks) }

type multiSink []Sink

func (m multiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// ---- Console ----

// ConsoleSink imprime una línea por transición, pensado para el operador.
type ConsoleSink struct {
	W io.Writer
}

func (c *ConsoleSink) Emit(ev Event) {
	switch ev.Status {
	case StatusRunning:
		fmt.Fprintf(c.W, "[%s] %s...\n", ev.Server, ev.Label)
	case StatusOK:
		fmt.Fprintf(c.W, "[%s] %s: ok\n", ev.Server, ev.Label)
	case StatusWaiting:
		fmt.Fprintf(c.W, "[%s] %s: %s\n", ev.Server, ev.Label, ev.Detail)
	case StatusSkipped:
		fmt.Fprintf(c.W, "[%s] %s: skipped (%s)\n", ev.Server, ev.Label, ev.Detail)
	case StatusWarned:
		fmt.Fprintf(c.W, "[%s] %s: WARNING: %s\n", ev.Server, ev.Label, ev.Detail)
	case StatusFailed:
		fmt.Fprintf(c.W, "[%s] %s: FAILED: %s\n", ev.Server, ev.Label, ev.Detail)
	}
}

// ---- Zap ----

// ZapSink duplica los eventos al logger estructurado.
type ZapSink struct {
	L *zap.Logger
}

func (z *ZapSink) Emit(ev Event) {
	l := z.L
	if l == nil {
		l = logger.Named("progress")
	}
	fields := []zap.Field{
		logger.RunID(ev.RunID),
		logger.PlanName(ev.Plan),
		logger.Server(ev.Server),
		logger.StepName(ev.Step),
		logger.String("status", string(ev.Status)),
	}
	if ev.Detail != "" {
		fields = append(fields, logger.String("detail", ev.Detail))
	}
	switch ev.Status {
	case StatusFailed:
		l.Error("step failed", fields...)
	case StatusWarned:
		l.Warn("step warned", fields...)
	default:
		l.Info("step", fields...)
	}
}

// ---- Memory ----

// MemorySink acumula los eventos de un run; lo lee el status listener.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func (m *MemorySink) Emit(ev Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
}

// Events devuelve una copia del buffer en orden de emisión.
func (m *MemorySink) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
