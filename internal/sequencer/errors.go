package sequencer

import (
	"fmt"
	"time"
)

// ResolutionError: la identidad del nodo (o del partner) no existe en el
// control plane. Nada se mutó: el plan ni siquiera empezó.
type ResolutionError struct {
	Identity string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Identity, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// RequiredStepError: un paso required falló. El resto del plan se aborta y
// los pasos ya ejecutados NO se revierten (el sistema origen no tiene
// acciones compensatorias; limitación heredada y documentada).
type RequiredStepError struct {
	Plan string
	Step string
	Err  error
}

func (e *RequiredStepError) Error() string {
	return fmt.Sprintf("plan %s: required step %s failed: %v", e.Plan, e.Step, e.Err)
}

func (e *RequiredStepError) Unwrap() error { return e.Err }

// BestEffortStepError: un paso best-effort falló. Queda en el Outcome y en
// los logs pero la ejecución continúa.
type BestEffortStepError struct {
	Step string
	Err  error
}

func (e *BestEffortStepError) Error() string {
	return fmt.Sprintf("best-effort step %s failed: %v", e.Step, e.Err)
}

func (e *BestEffortStepError) Unwrap() error { return e.Err }

// QuiesceTimeoutError: se agotó el tope opcional de intentos de poll.
// Con MaxPollAttempts=0 (default) el poll es ilimitado y este error no ocurre.
type QuiesceTimeoutError struct {
	Attempts int
	Interval time.Duration
}

func (e *QuiesceTimeoutError) Error() string {
	return fmt.Sprintf("quiescence not reached after %d attempts (interval %s)", e.Attempts, e.Interval)
}
