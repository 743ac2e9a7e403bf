package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/mailmaint/internal/controlplane"
	"github.com/dropDatabas3/mailmaint/internal/observability/logger"
	"github.com/dropDatabas3/mailmaint/internal/progress"
)

// Runner ejecuta planes contra el control plane inyectado.
type Runner struct {
	CP   controlplane.Client
	Sink progress.Sink

	// Requester se pasa como tag a las llamadas de component-state.
	Requester string

	// PollInterval es el intervalo fijo del poll de quiescencia (sin backoff,
	// igual que el comportamiento origen). Default: 30s.
	PollInterval time.Duration

	// MaxPollAttempts acota el poll; 0 = ilimitado (default de fidelidad).
	MaxPollAttempts int
}

func (r *Runner) pollInterval() time.Duration {
	if r.PollInterval <= 0 {
		return 30 * time.Second
	}
	return r.PollInterval
}

func (r *Runner) emit(ev progress.Event) {
	if r.Sink != nil {
		r.Sink.Emit(ev)
	}
}

// Resolve verifica que la identidad exista en el control plane antes de
// cualquier mutación. Envuelve NotFound (y cualquier otro error) en
// *ResolutionError: el caller aborta sin ejecutar nada.
func (r *Runner) Resolve(ctx context.Context, identity string) (*controlplane.ServerInfo, error) {
	srv, err := r.CP.GetServer(ctx, identity)
	if err != nil {
		return nil, &ResolutionError{Identity: identity, Err: err}
	}
	logger.From(ctx).Debug("server resolved",
		logger.Server(srv.Name),
		logger.String("fqdn", srv.FQDN),
	)
	return srv, nil
}

// Run ejecuta el plan estrictamente en orden. Un paso required que falla
// aborta el resto (sin rollback de lo ya ejecutado); un best-effort que
// falla se reporta y se continúa. El contexto se chequea entre pasos: un
// paso en vuelo termina (o aborta vía su propio ctx) antes de honrar la
// cancelación.
func (r *Runner) Run(ctx context.Context, plan *Plan) Outcome {
	out := Outcome{Plan: plan.Name, RunID: plan.RunID, Server: plan.Server}
	log := logger.From(ctx).With(
		logger.PlanName(plan.Name),
		logger.RunID(plan.RunID),
		logger.Server(plan.Server),
	)
	ctx = logger.ToContext(ctx, log)
	start := time.Now()
	seq := 0
	next := func(step Step, st progress.Status, detail string) {
		seq++
		r.emit(progress.Event{
			Seq:    seq,
			RunID:  plan.RunID,
			Plan:   plan.Name,
			Server: plan.Server,
			Step:   step.Name,
			Label:  step.Label,
			Status: st,
			Detail: detail,
			At:     time.Now(),
		})
	}

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			out.Err = fmt.Errorf("plan %s canceled before step %s: %w", plan.Name, step.Name, err)
			break
		}

		next(step, progress.StatusRunning, "")
		report := func(detail string) { next(step, progress.StatusWaiting, detail) }
		t0 := time.Now()
		err := step.Run(ctx, report)
		res := StepResult{
			Step:  step.Name,
			Label: step.Label,
			Class: step.Class,
			Took:  time.Since(t0),
		}

		switch {
		case err == nil:
			res.Status = progress.StatusOK
			next(step, progress.StatusOK, "")

		default:
			if s, ok := asSkip(err); ok {
				res.Status = progress.StatusSkipped
				res.Detail = s.reason
				next(step, progress.StatusSkipped, s.reason)
				break
			}
			if step.Class == ClassBestEffort {
				res.Status = progress.StatusWarned
				res.Err = &BestEffortStepError{Step: step.Name, Err: err}
				res.Detail = err.Error()
				log.Warn("best-effort step failed", logger.StepName(step.Name), logger.Err(err))
				next(step, progress.StatusWarned, err.Error())
				break
			}
			res.Status = progress.StatusFailed
			res.Err = &RequiredStepError{Plan: plan.Name, Step: step.Name, Err: err}
			res.Detail = err.Error()
			log.Error("required step failed, aborting plan", logger.StepName(step.Name), logger.Err(err))
			next(step, progress.StatusFailed, err.Error())
			out.Steps = append(out.Steps, res)
			out.Err = res.Err
			out.Record = plan.Record
			out.Took = time.Since(start)
			return out
		}

		out.Steps = append(out.Steps, res)
	}

	out.Record = plan.Record
	out.Took = time.Since(start)
	if out.Err == nil {
		log.Info("plan completed", logger.Count(len(out.Steps)), logger.Duration(out.Took))
	}
	return out
}

// AwaitQuiescence consulta el predicado a intervalo fijo hasta que se cumpla.
// Sin backoff (fidelidad con el origen). El sleep es ctx-aware pero el orden
// se preserva: ningún paso posterior corre antes de que el predicado sea
// verdadero. predicate devuelve (done, detalle-para-el-operador, error);
// un error del predicado NO aborta el poll, se reintenta.
func (r *Runner) AwaitQuiescence(ctx context.Context, label string, report Reporter, predicate func(ctx context.Context) (bool, string, error)) error {
	interval := r.pollInterval()
	log := logger.From(ctx)

	for attempt := 1; ; attempt++ {
		done, detail, err := predicate(ctx)
		if err != nil {
			log.Warn("quiescence probe failed, retrying",
				logger.Attempt(attempt), logger.Err(err))
			detail = fmt.Sprintf("probe error: %v", err)
		} else if done {
			if attempt > 1 {
				log.Info("quiescence reached", logger.Attempt(attempt))
			}
			return nil
		}
		if report != nil {
			report(fmt.Sprintf("%s (attempt %d): %s", label, attempt, detail))
		}
		if r.MaxPollAttempts > 0 && attempt >= r.MaxPollAttempts {
			return &QuiesceTimeoutError{Attempts: attempt, Interval: interval}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// IsResolution reporta si err (o su cadena) es un error de resolución.
func IsResolution(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
