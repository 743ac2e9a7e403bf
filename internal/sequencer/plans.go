package sequencer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	cp "github.com/dropDatabas3/mailmaint/internal/controlplane"
)

// EnterPlan construye el plan fijo para poner un nodo en mantenimiento.
// node y partner deben venir de Resolve (partner puede ser nil). El orden es
// inmutable: el poll de quiescencia va estrictamente antes de set-offline,
// así el nodo nunca queda offline con copias montadas.
func (r *Runner) EnterPlan(node, partner *cp.ServerInfo) *Plan {
	rec := &MaintenanceRecord{
		Server: node.Name,
		RunID:  uuid.NewString(),
	}
	if partner != nil {
		rec.Partner = partner.Name
	}
	plan := &Plan{
		Name:   "enter-maintenance",
		RunID:  rec.RunID,
		Server: node.Name,
		Record: rec,
	}

	plan.Steps = append(plan.Steps, Step{
		Name:  "drain-transport",
		Label: "Draining hub transport",
		Class: ClassRequired,
		Run: func(ctx context.Context, _ Reporter) error {
			return r.CP.SetComponentState(ctx, node.Name, cp.ComponentHubTransport, cp.StateDraining, r.Requester)
		},
	})

	if partner != nil {
		plan.Steps = append(plan.Steps, Step{
			Name:  "redirect-messages",
			Label: fmt.Sprintf("Redirecting in-flight messages to %s", partner.FQDN),
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				return r.CP.RedirectMessages(ctx, node.Name, partner.FQDN)
			},
		})
	}

	plan.Steps = append(plan.Steps,
		Step{
			Name:  "suspend-cluster-node",
			Label: "Suspending cluster node",
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				return r.CP.SuspendClusterNode(ctx, node.Name)
			},
		},
		Step{
			Name:  "disable-auto-activation",
			Label: "Disabling database auto-activation (move now)",
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				return r.CP.SetMailboxServerActivation(ctx, node.Name, true)
			},
		},
		Step{
			Name:  "block-activation-policy",
			Label: "Recording activation policy and blocking it",
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				// Capturar ANTES de pisar: el exit restaura exactamente esto.
				prev, err := r.CP.GetMailboxServerActivationPolicy(ctx, node.Name)
				if err != nil {
					return fmt.Errorf("read activation policy: %w", err)
				}
				rec.Policy = prev
				rec.SavedAt = time.Now().UTC()
				if err := r.CP.SetMailboxServerActivationPolicy(ctx, node.Name, cp.PolicyBlocked); err != nil {
					return fmt.Errorf("set activation policy %s: %w", cp.PolicyBlocked, err)
				}
				return nil
			},
		},
		Step{
			Name:  "await-quiescence",
			Label: "Waiting for databases to move off this node",
			Class: ClassRequired,
			Run: func(ctx context.Context, report Reporter) error {
				return r.AwaitQuiescence(ctx, "mounted database copies", report, func(ctx context.Context) (bool, string, error) {
					mounted, err := r.CP.GetMountedDatabaseCopies(ctx, node.Name)
					if err != nil {
						return false, "", err
					}
					if len(mounted) == 0 {
						return true, "", nil
					}
					return false, fmt.Sprintf("%d still mounted: %s", len(mounted), strings.Join(mounted, ", ")), nil
				})
			},
		},
		Step{
			Name:  "set-offline",
			Label: "Setting server-wide state to inactive",
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				return r.CP.SetComponentState(ctx, node.Name, cp.ComponentServerWideOffline, cp.StateInactive, r.Requester)
			},
		},
	)

	return plan
}

// ExitPlan construye el plan fijo para sacar un nodo de mantenimiento.
// restore es la política de auto-activación a restaurar (la resuelve el
// caller: flag > record guardado > Unrestricted).
//
// Asimetría heredada del origen y preservada a propósito: enter es todo
// required; en exit, lookup de grupo, resume del cluster y rebalance son
// best-effort (ver DESIGN.md).
func (r *Runner) ExitPlan(node *cp.ServerInfo, restore cp.ActivationPolicy) *Plan {
	plan := &Plan{
		Name:   "exit-maintenance",
		RunID:  uuid.NewString(),
		Server: node.Name,
	}

	// group lo llena el paso 1 y lo consume el paso final de rebalance.
	var group string

	plan.Steps = append(plan.Steps,
		Step{
			Name:  "lookup-replication-group",
			Label: "Looking up replication group membership",
			Class: ClassBestEffort,
			Run: func(ctx context.Context, _ Reporter) error {
				g, err := r.CP.GetReplicationGroupForServer(ctx, node.Name)
				if err != nil {
					return err
				}
				if g == "" {
					return Skip("server is not a member of any replication group")
				}
				group = g
				return nil
			},
		},
		Step{
			Name:  "set-online",
			Label: "Setting server-wide state to active",
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				return r.CP.SetComponentState(ctx, node.Name, cp.ComponentServerWideOffline, cp.StateActive, r.Requester)
			},
		},
		Step{
			Name:  "resume-cluster-node",
			Label: "Resuming cluster node",
			Class: ClassBestEffort,
			Run: func(ctx context.Context, _ Reporter) error {
				state, err := r.CP.GetClusterNodeState(ctx, node.Name)
				if err != nil {
					return fmt.Errorf("read cluster node state: %w", err)
				}
				if state != cp.NodePaused {
					return Skip(fmt.Sprintf("cluster node state is %s, resume not needed", state))
				}
				return r.CP.ResumeClusterNode(ctx, node.Name)
			},
		},
		Step{
			Name:  "restore-activation-policy",
			Label: fmt.Sprintf("Restoring activation policy to %s", restore),
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				return r.CP.SetMailboxServerActivationPolicy(ctx, node.Name, restore)
			},
		},
		Step{
			Name:  "enable-auto-activation",
			Label: "Re-enabling database auto-activation",
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				return r.CP.SetMailboxServerActivation(ctx, node.Name, false)
			},
		},
		Step{
			Name:  "activate-transport",
			Label: "Activating hub transport",
			Class: ClassRequired,
			Run: func(ctx context.Context, _ Reporter) error {
				return r.CP.SetComponentState(ctx, node.Name, cp.ComponentHubTransport, cp.StateActive, r.Requester)
			},
		},
		Step{
			Name:  "rebalance-group",
			Label: "Rebalancing replication group",
			Class: ClassBestEffort,
			Run: func(ctx context.Context, _ Reporter) error {
				if group == "" {
					return Skip("no replication group found")
				}
				return r.CP.RebalanceGroup(ctx, group)
			},
		},
	)

	return plan
}
