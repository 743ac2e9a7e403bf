package controlplane

import (
	"context"
	"errors"
)

// ErrServerNotFound lo devuelve GetServer cuando la identidad no existe.
// Los callers hacen branch con errors.Is; cualquier otro error es operacional.
var ErrServerNotFound = errors.New("controlplane: server not found")

// Client define el contrato contra el sistema de clustering groupware.
// MVP: sólo la implementación HTTP (httpapi). Más adelante se puede agregar
// otro binding (RPC nativo, etc.) sin tocar el sequencer.
type Client interface {
	// Identidad
	GetServer(ctx context.Context, identity string) (*ServerInfo, error)

	// Componentes (transport, offline global)
	SetComponentState(ctx context.Context, server string, component Component, state ComponentState, requester string) error

	// Transport
	RedirectMessages(ctx context.Context, source, target string) error

	// Cluster de failover
	SuspendClusterNode(ctx context.Context, name string) error
	ResumeClusterNode(ctx context.Context, name string) error
	GetClusterNodeState(ctx context.Context, name string) (ClusterNodeState, error)

	// Activación de copias de mailbox
	SetMailboxServerActivation(ctx context.Context, server string, disableAndMoveNow bool) error
	GetMailboxServerActivationPolicy(ctx context.Context, server string) (ActivationPolicy, error)
	SetMailboxServerActivationPolicy(ctx context.Context, server string, policy ActivationPolicy) error

	// Copias montadas (quiescencia)
	GetMountedDatabaseCopies(ctx context.Context, server string) ([]string, error)

	// Grupo de replicación
	GetReplicationGroupForServer(ctx context.Context, server string) (string, error)
	RebalanceGroup(ctx context.Context, group string) error
}
