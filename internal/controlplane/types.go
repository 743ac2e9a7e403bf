// internal/controlplane/types.go
package controlplane

// Component identifica un componente administrable del servidor.
type Component string

const (
	ComponentHubTransport      Component = "HubTransport"
	ComponentServerWideOffline Component = "ServerWideOffline"
)

// ComponentState es el estado deseado/reportado de un componente.
type ComponentState string

const (
	StateActive   ComponentState = "Active"
	StateDraining ComponentState = "Draining"
	StateInactive ComponentState = "Inactive"
)

// ClusterNodeState es el estado de membresía del nodo en el cluster
// de failover (lo reporta el control plane, no lo calculamos nosotros).
type ClusterNodeState string

const (
	NodeUp      ClusterNodeState = "Up"
	NodePaused  ClusterNodeState = "Paused"
	NodeDown    ClusterNodeState = "Down"
	NodeJoining ClusterNodeState = "Joining"
	NodeUnknown ClusterNodeState = "Unknown"
)

// ActivationPolicy gobierna si las copias de base de datos del servidor
// pueden activarse automáticamente durante un failover.
type ActivationPolicy string

const (
	PolicyBlocked       ActivationPolicy = "Blocked"
	PolicyIntrasiteOnly ActivationPolicy = "IntrasiteOnly"
	PolicyUnrestricted  ActivationPolicy = "Unrestricted"
)

// ParseActivationPolicy valida un string de operador contra las políticas conocidas.
func ParseActivationPolicy(s string) (ActivationPolicy, bool) {
	switch ActivationPolicy(s) {
	case PolicyBlocked, PolicyIntrasiteOnly, PolicyUnrestricted:
		return ActivationPolicy(s), true
	}
	return "", false
}

// ServerInfo es la vista del nodo que entrega el control plane.
// El sequencer nunca la cachea: re-consulta cuando necesita estado fresco.
type ServerInfo struct {
	Name             string                       `json:"name"`
	FQDN             string                       `json:"fqdn"`
	ReplicationGroup string                       `json:"replicationGroup,omitempty"` // "" = sin grupo
	Components       map[Component]ComponentState `json:"components,omitempty"`
}
