// Package cptest provee un control plane falso en memoria que implementa la
// misma Admin REST API que consume httpapi. Sirve para tests end-to-end y
// para desarrollo local sin cluster real.
package cptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	cp "github.com/dropDatabas3/mailmaint/internal/controlplane"
)

type serverState struct {
	info       cp.ServerInfo
	nodeState  cp.ClusterNodeState
	policy     cp.ActivationPolicy
	activation bool // auto-activation habilitada
	// mounted: respuestas sucesivas del endpoint de copias montadas;
	// la última se repite.
	mounted [][]string
	polls   int
}

// Server es el fake. Todos los métodos son seguros para uso concurrente.
type Server struct {
	mu sync.Mutex

	// Secret: si está seteado, cada request debe traer un bearer HS256
	// firmado con él.
	secret string

	servers    map[string]*serverState
	calls      []string
	lastSub    string
	rebalanced []string
}

// New crea el fake; secret vacío desactiva la verificación de auth.
func New(secret string) *Server {
	return &Server{
		secret:  secret,
		servers: map[string]*serverState{},
	}
}

// AddServer registra un nodo. group puede ser "" (sin grupo de replicación).
func (s *Server) AddServer(name, fqdn, group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[name] = &serverState{
		info: cp.ServerInfo{
			Name:             name,
			FQDN:             fqdn,
			ReplicationGroup: group,
			Components: map[cp.Component]cp.ComponentState{
				cp.ComponentHubTransport:      cp.StateActive,
				cp.ComponentServerWideOffline: cp.StateActive,
			},
		},
		nodeState:  cp.NodeUp,
		policy:     cp.PolicyUnrestricted,
		activation: true,
		mounted:    [][]string{{}},
	}
}

// SetClusterState fija el estado de cluster reportado para name.
func (s *Server) SetClusterState(name string, st cp.ClusterNodeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if srv, ok := s.servers[name]; ok {
		srv.nodeState = st
	}
}

// SetPolicy fija la política de auto-activación reportada para name.
func (s *Server) SetPolicy(name string, p cp.ActivationPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if srv, ok := s.servers[name]; ok {
		srv.policy = p
	}
}

// SetMounted guiona las respuestas sucesivas de copias montadas para name.
func (s *Server) SetMounted(name string, seq ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if srv, ok := s.servers[name]; ok {
		srv.mounted = seq
		srv.polls = 0
	}
}

// Calls devuelve el log de mutaciones en orden.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// LastTokenSubject devuelve el subject del último bearer verificado.
func (s *Server) LastTokenSubject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSub
}

// Policy devuelve la política actual de name.
func (s *Server) Policy(name string) cp.ActivationPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	if srv, ok := s.servers[name]; ok {
		return srv.policy
	}
	return ""
}

// Rebalanced devuelve los grupos rebalanceados.
func (s *Server) Rebalanced() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.rebalanced))
	copy(out, s.rebalanced)
	return out
}

func (s *Server) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secret == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}
		claims := jwtv5.RegisteredClaims{}
		_, err := jwtv5.ParseWithClaims(raw, &claims, func(t *jwtv5.Token) (any, error) {
			if t.Method != jwtv5.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(s.secret), nil
		})
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		s.lastSub = claims.Subject
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "server not found"})
}

// lookup busca el estado del nodo; el caller debe tener s.mu tomado.
func (s *Server) lookup(name string) (*serverState, bool) {
	srv, ok := s.servers[name]
	return srv, ok
}

// Handler arma el router chi con las rutas del Admin API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.auth)

	r.Get("/v1/servers/{server}", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		srv, ok := s.lookup(chi.URLParam(req, "server"))
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, srv.info)
	})

	r.Post("/v1/servers/{server}/components/{component}", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			State     cp.ComponentState `json:"state"`
			Requester string            `json:"requester"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		name := chi.URLParam(req, "server")
		srv, ok := s.lookup(name)
		if !ok {
			notFound(w)
			return
		}
		comp := cp.Component(chi.URLParam(req, "component"))
		srv.info.Components[comp] = body.State
		s.record("SetComponentState(%s,%s,%s,%s)", name, comp, body.State, body.Requester)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/v1/transport/redirect", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Source string `json:"source"`
			Target string `json:"target"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.lookup(body.Source); !ok {
			notFound(w)
			return
		}
		s.record("RedirectMessages(%s,%s)", body.Source, body.Target)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/v1/cluster/nodes/{name}", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		name := chi.URLParam(req, "name")
		srv, ok := s.lookup(name)
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "state": srv.nodeState})
	})

	r.Post("/v1/cluster/nodes/{name}/suspend", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		name := chi.URLParam(req, "name")
		srv, ok := s.lookup(name)
		if !ok {
			notFound(w)
			return
		}
		srv.nodeState = cp.NodePaused
		s.record("SuspendClusterNode(%s)", name)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/v1/cluster/nodes/{name}/resume", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		name := chi.URLParam(req, "name")
		srv, ok := s.lookup(name)
		if !ok {
			notFound(w)
			return
		}
		srv.nodeState = cp.NodeUp
		s.record("ResumeClusterNode(%s)", name)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/v1/servers/{server}/activation", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			DisabledAndMoveNow bool `json:"disabled_and_move_now"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		name := chi.URLParam(req, "server")
		srv, ok := s.lookup(name)
		if !ok {
			notFound(w)
			return
		}
		srv.activation = !body.DisabledAndMoveNow
		s.record("SetMailboxServerActivation(%s,%v)", name, body.DisabledAndMoveNow)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/v1/servers/{server}/activation-policy", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		srv, ok := s.lookup(chi.URLParam(req, "server"))
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"policy": srv.policy})
	})

	r.Put("/v1/servers/{server}/activation-policy", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Policy string `json:"policy"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, ok := cp.ParseActivationPolicy(body.Policy)
		if !ok {
			http.Error(w, `{"error":"unknown policy"}`, http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		name := chi.URLParam(req, "server")
		srv, found := s.lookup(name)
		if !found {
			notFound(w)
			return
		}
		srv.policy = p
		s.record("SetMailboxServerActivationPolicy(%s,%s)", name, p)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/v1/servers/{server}/database-copies", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		srv, ok := s.lookup(chi.URLParam(req, "server"))
		if !ok {
			notFound(w)
			return
		}
		i := srv.polls
		if i >= len(srv.mounted) {
			i = len(srv.mounted) - 1
		}
		srv.polls++
		dbs := srv.mounted[i]
		if dbs == nil {
			dbs = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"databases": dbs})
	})

	r.Get("/v1/servers/{server}/replication-group", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		srv, ok := s.lookup(chi.URLParam(req, "server"))
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"group": srv.info.ReplicationGroup})
	})

	r.Post("/v1/groups/{name}/rebalance", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		name := chi.URLParam(req, "name")
		s.rebalanced = append(s.rebalanced, name)
		s.record("RebalanceGroup(%s)", name)
		w.WriteHeader(http.StatusAccepted)
	})

	return r
}
