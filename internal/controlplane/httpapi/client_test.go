package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cp "github.com/dropDatabas3/mailmaint/internal/controlplane"
	"github.com/dropDatabas3/mailmaint/internal/controlplane/cptest"
	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

const testSecret = "shared-test-secret"

func newPair(t *testing.T) (*cptest.Server, *Client) {
	t.Helper()
	fake := cptest.New(testSecret)
	ts := httptest.NewServer(fake.Handler())
	t.Cleanup(ts.Close)

	c, err := New(Options{
		BaseURL:   ts.URL,
		Secret:    testSecret,
		Requester: "ops-team",
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	return fake, c
}

func TestClient_GetServer(t *testing.T) {
	fake, c := newPair(t)
	fake.AddServer("mbx01", "mbx01.corp.example.com", "DAG01")

	srv, err := c.GetServer(context.Background(), "mbx01")
	require.NoError(t, err)
	assert.Equal(t, "mbx01", srv.Name)
	assert.Equal(t, "mbx01.corp.example.com", srv.FQDN)
	assert.Equal(t, "DAG01", srv.ReplicationGroup)

	// El bearer viajó y el subject es el requester.
	assert.Equal(t, "ops-team", fake.LastTokenSubject())
}

func TestClient_NotFoundMapsToSentinel(t *testing.T) {
	_, c := newPair(t)

	_, err := c.GetServer(context.Background(), "ghost")
	require.ErrorIs(t, err, cp.ErrServerNotFound)
}

func TestClient_RejectsWrongSecret(t *testing.T) {
	fake := cptest.New(testSecret)
	ts := httptest.NewServer(fake.Handler())
	t.Cleanup(ts.Close)
	fake.AddServer("mbx01", "mbx01.corp", "")

	c, err := New(Options{BaseURL: ts.URL, Secret: "otra-cosa", Requester: "ops"})
	require.NoError(t, err)

	_, err = c.GetServer(context.Background(), "mbx01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
	assert.Contains(t, err.Error(), "invalid token")
}

// Drive completo: enter + exit contra el fake, vía el sequencer real.
func TestClient_FullMaintenanceCycle(t *testing.T) {
	fake, c := newPair(t)
	fake.AddServer("mbx01", "mbx01.corp.example.com", "DAG01")
	fake.AddServer("mbx02", "mbx02.corp.example.com", "DAG01")
	fake.SetPolicy("mbx01", cp.PolicyIntrasiteOnly)
	fake.SetMounted("mbx01", []string{"DB01"}, []string{})

	r := &sequencer.Runner{
		CP:           c,
		Requester:    "ops-team",
		PollInterval: 5 * time.Millisecond,
	}
	ctx := context.Background()

	node, err := r.Resolve(ctx, "mbx01")
	require.NoError(t, err)
	partner, err := r.Resolve(ctx, "mbx02")
	require.NoError(t, err)

	out := r.Run(ctx, r.EnterPlan(node, partner))
	require.NoError(t, out.Err)
	require.NotNil(t, out.Record)
	assert.Equal(t, cp.PolicyIntrasiteOnly, out.Record.Policy)
	assert.Equal(t, cp.PolicyBlocked, fake.Policy("mbx01"))

	calls := fake.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "SetComponentState(mbx01,HubTransport,Draining,ops-team)", calls[0])
	assert.Equal(t, "RedirectMessages(mbx01,mbx02.corp.example.com)", calls[1])
	assert.Equal(t, "SetComponentState(mbx01,ServerWideOffline,Inactive,ops-team)", calls[len(calls)-1])

	// Exit: el suspend del enter dejó el nodo Paused, el resume corre.
	out = r.Run(ctx, r.ExitPlan(node, out.Record.Policy))
	require.NoError(t, out.Err)
	assert.Empty(t, out.Warnings())
	assert.Equal(t, cp.PolicyIntrasiteOnly, fake.Policy("mbx01"))
	assert.Equal(t, []string{"DAG01"}, fake.Rebalanced())
}

func TestClient_ErrorBodyPropagates(t *testing.T) {
	fake, c := newPair(t)
	fake.AddServer("mbx01", "mbx01.corp", "")

	// El 404 de server inexistente mapea al sentinel también en mutaciones.
	err := c.SetComponentState(context.Background(), "ghost", cp.ComponentHubTransport, cp.StateDraining, "ops")
	require.ErrorIs(t, err, cp.ErrServerNotFound)

	// Un 400 no mapea: el body viaja en el mensaje de error.
	err = c.SetMailboxServerActivationPolicy(context.Background(), "mbx01", cp.ActivationPolicy("Siempre"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
	assert.Contains(t, err.Error(), "unknown policy")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Secret: "x"})
	require.Error(t, err)
	_, err = New(Options{BaseURL: "http://x"})
	require.Error(t, err)
}
