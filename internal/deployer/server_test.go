package deployer

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"github.com/hogwarts-cloud/stackctl/internal/cloud/fakes"
	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CreateAll_endToEnd(t *testing.T) {
	gateway := testGateway()
	deployer := newTestDeployer(t, gateway, testDocument())
	ctx := context.Background()

	networks := deployer.CreateAllNetworks(ctx)
	servers := deployer.CreateAllServers(ctx)

	require.Len(t, networks, 1)
	require.Len(t, servers, 1)
	assert.Equal(t, models.OK, networks[0].Outcome)
	assert.Equal(t, models.OK, servers[0].Outcome)
	assert.Empty(t, servers[0].Dependencies)

	assert.Equal(t, []string{
		"CreateNetwork n1",
		"CreateSubnet n1",
		"CreateKeypair s1",
		"CreateServer s1",
		"WaitForServer s1",
	}, gateway.CallsWithPrefix("Create", "WaitForServer"))

	require.Len(t, gateway.Ports, 1)
	assert.Equal(t, gateway.Networks[0].ID, gateway.Ports[0].NetworkID)

	privateKey := filepath.Join(deployer.sshDir, "s1")
	content, err := os.ReadFile(privateKey)
	require.NoError(t, err)
	assert.Equal(t, fakes.GeneratedPrivateKey, string(content))

	info, err := os.Stat(privateKey)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(privateKeyMode), info.Mode().Perm())
}

func Test_CreateServer_existingIsSkipped(t *testing.T) {
	gateway := testGateway()
	gateway.Servers = []cloud.Server{{ID: "server-1", Name: "s1", Status: cloud.ActiveStatus}}
	deployer := newTestDeployer(t, gateway, testDocument())

	result := deployer.CreateServer(context.Background(), "s1")

	assert.Equal(t, models.Skipped, result.Outcome)
	assert.Empty(t, gateway.Mutations())
}

func Test_CreateServer_createsMissingNetwork(t *testing.T) {
	gateway := testGateway()
	deployer := newTestDeployer(t, gateway, testDocument())

	result := deployer.CreateServer(context.Background(), "s1")

	assert.Equal(t, models.OK, result.Outcome)
	require.Len(t, result.Dependencies, 1)
	assert.Equal(t, models.NetworkKind, result.Dependencies[0].Kind)
	assert.Equal(t, models.OK, result.Dependencies[0].Outcome)
	assert.Equal(t, []string{
		"CreateKeypair s1",
		"CreateNetwork n1",
		"CreateSubnet n1",
		"CreateServer s1",
	}, gateway.Mutations())
}

func Test_CreateServer_fixedIPv4(t *testing.T) {
	document := testDocument()
	document.Servers[0].Networks[0].IPv4 = "10.0.0.10"

	gateway := testGateway()
	deployer := newTestDeployer(t, gateway, document)

	result := deployer.CreateServer(context.Background(), "s1")

	require.Equal(t, models.OK, result.Outcome)
	require.Len(t, gateway.Ports, 1)
	assert.Equal(t, "10.0.0.10", gateway.Ports[0].FixedIPs[0].IPAddress)
}

func Test_CreateServer_snapshot(t *testing.T) {
	document := testDocument()
	document.Servers[0].InstanceSnapshot = "s1-golden"

	gateway := testGateway()
	gateway.Images = append(gateway.Images, cloud.Image{ID: "snap-id", Name: "s1-golden"})
	deployer := newTestDeployer(t, gateway, document)

	result := deployer.CreateServer(context.Background(), "s1")

	assert.Equal(t, models.OK, result.Outcome)
	assert.Equal(t, []string{"FindImage s1-golden"}, gateway.CallsWithPrefix("FindImage"))
}

func Test_CreateServer_failures(t *testing.T) {
	testCases := []struct {
		name    string
		server  string
		prepare func(g *fakes.Gateway, d *models.Document)
		err     error
	}{
		{
			name:   "unknown server",
			server: "absent",
			err:    ErrUnknownObject,
		},
		{
			name:    "image not found",
			server:  "s1",
			prepare: func(g *fakes.Gateway, _ *models.Document) { g.Images = nil },
			err:     ErrNotFound,
		},
		{
			name:   "snapshot not found",
			server: "s1",
			prepare: func(_ *fakes.Gateway, d *models.Document) {
				d.Servers[0].InstanceSnapshot = "absent-snapshot"
			},
			err: ErrNotFound,
		},
		{
			name:    "flavor not found",
			server:  "s1",
			prepare: func(g *fakes.Gateway, _ *models.Document) { g.Flavors = nil },
			err:     ErrNotFound,
		},
		{
			name:    "keypair generation returns nothing",
			server:  "s1",
			prepare: func(g *fakes.Gateway, _ *models.Document) { g.Nil["CreateKeypair s1"] = true },
			err:     ErrCreationFailed,
		},
		{
			name:   "attached network is not configured",
			server: "s1",
			prepare: func(_ *fakes.Gateway, d *models.Document) {
				d.Servers[0].Networks = []models.NetworkAttachment{{Name: "undeclared"}}
			},
			err: ErrUnknownObject,
		},
		{
			name:   "init script missing",
			server: "s1",
			prepare: func(_ *fakes.Gateway, d *models.Document) {
				d.Servers[0].InitScript = filepath.Join(os.TempDir(), "stackctl-absent-init.sh")
			},
			err: ErrFileMissing,
		},
		{
			name:    "server creation returns nothing",
			server:  "s1",
			prepare: func(g *fakes.Gateway, _ *models.Document) { g.Nil["CreateServer s1"] = true },
			err:     ErrCreationFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := testGateway()
			document := testDocument()
			if tc.prepare != nil {
				tc.prepare(gateway, document)
			}
			deployer := newTestDeployer(t, gateway, document)

			result := deployer.CreateServer(context.Background(), tc.server)

			assert.Equal(t, models.Failed, result.Outcome)
			assert.Equal(t, models.ServerKind, result.Kind)
			assert.ErrorIs(t, result.Err, tc.err)
			assert.Empty(t, gateway.CallsWithPrefix("WaitForServer"))
		})
	}
}

func Test_CreateServer_notReady(t *testing.T) {
	gateway := testGateway()
	gateway.Errors["WaitForServer s1"] = errors.New("status ERROR")
	deployer := newTestDeployer(t, gateway, testDocument())

	result := deployer.CreateServer(context.Background(), "s1")

	assert.Equal(t, models.Failed, result.Outcome)
	assert.Contains(t, result.Reason, "status ERROR")
}

func Test_CreateAllServers_independent(t *testing.T) {
	document := testDocument()
	document.Servers = append([]models.Server{{Name: "s0", Image: "absent", Flavor: "f1"}}, document.Servers...)

	gateway := testGateway()
	deployer := newTestDeployer(t, gateway, document)

	results := deployer.CreateAllServers(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, models.Failed, results[0].Outcome)
	assert.Equal(t, models.OK, results[1].Outcome)
}

func Test_DeleteServer(t *testing.T) {
	t.Run("nonexistent server is skipped", func(t *testing.T) {
		gateway := testGateway()
		deployer := newTestDeployer(t, gateway, testDocument())

		result := deployer.DeleteServer(context.Background(), "s1")

		assert.Equal(t, models.Skipped, result.Outcome)
		assert.Empty(t, gateway.CallsWithPrefix("DeleteServer", "WaitForDelete"))
	})

	t.Run("existing server is deleted and awaited", func(t *testing.T) {
		gateway := testGateway()
		gateway.Servers = []cloud.Server{{ID: "server-1", Name: "s1"}}
		deployer := newTestDeployer(t, gateway, testDocument())

		result := deployer.DeleteServer(context.Background(), "s1")

		assert.Equal(t, models.OK, result.Outcome)
		assert.Equal(t, []string{"DeleteServer s1", "WaitForDelete s1"}, gateway.CallsWithPrefix("DeleteServer", "WaitForDelete"))
		assert.Empty(t, gateway.Servers)
	})

	t.Run("wait failure is reported", func(t *testing.T) {
		gateway := testGateway()
		gateway.Servers = []cloud.Server{{ID: "server-1", Name: "s1"}}
		gateway.Errors["WaitForDelete s1"] = errors.New("timeout")
		deployer := newTestDeployer(t, gateway, testDocument())

		result := deployer.DeleteServer(context.Background(), "s1")

		assert.Equal(t, models.Failed, result.Outcome)
	})
}

func Test_DeleteAllServers(t *testing.T) {
	gateway := testGateway()
	gateway.Servers = []cloud.Server{{ID: "server-1", Name: "s1"}}
	deployer := newTestDeployer(t, gateway, testDocument())

	results := deployer.DeleteAllServers(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, models.OK, results[0].Outcome)
}

func Test_loadInitScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hello\n"), 0644))

	testCases := []struct {
		name     string
		path     string
		expected string
		err      error
	}{
		{name: "no script", path: ""},
		{
			name:     "script is base64 encoded",
			path:     path,
			expected: base64.StdEncoding.EncodeToString([]byte("#!/bin/sh\necho hello\n")),
		},
		{name: "missing script", path: path + ".absent", err: ErrFileMissing},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := loadInitScript(tc.path)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}
