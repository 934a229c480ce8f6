package deployer

import (
	"context"
	"errors"
	"testing"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"github.com/hogwarts-cloud/stackctl/internal/cloud/fakes"
	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CreateNetwork_twice(t *testing.T) {
	gateway := testGateway()
	deployer := newTestDeployer(t, gateway, testDocument())

	first := deployer.CreateNetwork(context.Background(), "n1")
	second := deployer.CreateNetwork(context.Background(), "n1")

	assert.Equal(t, models.OK, first.Outcome)
	assert.Equal(t, models.Skipped, second.Outcome)
	assert.Equal(t, []string{"CreateNetwork n1", "CreateSubnet n1"}, gateway.Mutations())
	require.Len(t, gateway.Networks, 1)
	require.Len(t, gateway.Subnets, 1)
	assert.Equal(t, gateway.Networks[0].ID, gateway.Subnets[0].NetworkID)
	assert.Equal(t, "10.0.0.0/24", gateway.Subnets[0].CIDR)
}

func Test_CreateNetwork_subnetParameters(t *testing.T) {
	testCases := []struct {
		name        string
		nameservers []string
	}{
		{name: "without dns nameservers", nameservers: nil},
		{name: "with dns nameservers", nameservers: []string{"8.8.8.8", "1.1.1.1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			document := testDocument()
			document.Parameters.DNSNameservers = tc.nameservers

			gateway := testGateway()
			deployer := newTestDeployer(t, gateway, document)

			result := deployer.CreateNetwork(context.Background(), "n1")

			require.Equal(t, models.OK, result.Outcome)
			require.Len(t, gateway.Subnets, 1)
			assert.Equal(t, "n1", gateway.Subnets[0].Name)
			assert.Equal(t, "10.0.0.0/24", gateway.Subnets[0].CIDR)
			assert.Equal(t, tc.nameservers, gateway.Subnets[0].DNSNameservers)
		})
	}
}

func Test_CreateNetwork_failures(t *testing.T) {
	boom := errors.New("boom")

	testCases := []struct {
		name            string
		network         string
		prepare         func(g *fakes.Gateway)
		err             error
		networksInCloud int
	}{
		{
			name:    "unknown network",
			network: "absent",
			err:     ErrUnknownObject,
		},
		{
			name:    "network creation error",
			network: "n1",
			prepare: func(g *fakes.Gateway) { g.Errors["CreateNetwork n1"] = boom },
			err:     ErrCreationFailed,
		},
		{
			name:    "network creation returns nothing",
			network: "n1",
			prepare: func(g *fakes.Gateway) { g.Nil["CreateNetwork n1"] = true },
			err:     ErrCreationFailed,
		},
		{
			name:            "subnet creation error leaves network",
			network:         "n1",
			prepare:         func(g *fakes.Gateway) { g.Errors["CreateSubnet n1"] = boom },
			err:             ErrCreationFailed,
			networksInCloud: 1,
		},
		{
			name:            "subnet creation returns nothing",
			network:         "n1",
			prepare:         func(g *fakes.Gateway) { g.Nil["CreateSubnet n1"] = true },
			err:             ErrCreationFailed,
			networksInCloud: 1,
		},
		{
			name:    "subnet already exists",
			network: "n1",
			prepare: func(g *fakes.Gateway) {
				g.Subnets = append(g.Subnets, cloud.Subnet{ID: "other", Name: "n1"})
			},
			err:             ErrSubnetExists,
			networksInCloud: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := testGateway()
			if tc.prepare != nil {
				tc.prepare(gateway)
			}
			deployer := newTestDeployer(t, gateway, testDocument())

			result := deployer.CreateNetwork(context.Background(), tc.network)

			assert.Equal(t, models.Failed, result.Outcome)
			assert.Equal(t, models.NetworkKind, result.Kind)
			assert.ErrorIs(t, result.Err, tc.err)
			assert.NotEmpty(t, result.Reason)
			assert.Len(t, gateway.Networks, tc.networksInCloud)
		})
	}
}

func Test_CreateNetwork_unknownMakesNoCalls(t *testing.T) {
	gateway := testGateway()
	deployer := newTestDeployer(t, gateway, testDocument())

	deployer.CreateNetwork(context.Background(), "absent")

	assert.Empty(t, gateway.Calls)
}

func Test_DeleteNetwork(t *testing.T) {
	t.Run("nonexistent network is skipped", func(t *testing.T) {
		gateway := testGateway()
		deployer := newTestDeployer(t, gateway, testDocument())

		result := deployer.DeleteNetwork(context.Background(), "n1")

		assert.Equal(t, models.Skipped, result.Outcome)
		assert.Empty(t, gateway.CallsWithPrefix("DeleteNetwork"))
	})

	t.Run("existing network is deleted with its subnet", func(t *testing.T) {
		gateway := testGateway()
		deployer := newTestDeployer(t, gateway, testDocument())
		require.Equal(t, models.OK, deployer.CreateNetwork(context.Background(), "n1").Outcome)

		result := deployer.DeleteNetwork(context.Background(), "n1")

		assert.Equal(t, models.OK, result.Outcome)
		assert.Empty(t, gateway.Networks)
		assert.Empty(t, gateway.Subnets)
	})

	t.Run("deletion failure is reported", func(t *testing.T) {
		gateway := testGateway()
		gateway.Networks = []cloud.Network{{ID: "net-1", Name: "n1"}}
		gateway.Errors["DeleteNetwork n1"] = errors.New("ports in use")
		deployer := newTestDeployer(t, gateway, testDocument())

		result := deployer.DeleteNetwork(context.Background(), "n1")

		assert.Equal(t, models.Failed, result.Outcome)
		assert.Contains(t, result.Reason, "ports in use")
	})
}

func Test_CreateAllNetworks_independent(t *testing.T) {
	document := testDocument()
	document.Networks = append(document.Networks, models.Network{Name: "n2", CIDR: "10.0.1.0/24"})

	gateway := testGateway()
	gateway.Errors["CreateNetwork n1"] = errors.New("quota exceeded")
	deployer := newTestDeployer(t, gateway, document)

	results := deployer.CreateAllNetworks(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, models.Failed, results[0].Outcome)
	assert.Equal(t, models.OK, results[1].Outcome)
	assert.Equal(t, "n2", results[1].Name)
}

func Test_DeleteAllNetworks(t *testing.T) {
	document := testDocument()
	document.Networks = append(document.Networks, models.Network{Name: "n2", CIDR: "10.0.1.0/24"})

	gateway := testGateway()
	gateway.Networks = []cloud.Network{{ID: "net-2", Name: "n2"}}
	deployer := newTestDeployer(t, gateway, document)

	results := deployer.DeleteAllNetworks(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, models.Skipped, results[0].Outcome)
	assert.Equal(t, models.OK, results[1].Outcome)
	assert.Equal(t, []string{"DeleteNetwork n2"}, gateway.Mutations())
}
