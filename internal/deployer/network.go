package deployer

import (
	"context"
	"fmt"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/samber/lo"
)

const (
	networkExists      = "The network already exists."
	networkDoesntExist = "The network does not exist."
)

// CreateNetwork creates the configured network together with its subnet.
// A network whose subnet cannot be created is left in place.
func (d *Deployer) CreateNetwork(ctx context.Context, name string) models.Result {
	_, result := d.createNetwork(ctx, name)
	return result
}

func (d *Deployer) createNetwork(ctx context.Context, name string) (*cloud.Network, models.Result) {
	fail := func(err error) (*cloud.Network, models.Result) {
		return nil, models.FailedWith(models.NetworkKind, models.CreateAction, name, err)
	}

	spec, ok := d.document.FindNetwork(name)
	if !ok {
		return fail(fmt.Errorf("network %q: %w", name, ErrUnknownObject))
	}

	log := d.log.WithField("network", name)

	existing, err := d.cloud.FindNetwork(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to find network: %w", err))
	}
	if existing != nil {
		return existing, models.SkippedBecause(models.NetworkKind, models.CreateAction, name, networkExists)
	}

	log.Debug("creating network")
	network, err := d.cloud.CreateNetwork(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("%w: network %q: %w", ErrCreationFailed, name, err))
	}
	if network == nil {
		return fail(fmt.Errorf("%w: network %q", ErrCreationFailed, name))
	}

	subnet, err := d.cloud.FindSubnet(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to find subnet: %w", err))
	}
	if subnet != nil {
		return fail(fmt.Errorf("subnet %q: %w", name, ErrSubnetExists))
	}

	log.WithField("cidr", spec.CIDR).Debug("creating subnet")
	subnet, err = d.cloud.CreateSubnet(ctx, cloud.SubnetOpts{
		Name:           name,
		NetworkID:      network.ID,
		CIDR:           spec.CIDR,
		DNSNameservers: d.document.Parameters.DNSNameservers,
	})
	if err != nil {
		return fail(fmt.Errorf("%w: subnet %q, please check its parameters: %w", ErrCreationFailed, name, err))
	}
	if subnet == nil {
		return fail(fmt.Errorf("%w: subnet %q", ErrCreationFailed, name))
	}

	return network, models.Succeeded(models.NetworkKind, models.CreateAction, name)
}

// DeleteNetwork deletes the network, the cloud removes its subnets with it.
func (d *Deployer) DeleteNetwork(ctx context.Context, name string) models.Result {
	fail := func(err error) models.Result {
		return models.FailedWith(models.NetworkKind, models.DeleteAction, name, err)
	}

	network, err := d.cloud.FindNetwork(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to find network: %w", err))
	}
	if network == nil {
		return models.SkippedBecause(models.NetworkKind, models.DeleteAction, name, networkDoesntExist)
	}

	d.log.WithField("network", name).Debug("deleting network")
	if err := d.cloud.DeleteNetwork(ctx, network); err != nil {
		return fail(fmt.Errorf("failed to delete network, some hosts might be still connected to it: %w", err))
	}

	return models.Succeeded(models.NetworkKind, models.DeleteAction, name)
}

func (d *Deployer) CreateAllNetworks(ctx context.Context) []models.Result {
	return lo.Map(d.document.Networks, func(network models.Network, _ int) models.Result {
		return d.CreateNetwork(ctx, network.Name)
	})
}

func (d *Deployer) DeleteAllNetworks(ctx context.Context) []models.Result {
	return lo.Map(d.document.Networks, func(network models.Network, _ int) models.Result {
		return d.DeleteNetwork(ctx, network.Name)
	})
}
