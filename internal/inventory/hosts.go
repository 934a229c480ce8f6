// Package inventory turns the ports of running servers into SSH client
// configuration and an Ansible inventory.
package inventory

import (
	"context"
	"fmt"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/hogwarts-cloud/stackctl/internal/network"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Catalogue interface {
	FindServer(ctx context.Context, name string) (*cloud.Server, error)
	ListPorts(ctx context.Context, deviceID string) ([]cloud.Port, error)
	ListNetworks(ctx context.Context) ([]cloud.Network, error)
	ListSubnets(ctx context.Context) ([]cloud.Subnet, error)
}

// DeriveHosts returns one host per fixed IP of every configured server that
// exists in the cloud. Hosts follow the server order of the document.
func DeriveHosts(ctx context.Context, catalogue Catalogue, document *models.Document, log logrus.FieldLogger) ([]models.Host, error) {
	var (
		networks []cloud.Network
		subnets  []cloud.Subnet
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		networks, err = catalogue.ListNetworks(egCtx)
		if err != nil {
			return fmt.Errorf("failed to list networks: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		subnets, err = catalogue.ListSubnets(egCtx)
		if err != nil {
			return fmt.Errorf("failed to list subnets: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	networkNames := lo.Associate(networks, func(n cloud.Network) (string, string) {
		return n.ID, n.Name
	})
	subnetNetworks := lo.Associate(subnets, func(s cloud.Subnet) (string, string) {
		return s.ID, s.NetworkID
	})

	hosts := make([]models.Host, 0)
	for _, spec := range document.Servers {
		server, err := catalogue.FindServer(ctx, spec.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to find server %q: %w", spec.Name, err)
		}
		if server == nil {
			log.WithField("server", spec.Name).Info("server is not running, skipping")
			continue
		}
		if server.Status != cloud.ActiveStatus {
			log.WithField("server", spec.Name).WithField("status", server.Status).Debug("server is not active")
		}

		ports, err := catalogue.ListPorts(ctx, server.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list ports of server %q: %w", spec.Name, err)
		}

		for _, port := range ports {
			networkName, ok := networkNames[port.NetworkID]
			if !ok {
				log.WithField("server", spec.Name).WithField("port", port.ID).Warn("port network is unknown, skipping")
				continue
			}

			for _, fixedIP := range port.FixedIPs {
				// the host name follows the subnet the address belongs to
				hostNetwork := networkName
				if networkID, ok := subnetNetworks[fixedIP.SubnetID]; ok {
					if name, ok := networkNames[networkID]; ok {
						hostNetwork = name
					}
				}

				hosts = append(hosts, models.Host{
					Name:      network.HostName(spec.Name, hostNetwork),
					Network:   networkName,
					IP:        fixedIP.IPAddress,
					IPVersion: network.IPVersion(fixedIP.IPAddress),
					Username:  document.Username(spec.Image),
					Keypair:   spec.KeypairName(),
				})
			}
		}
	}

	return hosts, nil
}
