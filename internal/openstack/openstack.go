// Package openstack implements cloud.Gateway on top of gophercloud. Credentials
// come from clouds.yaml.
package openstack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/flavors"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/keypairs"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/openstack/config"
	"github.com/gophercloud/gophercloud/v2/openstack/config/clouds"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/ports"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/subnets"
	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var ErrAmbiguousName = errors.New("more than one object with the same name")

type Config struct {
	// Cloud is the entry of clouds.yaml to use. Empty means OS_CLOUD.
	Cloud  string
	Logger logrus.FieldLogger
}

type OpenStack struct {
	network *gophercloud.ServiceClient
	compute *gophercloud.ServiceClient
	image   *gophercloud.ServiceClient
	log     logrus.FieldLogger
}

var _ cloud.Gateway = (*OpenStack)(nil)

func (o *OpenStack) FindNetwork(ctx context.Context, name string) (*cloud.Network, error) {
	o.log.WithField("network", name).Debug("looking up network")

	page, err := networks.List(o.network, networks.ListOpts{Name: name}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}

	found, err := networks.ExtractNetworks(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract networks: %w", err)
	}

	network, err := single(found, name, func(n networks.Network) string { return n.Name })
	if err != nil || network == nil {
		return nil, err
	}

	return toNetwork(*network), nil
}

func (o *OpenStack) CreateNetwork(ctx context.Context, name string) (*cloud.Network, error) {
	o.log.WithField("network", name).Debug("creating network")

	network, err := networks.Create(ctx, o.network, networks.CreateOpts{Name: name}).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}

	return toNetwork(*network), nil
}

func (o *OpenStack) DeleteNetwork(ctx context.Context, network *cloud.Network) error {
	o.log.WithField("network", network.Name).Debug("deleting network")

	if err := networks.Delete(ctx, o.network, network.ID).ExtractErr(); err != nil {
		return fmt.Errorf("failed to delete network: %w", err)
	}

	return nil
}

func (o *OpenStack) ListNetworks(ctx context.Context) ([]cloud.Network, error) {
	page, err := networks.List(o.network, networks.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}

	found, err := networks.ExtractNetworks(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract networks: %w", err)
	}

	return lo.Map(found, func(n networks.Network, _ int) cloud.Network { return *toNetwork(n) }), nil
}

func (o *OpenStack) FindSubnet(ctx context.Context, name string) (*cloud.Subnet, error) {
	o.log.WithField("subnet", name).Debug("looking up subnet")

	page, err := subnets.List(o.network, subnets.ListOpts{Name: name}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subnets: %w", err)
	}

	found, err := subnets.ExtractSubnets(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract subnets: %w", err)
	}

	subnet, err := single(found, name, func(s subnets.Subnet) string { return s.Name })
	if err != nil || subnet == nil {
		return nil, err
	}

	return toSubnet(*subnet), nil
}

func (o *OpenStack) CreateSubnet(ctx context.Context, opts cloud.SubnetOpts) (*cloud.Subnet, error) {
	o.log.WithField("subnet", opts.Name).WithField("cidr", opts.CIDR).Debug("creating subnet")

	subnet, err := subnets.Create(ctx, o.network, subnetCreateOpts(opts)).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create subnet: %w", err)
	}

	return toSubnet(*subnet), nil
}

func (o *OpenStack) ListSubnets(ctx context.Context) ([]cloud.Subnet, error) {
	page, err := subnets.List(o.network, subnets.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subnets: %w", err)
	}

	found, err := subnets.ExtractSubnets(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract subnets: %w", err)
	}

	return lo.Map(found, func(s subnets.Subnet, _ int) cloud.Subnet { return *toSubnet(s) }), nil
}

func (o *OpenStack) ListPorts(ctx context.Context, deviceID string) ([]cloud.Port, error) {
	page, err := ports.List(o.network, ports.ListOpts{DeviceID: deviceID}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	found, err := ports.ExtractPorts(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract ports: %w", err)
	}

	return lo.Map(found, func(p ports.Port, _ int) cloud.Port { return toPort(p) }), nil
}

func (o *OpenStack) FindServer(ctx context.Context, name string) (*cloud.Server, error) {
	o.log.WithField("server", name).Debug("looking up server")

	page, err := servers.List(o.compute, servers.ListOpts{Name: exactName(name)}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	found, err := servers.ExtractServers(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract servers: %w", err)
	}

	server, err := single(found, name, func(s servers.Server) string { return s.Name })
	if err != nil || server == nil {
		return nil, err
	}

	return toServer(*server), nil
}

func (o *OpenStack) CreateServer(ctx context.Context, opts cloud.ServerOpts) (*cloud.Server, error) {
	o.log.WithField("server", opts.Name).Debug("creating server")

	server, err := servers.Create(ctx, o.compute, serverCreateOpts(opts), nil).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return toServer(*server), nil
}

func (o *OpenStack) WaitForServer(ctx context.Context, server *cloud.Server, timeout time.Duration) (*cloud.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := servers.WaitForStatus(ctx, o.compute, server.ID, cloud.ActiveStatus); err != nil {
		return nil, fmt.Errorf("failed to wait for server status: %w", err)
	}

	ready, err := servers.Get(ctx, o.compute, server.ID).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}

	return toServer(*ready), nil
}

func (o *OpenStack) DeleteServer(ctx context.Context, server *cloud.Server) error {
	o.log.WithField("server", server.Name).Debug("deleting server")

	if err := servers.Delete(ctx, o.compute, server.ID).ExtractErr(); err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}

	return nil
}

func (o *OpenStack) WaitForDelete(ctx context.Context, server *cloud.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := gophercloud.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		_, err := servers.Get(ctx, o.compute, server.ID).Extract()
		if gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
			return true, nil
		}
		return false, err
	})
	if err != nil {
		return fmt.Errorf("failed to wait for server deletion: %w", err)
	}

	return nil
}

func (o *OpenStack) FindImage(ctx context.Context, name string) (*cloud.Image, error) {
	o.log.WithField("image", name).Debug("looking up image")

	page, err := images.List(o.image, images.ListOpts{Name: name}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	found, err := images.ExtractImages(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	image, err := single(found, name, func(i images.Image) string { return i.Name })
	if err != nil || image == nil {
		return nil, err
	}

	return &cloud.Image{ID: image.ID, Name: image.Name}, nil
}

func (o *OpenStack) FindFlavor(ctx context.Context, name string) (*cloud.Flavor, error) {
	o.log.WithField("flavor", name).Debug("looking up flavor")

	page, err := flavors.ListDetail(o.compute, flavors.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flavors: %w", err)
	}

	found, err := flavors.ExtractFlavors(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract flavors: %w", err)
	}

	flavor, err := single(found, name, func(f flavors.Flavor) string { return f.Name })
	if err != nil || flavor == nil {
		return nil, err
	}

	return &cloud.Flavor{ID: flavor.ID, Name: flavor.Name}, nil
}

func (o *OpenStack) FindKeypair(ctx context.Context, name string) (*cloud.Keypair, error) {
	o.log.WithField("keypair", name).Debug("looking up keypair")

	page, err := keypairs.List(o.compute, keypairs.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keypairs: %w", err)
	}

	found, err := keypairs.ExtractKeyPairs(page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract keypairs: %w", err)
	}

	keypair, ok := lo.Find(found, func(k keypairs.KeyPair) bool { return k.Name == name })
	if !ok {
		return nil, nil
	}

	return &cloud.Keypair{Name: keypair.Name, PublicKey: keypair.PublicKey}, nil
}

func (o *OpenStack) CreateKeypair(ctx context.Context, name, publicKey string) (*cloud.Keypair, error) {
	o.log.WithField("keypair", name).WithField("generated", publicKey == "").Debug("creating keypair")

	keypair, err := keypairs.Create(ctx, o.compute, keypairs.CreateOpts{Name: name, PublicKey: publicKey}).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create keypair: %w", err)
	}

	return &cloud.Keypair{
		Name:       keypair.Name,
		PublicKey:  keypair.PublicKey,
		PrivateKey: keypair.PrivateKey,
	}, nil
}

// New authenticates against the cloud and opens the network, compute and
// image service clients.
func New(ctx context.Context, cfg Config) (*OpenStack, error) {
	parseOpts := make([]clouds.ParseOption, 0, 1)
	if cfg.Cloud != "" {
		parseOpts = append(parseOpts, clouds.WithCloudName(cfg.Cloud))
	}

	authOptions, endpointOptions, tlsConfig, err := clouds.Parse(parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse clouds.yaml: %w", err)
	}

	provider, err := config.NewProviderClient(ctx, authOptions, config.WithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	network, err := openstack.NewNetworkV2(provider, endpointOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create network client: %w", err)
	}

	compute, err := openstack.NewComputeV2(provider, endpointOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client: %w", err)
	}

	image, err := openstack.NewImageV2(provider, endpointOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create image client: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &OpenStack{
		network: network,
		compute: compute,
		image:   image,
		log:     log,
	}, nil
}

// single picks the object called name out of a filtered listing. Listing
// filters are not always exact, so names are compared again here.
func single[T any](found []T, name string, nameOf func(T) string) (*T, error) {
	matches := lo.Filter(found, func(item T, _ int) bool { return nameOf(item) == name })

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousName, name)
	}
}

// exactName turns a server name into the regular expression the compute API
// expects for its name filter.
func exactName(name string) string {
	return "^" + regexp.QuoteMeta(name) + "$"
}

func toNetwork(network networks.Network) *cloud.Network {
	return &cloud.Network{ID: network.ID, Name: network.Name, Subnets: network.Subnets}
}

func toSubnet(subnet subnets.Subnet) *cloud.Subnet {
	return &cloud.Subnet{
		ID:             subnet.ID,
		Name:           subnet.Name,
		NetworkID:      subnet.NetworkID,
		CIDR:           subnet.CIDR,
		IPVersion:      subnet.IPVersion,
		DNSNameservers: subnet.DNSNameservers,
	}
}

func toPort(port ports.Port) cloud.Port {
	return cloud.Port{
		ID:        port.ID,
		NetworkID: port.NetworkID,
		DeviceID:  port.DeviceID,
		FixedIPs: lo.Map(port.FixedIPs, func(ip ports.IP, _ int) cloud.FixedIP {
			return cloud.FixedIP{SubnetID: ip.SubnetID, IPAddress: ip.IPAddress}
		}),
	}
}

func toServer(server servers.Server) *cloud.Server {
	return &cloud.Server{ID: server.ID, Name: server.Name, Status: server.Status}
}

// subnetCreateOpts builds an IPv4 subnet without DHCP and without a gateway.
func subnetCreateOpts(opts cloud.SubnetOpts) subnets.CreateOpts {
	noGateway := ""
	return subnets.CreateOpts{
		NetworkID:      opts.NetworkID,
		CIDR:           opts.CIDR,
		Name:           opts.Name,
		IPVersion:      gophercloud.IPv4,
		GatewayIP:      &noGateway,
		EnableDHCP:     gophercloud.Disabled,
		DNSNameservers: opts.DNSNameservers,
	}
}

// serverCreateOpts sets key_name through the keypairs extension.
func serverCreateOpts(opts cloud.ServerOpts) servers.CreateOptsBuilder {
	createOpts := servers.CreateOpts{
		Name:      opts.Name,
		ImageRef:  opts.ImageID,
		FlavorRef: opts.FlavorID,
		Networks: lo.Map(opts.Networks, func(n cloud.ServerNetwork, _ int) servers.Network {
			return servers.Network{UUID: n.NetworkID, FixedIP: n.FixedIP}
		}),
	}
	if opts.UserData != "" {
		createOpts.UserData = []byte(opts.UserData)
	}

	return keypairs.CreateOptsExt{
		CreateOptsBuilder: createOpts,
		KeyName:           opts.KeyName,
	}
}
