// Package fakes provides an in-memory cloud.Gateway that records every call.
package fakes

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
)

// GeneratedPrivateKey is what CreateKeypair hands out when asked to generate a
// keypair: a PEM encoded ed25519 key derived from a zero seed.
var GeneratedPrivateKey = generatedPrivateKey()

func generatedPrivateKey() string {
	der, err := x509.MarshalPKCS8PrivateKey(ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize)))
	if err != nil {
		panic(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// Gateway keeps cloud objects in slices. Calls are recorded as "<Method> <name>".
//
// Errors injects an error for a recorded call, Nil makes a Find/Create call
// return a nil object.
type Gateway struct {
	mu sync.Mutex

	Networks []cloud.Network
	Subnets  []cloud.Subnet
	Ports    []cloud.Port
	Servers  []cloud.Server
	Images   []cloud.Image
	Flavors  []cloud.Flavor
	Keypairs []cloud.Keypair

	Errors map[string]error
	Nil    map[string]bool

	// GeneratedKey is the private key returned for generated keypairs.
	GeneratedKey string

	Calls []string

	lastID int
}

var _ cloud.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		Errors:       make(map[string]error),
		Nil:          make(map[string]bool),
		GeneratedKey: GeneratedPrivateKey,
	}
}

// CallsWithPrefix returns the recorded calls whose method starts with one of prefixes.
func (g *Gateway) CallsWithPrefix(prefixes ...string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	calls := make([]string, 0)
	for _, call := range g.Calls {
		for _, prefix := range prefixes {
			if strings.HasPrefix(call, prefix) {
				calls = append(calls, call)
				break
			}
		}
	}
	return calls
}

// Mutations returns the calls that change cloud state.
func (g *Gateway) Mutations() []string {
	return g.CallsWithPrefix("Create", "Delete")
}

func (g *Gateway) record(method, name string) (bool, error) {
	call := strings.TrimSpace(method + " " + name)
	g.Calls = append(g.Calls, call)
	return g.Nil[call], g.Errors[call]
}

func (g *Gateway) id(prefix string) string {
	g.lastID++
	return fmt.Sprintf("%s-%d", prefix, g.lastID)
}

func (g *Gateway) FindNetwork(_ context.Context, name string) (*cloud.Network, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("FindNetwork", name); err != nil || isNil {
		return nil, err
	}
	for _, network := range g.Networks {
		if network.Name == name {
			network := network
			return &network, nil
		}
	}
	return nil, nil
}

func (g *Gateway) CreateNetwork(_ context.Context, name string) (*cloud.Network, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("CreateNetwork", name); err != nil || isNil {
		return nil, err
	}
	network := cloud.Network{ID: g.id("net"), Name: name}
	g.Networks = append(g.Networks, network)
	return &network, nil
}

func (g *Gateway) DeleteNetwork(_ context.Context, network *cloud.Network) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.record("DeleteNetwork", network.Name); err != nil {
		return err
	}

	networks := g.Networks[:0]
	for _, n := range g.Networks {
		if n.ID != network.ID {
			networks = append(networks, n)
		}
	}
	g.Networks = networks

	subnets := g.Subnets[:0]
	for _, s := range g.Subnets {
		if s.NetworkID != network.ID {
			subnets = append(subnets, s)
		}
	}
	g.Subnets = subnets

	return nil
}

func (g *Gateway) ListNetworks(_ context.Context) ([]cloud.Network, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.record("ListNetworks", ""); err != nil {
		return nil, err
	}
	return append([]cloud.Network(nil), g.Networks...), nil
}

func (g *Gateway) FindSubnet(_ context.Context, name string) (*cloud.Subnet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("FindSubnet", name); err != nil || isNil {
		return nil, err
	}
	for _, subnet := range g.Subnets {
		if subnet.Name == name {
			subnet := subnet
			return &subnet, nil
		}
	}
	return nil, nil
}

func (g *Gateway) CreateSubnet(_ context.Context, opts cloud.SubnetOpts) (*cloud.Subnet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("CreateSubnet", opts.Name); err != nil || isNil {
		return nil, err
	}
	subnet := cloud.Subnet{
		ID:             g.id("subnet"),
		Name:           opts.Name,
		NetworkID:      opts.NetworkID,
		CIDR:           opts.CIDR,
		IPVersion:      4,
		DNSNameservers: opts.DNSNameservers,
	}
	g.Subnets = append(g.Subnets, subnet)
	for i := range g.Networks {
		if g.Networks[i].ID == opts.NetworkID {
			g.Networks[i].Subnets = append(g.Networks[i].Subnets, subnet.ID)
		}
	}
	return &subnet, nil
}

func (g *Gateway) ListSubnets(_ context.Context) ([]cloud.Subnet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.record("ListSubnets", ""); err != nil {
		return nil, err
	}
	return append([]cloud.Subnet(nil), g.Subnets...), nil
}

func (g *Gateway) ListPorts(_ context.Context, deviceID string) ([]cloud.Port, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.record("ListPorts", deviceID); err != nil {
		return nil, err
	}
	ports := make([]cloud.Port, 0)
	for _, port := range g.Ports {
		if port.DeviceID == deviceID {
			ports = append(ports, port)
		}
	}
	return ports, nil
}

func (g *Gateway) FindServer(_ context.Context, name string) (*cloud.Server, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("FindServer", name); err != nil || isNil {
		return nil, err
	}
	for _, server := range g.Servers {
		if server.Name == name {
			server := server
			return &server, nil
		}
	}
	return nil, nil
}

// CreateServer also creates one port per requested network. Requests without
// a fixed IP get an address from 192.0.2.0/24.
func (g *Gateway) CreateServer(_ context.Context, opts cloud.ServerOpts) (*cloud.Server, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("CreateServer", opts.Name); err != nil || isNil {
		return nil, err
	}
	server := cloud.Server{ID: g.id("server"), Name: opts.Name, Status: "BUILD"}
	g.Servers = append(g.Servers, server)

	for _, network := range opts.Networks {
		ip := network.FixedIP
		if ip == "" {
			ip = fmt.Sprintf("192.0.2.%d", len(g.Ports)+10)
		}

		var subnetID string
		for _, subnet := range g.Subnets {
			if subnet.NetworkID == network.NetworkID {
				subnetID = subnet.ID
				break
			}
		}

		g.Ports = append(g.Ports, cloud.Port{
			ID:        g.id("port"),
			NetworkID: network.NetworkID,
			DeviceID:  server.ID,
			FixedIPs:  []cloud.FixedIP{{SubnetID: subnetID, IPAddress: ip}},
		})
	}

	return &server, nil
}

func (g *Gateway) WaitForServer(_ context.Context, server *cloud.Server, _ time.Duration) (*cloud.Server, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.record("WaitForServer", server.Name); err != nil {
		return nil, err
	}
	for i := range g.Servers {
		if g.Servers[i].ID == server.ID {
			g.Servers[i].Status = cloud.ActiveStatus
			ready := g.Servers[i]
			return &ready, nil
		}
	}
	return nil, fmt.Errorf("server %s disappeared", server.Name)
}

func (g *Gateway) DeleteServer(_ context.Context, server *cloud.Server) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.record("DeleteServer", server.Name); err != nil {
		return err
	}

	servers := g.Servers[:0]
	for _, s := range g.Servers {
		if s.ID != server.ID {
			servers = append(servers, s)
		}
	}
	g.Servers = servers

	ports := g.Ports[:0]
	for _, p := range g.Ports {
		if p.DeviceID != server.ID {
			ports = append(ports, p)
		}
	}
	g.Ports = ports

	return nil
}

func (g *Gateway) WaitForDelete(_ context.Context, server *cloud.Server, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, err := g.record("WaitForDelete", server.Name)
	return err
}

func (g *Gateway) FindImage(_ context.Context, name string) (*cloud.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("FindImage", name); err != nil || isNil {
		return nil, err
	}
	for _, image := range g.Images {
		if image.Name == name {
			image := image
			return &image, nil
		}
	}
	return nil, nil
}

func (g *Gateway) FindFlavor(_ context.Context, name string) (*cloud.Flavor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("FindFlavor", name); err != nil || isNil {
		return nil, err
	}
	for _, flavor := range g.Flavors {
		if flavor.Name == name {
			flavor := flavor
			return &flavor, nil
		}
	}
	return nil, nil
}

func (g *Gateway) FindKeypair(_ context.Context, name string) (*cloud.Keypair, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("FindKeypair", name); err != nil || isNil {
		return nil, err
	}
	for _, keypair := range g.Keypairs {
		if keypair.Name == name {
			keypair := keypair
			return &keypair, nil
		}
	}
	return nil, nil
}

func (g *Gateway) CreateKeypair(_ context.Context, name, publicKey string) (*cloud.Keypair, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isNil, err := g.record("CreateKeypair", name); err != nil || isNil {
		return nil, err
	}
	keypair := cloud.Keypair{Name: name, PublicKey: publicKey}
	if publicKey == "" {
		keypair.PublicKey = "ssh-ed25519 AAAAfake " + name
		keypair.PrivateKey = g.GeneratedKey
	}
	g.Keypairs = append(g.Keypairs, cloud.Keypair{Name: keypair.Name, PublicKey: keypair.PublicKey})
	return &keypair, nil
}
