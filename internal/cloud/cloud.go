// Package cloud describes the capabilities stackctl needs from an IaaS cloud.
//
// Find methods return a nil object and a nil error when nothing with the
// given name exists.
package cloud

import (
	"context"
	"time"
)

const ActiveStatus = "ACTIVE"

type Network struct {
	ID      string
	Name    string
	Subnets []string
}

type Subnet struct {
	ID             string
	Name           string
	NetworkID      string
	CIDR           string
	IPVersion      int
	DNSNameservers []string
}

type SubnetOpts struct {
	Name           string
	NetworkID      string
	CIDR           string
	DNSNameservers []string
}

type FixedIP struct {
	SubnetID  string
	IPAddress string
}

type Port struct {
	ID        string
	NetworkID string
	DeviceID  string
	FixedIPs  []FixedIP
}

type Server struct {
	ID     string
	Name   string
	Status string
}

type ServerNetwork struct {
	NetworkID string
	FixedIP   string
}

type ServerOpts struct {
	Name     string
	ImageID  string
	FlavorID string
	KeyName  string
	Networks []ServerNetwork
	// UserData is already base64 encoded.
	UserData string
}

type Image struct {
	ID   string
	Name string
}

type Flavor struct {
	ID   string
	Name string
}

type Keypair struct {
	Name       string
	PublicKey  string
	PrivateKey string
}

type NetworkManager interface {
	FindNetwork(ctx context.Context, name string) (*Network, error)
	CreateNetwork(ctx context.Context, name string) (*Network, error)
	DeleteNetwork(ctx context.Context, network *Network) error
	ListNetworks(ctx context.Context) ([]Network, error)
}

type SubnetManager interface {
	FindSubnet(ctx context.Context, name string) (*Subnet, error)
	CreateSubnet(ctx context.Context, opts SubnetOpts) (*Subnet, error)
	ListSubnets(ctx context.Context) ([]Subnet, error)
}

type PortLister interface {
	ListPorts(ctx context.Context, deviceID string) ([]Port, error)
}

type ServerProvisioner interface {
	FindServer(ctx context.Context, name string) (*Server, error)
	CreateServer(ctx context.Context, opts ServerOpts) (*Server, error)
	WaitForServer(ctx context.Context, server *Server, timeout time.Duration) (*Server, error)
	DeleteServer(ctx context.Context, server *Server) error
	WaitForDelete(ctx context.Context, server *Server, timeout time.Duration) error
}

type ImageFinder interface {
	FindImage(ctx context.Context, name string) (*Image, error)
	FindFlavor(ctx context.Context, name string) (*Flavor, error)
}

type KeypairManager interface {
	FindKeypair(ctx context.Context, name string) (*Keypair, error)
	// CreateKeypair uploads publicKey, or lets the cloud generate a keypair
	// when publicKey is empty. Generated keypairs carry the private key.
	CreateKeypair(ctx context.Context, name, publicKey string) (*Keypair, error)
}

// Gateway combines every capability used by the reconcilers and the emitter.
type Gateway interface {
	NetworkManager
	SubnetManager
	PortLister
	ServerProvisioner
	ImageFinder
	KeypairManager
}
