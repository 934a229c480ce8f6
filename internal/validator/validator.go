package validator

import (
	"errors"
	"fmt"
	"net"

	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/hogwarts-cloud/stackctl/pkg/utils"
	"github.com/samber/lo"
)

var (
	ErrEmptyNetworkName          = errors.New("empty network name")
	ErrEmptyServerName           = errors.New("empty server name")
	ErrFoundDuplicatedNetworks   = errors.New("found duplicated network names")
	ErrFoundDuplicatedServers    = errors.New("found duplicated server names")
	ErrInvalidCIDR               = errors.New("invalid cidr")
	ErrEmptyImage                = errors.New("neither image nor instance snapshot is set")
	ErrEmptyFlavor               = errors.New("empty flavor")
	ErrUnknownNetwork            = errors.New("attached network is not declared")
	ErrInvalidFixedIP            = errors.New("invalid fixed ipv4")
	ErrFixedIPOutsideNetworkCIDR = errors.New("fixed ipv4 is not a usable host address of the network")
)

// Validate checks the document without contacting the cloud and returns every
// problem it finds.
func Validate(document *models.Document) error {
	errs := make([]error, 0)

	cidrs := make(map[string]*net.IPNet, len(document.Networks))
	for _, network := range document.Networks {
		if network.Name == "" {
			errs = append(errs, ErrEmptyNetworkName)
			continue
		}

		_, cidr, err := net.ParseCIDR(network.CIDR)
		if err != nil {
			errs = append(errs, fmt.Errorf("network %q: %w: %q", network.Name, ErrInvalidCIDR, network.CIDR))
			continue
		}
		cidrs[network.Name] = cidr
	}

	networkNames := lo.Map(document.Networks, func(n models.Network, _ int) string { return n.Name })
	for _, name := range lo.FindDuplicates(lo.Compact(networkNames)) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrFoundDuplicatedNetworks, name))
	}

	serverNames := lo.Map(document.Servers, func(s models.Server, _ int) string { return s.Name })
	for _, name := range lo.FindDuplicates(lo.Compact(serverNames)) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrFoundDuplicatedServers, name))
	}

	for _, server := range document.Servers {
		if err := validateServer(server, networkNames, cidrs); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServer(server models.Server, networkNames []string, cidrs map[string]*net.IPNet) error {
	if server.Name == "" {
		return ErrEmptyServerName
	}

	errs := make([]error, 0)

	if server.Image == "" && server.InstanceSnapshot == "" {
		errs = append(errs, ErrEmptyImage)
	}

	if server.Flavor == "" {
		errs = append(errs, ErrEmptyFlavor)
	}

	for _, attachment := range server.Networks {
		if !lo.Contains(networkNames, attachment.Name) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownNetwork, attachment.Name))
			continue
		}

		if attachment.IPv4 == "" {
			continue
		}

		ip := net.ParseIP(attachment.IPv4)
		if ip == nil || ip.To4() == nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFixedIP, attachment.IPv4))
			continue
		}

		cidr, ok := cidrs[attachment.Name]
		if ok && !utils.IsUsableHostIP(*cidr, ip) {
			errs = append(errs, fmt.Errorf("%w: %s in %s", ErrFixedIPOutsideNetworkCIDR, attachment.IPv4, cidr))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("server %q: %w", server.Name, err)
	}

	return nil
}
