package models

// Document is the declarative description of the infrastructure.
type Document struct {
	Networks   []Network  `yaml:"networks"`
	Servers    []Server   `yaml:"servers"`
	Parameters Parameters `yaml:"parameters"`
}

type Network struct {
	Name string `yaml:"name"`
	CIDR string `yaml:"cidr"`
}

type Server struct {
	Name             string              `yaml:"name"`
	Image            string              `yaml:"image"`
	Flavor           string              `yaml:"flavor"`
	Networks         []NetworkAttachment `yaml:"networks"`
	Keypair          string              `yaml:"keypair"`
	InitScript       string              `yaml:"init-script"`
	InstanceSnapshot string              `yaml:"instance_snapshot"`
}

// KeypairName returns the configured keypair or, when none is set, the server name.
func (s Server) KeypairName() string {
	if s.Keypair != "" {
		return s.Keypair
	}
	return s.Name
}

type NetworkAttachment struct {
	Name string `yaml:"name"`
	IPv4 string `yaml:"ipv4"`
}

type Parameters struct {
	DNSNameservers []string          `yaml:"dns_nameservers"`
	Users          map[string]string `yaml:"users"`
}

func (d *Document) FindNetwork(name string) (Network, bool) {
	for _, network := range d.Networks {
		if network.Name == name {
			return network, true
		}
	}
	return Network{}, false
}

func (d *Document) FindServer(name string) (Server, bool) {
	for _, server := range d.Servers {
		if server.Name == name {
			return server, true
		}
	}
	return Server{}, false
}

// Username returns the login user configured for the image, if any.
func (d *Document) Username(image string) string {
	return d.Parameters.Users[image]
}
