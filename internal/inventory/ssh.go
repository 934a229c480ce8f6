package inventory

import (
	"cmp"
	_ "embed"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/hogwarts-cloud/stackctl/internal/network"
)

//go:embed templates/ssh_config.tmpl
var sshConfigTemplate string

var sshConfig = template.Must(template.New("ssh_config").Parse(sshConfigTemplate))

type sshHost struct {
	Alias        string
	IP           string
	User         string
	IdentityFile string
}

type sshGroup struct {
	Network string
	Hosts   []sshHost
}

// RenderSSHConfig writes one Host stanza per host, grouped by network.
func RenderSSHConfig(w io.Writer, hosts []models.Host, sshDir string) error {
	sorted := slices.Clone(hosts)
	slices.SortStableFunc(sorted, func(a, b models.Host) int {
		return cmp.Compare(a.Network, b.Network)
	})

	groups := make([]sshGroup, 0)
	for _, host := range sorted {
		if len(groups) == 0 || groups[len(groups)-1].Network != host.Network {
			groups = append(groups, sshGroup{Network: host.Network})
		}

		group := &groups[len(groups)-1]
		group.Hosts = append(group.Hosts, sshHost{
			Alias:        network.Alias(host.Name, host.IP),
			IP:           host.IP,
			User:         host.Username,
			IdentityFile: filepath.Join(sshDir, host.Keypair),
		})
	}

	if err := sshConfig.Execute(w, groups); err != nil {
		return fmt.Errorf("failed to execute ssh config template: %w", err)
	}

	return nil
}
