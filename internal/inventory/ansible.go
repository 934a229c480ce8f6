package inventory

import (
	"cmp"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/hogwarts-cloud/stackctl/internal/network"
	"gopkg.in/yaml.v3"
)

const strictHostKeyChecking = "-o StrictHostKeyChecking=no"

// RenderAnsibleInventory writes an inventory with one group per network and
// IP version under all.children.
func RenderAnsibleInventory(w io.Writer, hosts []models.Host, sshDir string) error {
	sorted := slices.Clone(hosts)
	slices.SortStableFunc(sorted, func(a, b models.Host) int {
		if c := cmp.Compare(a.Network, b.Network); c != 0 {
			return c
		}
		return cmp.Compare(a.IPVersion, b.IPVersion)
	})

	children := mapping()

	var groupHosts *yaml.Node
	currentGroup := ""
	for _, host := range sorted {
		group := network.GroupName(host.Network, host.IPVersion)
		if groupHosts == nil || group != currentGroup {
			currentGroup = group
			groupHosts = mapping()

			key := scalar(group)
			key.HeadComment = fmt.Sprintf("# Network %q, IPv%d", host.Network, host.IPVersion)
			children.Content = append(children.Content, key, mapping(scalar("hosts"), groupHosts))
		}

		vars := mapping(
			scalar("ansible_host"), scalar(host.IP),
		)
		if host.Username != "" {
			vars.Content = append(vars.Content, scalar("ansible_user"), scalar(host.Username))
		}

		commonArgs := scalar(strictHostKeyChecking)
		commonArgs.Style = yaml.SingleQuotedStyle
		vars.Content = append(vars.Content,
			scalar("ansible_ssh_private_key_file"), scalar(filepath.Join(sshDir, host.Keypair)),
			scalar("ansible_ssh_common_args"), commonArgs,
		)

		groupHosts.Content = append(groupHosts.Content, scalar(network.Alias(host.Name, host.IP)), vars)
	}

	document := &yaml.Node{
		Kind: yaml.DocumentNode,
		Content: []*yaml.Node{
			mapping(scalar("all"), mapping(scalar("children"), children)),
		},
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(document); err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}

	return encoder.Close()
}

func mapping(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: content}
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
