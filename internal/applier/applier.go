package applier

import (
	"context"
	"strings"

	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/samber/lo"
)

const (
	AllTarget      = "all"
	ServersTarget  = "servers"
	NetworksTarget = "networks"
)

type NetworkReconciler interface {
	CreateNetwork(ctx context.Context, name string) models.Result
	DeleteNetwork(ctx context.Context, name string) models.Result
	CreateAllNetworks(ctx context.Context) []models.Result
	DeleteAllNetworks(ctx context.Context) []models.Result
}

type ServerReconciler interface {
	CreateServer(ctx context.Context, name string) models.Result
	DeleteServer(ctx context.Context, name string) models.Result
	CreateAllServers(ctx context.Context) []models.Result
	DeleteAllServers(ctx context.Context) []models.Result
}

type scope int

const (
	namedScope scope = iota
	networksScope
	serversScope
	allScope
)

type target struct {
	kind models.Kind
	name string
}

// selection is what a list of names resolved to.
type selection struct {
	scope   scope
	targets []target
}

type Applier struct {
	networks NetworkReconciler
	servers  ServerReconciler
	lookup   map[string]models.Kind
}

// Apply runs action against the objects selected by names. Restart deletes the
// selection first and then creates it again.
func (a *Applier) Apply(ctx context.Context, action models.Action, names []string) models.Report {
	report := models.Report{}
	if len(names) == 0 {
		return report
	}

	selected := a.resolve(action, names, &report)

	switch action {
	case models.CreateAction:
		a.create(ctx, selected, &report)
	case models.DeleteAction:
		a.delete(ctx, selected, &report)
	case models.RestartAction:
		a.delete(ctx, selected, &report)
		a.create(ctx, selected, &report)
	}

	return report
}

func (a *Applier) resolve(action models.Action, names []string, report *models.Report) selection {
	flag := "--" + action.String()

	for _, sentinel := range []struct {
		name  string
		scope scope
	}{
		{name: AllTarget, scope: allScope},
		{name: ServersTarget, scope: serversScope},
		{name: NetworksTarget, scope: networksScope},
	} {
		if !lo.Contains(names, sentinel.name) {
			continue
		}

		if ignored := lo.Without(names, sentinel.name); len(ignored) > 0 {
			report.Warn("Operation %q with the argument %q has been executed. Other parameters were ignored: %s.",
				flag, sentinel.name, quoteAll(ignored))
		}
		return selection{scope: sentinel.scope}
	}

	targets := make([]target, 0, len(names))
	for _, name := range names {
		kind, ok := a.lookup[name]
		if !ok {
			report.Warn("The argument %q for operation %q is unknown.", name, flag)
			continue
		}
		targets = append(targets, target{kind: kind, name: name})
	}

	return selection{scope: namedScope, targets: targets}
}

func (a *Applier) create(ctx context.Context, selected selection, report *models.Report) {
	switch selected.scope {
	case allScope:
		report.Add(a.networks.CreateAllNetworks(ctx)...)
		report.Add(a.servers.CreateAllServers(ctx)...)
	case networksScope:
		report.Add(a.networks.CreateAllNetworks(ctx)...)
	case serversScope:
		report.Add(a.servers.CreateAllServers(ctx)...)
	default:
		for _, t := range selected.targets {
			if t.kind == models.ServerKind {
				report.Add(a.servers.CreateServer(ctx, t.name))
			} else {
				report.Add(a.networks.CreateNetwork(ctx, t.name))
			}
		}
	}
}

func (a *Applier) delete(ctx context.Context, selected selection, report *models.Report) {
	switch selected.scope {
	case allScope:
		report.Add(a.servers.DeleteAllServers(ctx)...)
		report.Add(a.networks.DeleteAllNetworks(ctx)...)
	case networksScope:
		report.Add(a.networks.DeleteAllNetworks(ctx)...)
	case serversScope:
		report.Add(a.servers.DeleteAllServers(ctx)...)
	default:
		for _, t := range selected.targets {
			if t.kind == models.ServerKind {
				report.Add(a.servers.DeleteServer(ctx, t.name))
			} else {
				report.Add(a.networks.DeleteNetwork(ctx, t.name))
			}
		}
	}
}

func quoteAll(names []string) string {
	return strings.Join(lo.Map(names, func(name string, _ int) string {
		return `"` + name + `"`
	}), ", ")
}

// New builds the name lookup table once. A server shadows a network with the
// same name.
func New(networks NetworkReconciler, servers ServerReconciler, document *models.Document) *Applier {
	lookup := make(map[string]models.Kind, len(document.Networks)+len(document.Servers))
	for _, network := range document.Networks {
		lookup[network.Name] = models.NetworkKind
	}
	for _, server := range document.Servers {
		lookup[server.Name] = models.ServerKind
	}

	return &Applier{
		networks: networks,
		servers:  servers,
		lookup:   lookup,
	}
}
