package deployer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/samber/lo"
)

const (
	serverExists      = "The server already exists."
	serverDoesntExist = "The server does not exist."
)

// CreateServer creates the configured server and waits until it is active.
// Missing networks it is attached to are created on the way.
func (d *Deployer) CreateServer(ctx context.Context, name string) models.Result {
	var dependencies []models.Result

	fail := func(err error) models.Result {
		result := models.FailedWith(models.ServerKind, models.CreateAction, name, err)
		result.Dependencies = dependencies
		return result
	}

	spec, ok := d.document.FindServer(name)
	if !ok {
		return fail(fmt.Errorf("server %q: %w", name, ErrUnknownObject))
	}

	log := d.log.WithField("server", name)

	existing, err := d.cloud.FindServer(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to find server: %w", err))
	}
	if existing != nil {
		return models.SkippedBecause(models.ServerKind, models.CreateAction, name, serverExists)
	}

	image, err := d.resolveImage(ctx, spec)
	if err != nil {
		return fail(err)
	}

	flavor, err := d.cloud.FindFlavor(ctx, spec.Flavor)
	if err != nil {
		return fail(fmt.Errorf("failed to find flavor: %w", err))
	}
	if flavor == nil {
		return fail(fmt.Errorf("flavor %q: %w", spec.Flavor, ErrNotFound))
	}

	keypair, err := d.ensureKeypair(ctx, spec.KeypairName())
	if err != nil {
		return fail(err)
	}

	networks, dependencies, err := d.attachNetworks(ctx, spec)
	if err != nil {
		return fail(err)
	}

	userData, err := loadInitScript(spec.InitScript)
	if err != nil {
		return fail(err)
	}

	log.WithField("image", image.Name).WithField("flavor", flavor.Name).Debug("creating server")
	server, err := d.cloud.CreateServer(ctx, cloud.ServerOpts{
		Name:     name,
		ImageID:  image.ID,
		FlavorID: flavor.ID,
		KeyName:  keypair.Name,
		Networks: networks,
		UserData: userData,
	})
	if err != nil {
		return fail(fmt.Errorf("%w: server %q: %w", ErrCreationFailed, name, err))
	}
	if server == nil {
		return fail(fmt.Errorf("%w: server %q", ErrCreationFailed, name))
	}

	log.WithField("timeout", d.readyTimeout).Debug("waiting for server")
	if _, err := d.cloud.WaitForServer(ctx, server, d.readyTimeout); err != nil {
		return fail(fmt.Errorf("server did not become ready: %w", err))
	}

	result := models.Succeeded(models.ServerKind, models.CreateAction, name)
	result.Dependencies = dependencies
	return result
}

// resolveImage prefers the instance snapshot over the image when one is configured.
func (d *Deployer) resolveImage(ctx context.Context, spec models.Server) (*cloud.Image, error) {
	name, what := spec.Image, "image"
	if spec.InstanceSnapshot != "" {
		name, what = spec.InstanceSnapshot, "snapshot"
	}

	image, err := d.cloud.FindImage(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", what, err)
	}
	if image == nil {
		return nil, fmt.Errorf("%s %q: %w", what, name, ErrNotFound)
	}

	return image, nil
}

func (d *Deployer) attachNetworks(ctx context.Context, spec models.Server) ([]cloud.ServerNetwork, []models.Result, error) {
	networks := make([]cloud.ServerNetwork, 0, len(spec.Networks))
	dependencies := make([]models.Result, 0)

	for _, attachment := range spec.Networks {
		network, err := d.cloud.FindNetwork(ctx, attachment.Name)
		if err != nil {
			return nil, dependencies, fmt.Errorf("failed to find network: %w", err)
		}

		if network == nil {
			var result models.Result
			network, result = d.createNetwork(ctx, attachment.Name)
			dependencies = append(dependencies, result)
			if network == nil {
				return nil, dependencies, fmt.Errorf("network %q could not be created: %w", attachment.Name, result.Err)
			}
		}

		networks = append(networks, cloud.ServerNetwork{
			NetworkID: network.ID,
			FixedIP:   attachment.IPv4,
		})
	}

	return networks, dependencies, nil
}

func loadInitScript(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("init script %q: %w", path, ErrFileMissing)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read init script: %w", err)
	}

	return base64.StdEncoding.EncodeToString(content), nil
}

// DeleteServer deletes the server and waits until the cloud no longer knows it.
func (d *Deployer) DeleteServer(ctx context.Context, name string) models.Result {
	fail := func(err error) models.Result {
		return models.FailedWith(models.ServerKind, models.DeleteAction, name, err)
	}

	server, err := d.cloud.FindServer(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to find server: %w", err))
	}
	if server == nil {
		return models.SkippedBecause(models.ServerKind, models.DeleteAction, name, serverDoesntExist)
	}

	log := d.log.WithField("server", name)

	log.Debug("deleting server")
	if err := d.cloud.DeleteServer(ctx, server); err != nil {
		return fail(fmt.Errorf("failed to delete server: %w", err))
	}

	log.WithField("timeout", d.deleteTimeout).Debug("waiting for server deletion")
	if err := d.cloud.WaitForDelete(ctx, server, d.deleteTimeout); err != nil {
		return fail(fmt.Errorf("failed to wait for server deletion: %w", err))
	}

	return models.Succeeded(models.ServerKind, models.DeleteAction, name)
}

func (d *Deployer) CreateAllServers(ctx context.Context) []models.Result {
	return lo.Map(d.document.Servers, func(server models.Server, _ int) models.Result {
		return d.CreateServer(ctx, server.Name)
	})
}

func (d *Deployer) DeleteAllServers(ctx context.Context) []models.Result {
	return lo.Map(d.document.Servers, func(server models.Server, _ int) models.Result {
		return d.DeleteServer(ctx, server.Name)
	})
}
