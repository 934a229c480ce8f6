package inventory

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hogwarts-cloud/stackctl/internal/models"
)

const (
	SSHConfigFile = "config"
	InventoryFile = "inventory.yml"

	SSHFormat     = "ssh"
	AnsibleFormat = "ansible"
	AllFormats    = "all"
)

var ErrUnknownFormat = errors.New("unknown config format, expected ssh, ansible or all")

func WriteSSHConfig(dir string, hosts []models.Host, sshDir string) (string, error) {
	return writeFile(filepath.Join(dir, SSHConfigFile), func(w io.Writer) error {
		return RenderSSHConfig(w, hosts, sshDir)
	})
}

func WriteAnsibleInventory(dir string, hosts []models.Host, sshDir string) (string, error) {
	return writeFile(filepath.Join(dir, InventoryFile), func(w io.Writer) error {
		return RenderAnsibleInventory(w, hosts, sshDir)
	})
}

// Generate writes the files of format into dir and returns their paths.
func Generate(dir, format string, hosts []models.Host, sshDir string) ([]string, error) {
	writers := make([]func(string, []models.Host, string) (string, error), 0, 2)
	switch format {
	case SSHFormat:
		writers = append(writers, WriteSSHConfig)
	case AnsibleFormat:
		writers = append(writers, WriteAnsibleInventory)
	case AllFormats:
		writers = append(writers, WriteSSHConfig, WriteAnsibleInventory)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	paths := make([]string, 0, len(writers))
	for _, write := range writers {
		path, err := write(dir, hosts, sshDir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// ValidFormat reports whether format names something Generate can write.
func ValidFormat(format string) bool {
	return format == SSHFormat || format == AnsibleFormat || format == AllFormats
}

func writeFile(path string, render func(io.Writer) error) (string, error) {
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := render(file); err != nil {
		return "", err
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	return path, nil
}
