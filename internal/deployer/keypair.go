package deployer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"golang.org/x/crypto/ssh"
)

const (
	PublicKeyExtension = ".pub"

	sshDirMode     = 0700
	publicKeyMode  = 0444
	privateKeyMode = 0400
)

// ensureKeypair returns the cloud keypair called name. When the cloud does not
// have it, the local private key <sshDir>/<name> is published; without a local
// key the cloud generates a keypair whose private key is stored locally.
func (d *Deployer) ensureKeypair(ctx context.Context, name string) (*cloud.Keypair, error) {
	if err := os.MkdirAll(d.sshDir, sshDirMode); err != nil {
		return nil, fmt.Errorf("failed to create ssh directory: %w", err)
	}

	keypair, err := d.cloud.FindKeypair(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find keypair: %w", err)
	}
	if keypair != nil {
		return keypair, nil
	}

	privateKeyPath := filepath.Join(d.sshDir, name)
	publicKeyPath := privateKeyPath + PublicKeyExtension

	log := d.log.WithField("keypair", name)

	exists, err := fileExists(privateKeyPath)
	if err != nil {
		return nil, err
	}

	if exists {
		log.WithField("path", privateKeyPath).Debug("publishing local key")
		return d.publishLocalKey(ctx, name, privateKeyPath, publicKeyPath)
	}

	log.Debug("generating keypair")
	keypair, err = d.cloud.CreateKeypair(ctx, name, "")
	if err != nil {
		return nil, fmt.Errorf("%w: ssh keypair %q: %w", ErrCreationFailed, name, err)
	}
	if keypair == nil || keypair.PrivateKey == "" {
		return nil, fmt.Errorf("%w: ssh keypair %q", ErrCreationFailed, name)
	}
	if _, err := ssh.ParseRawPrivateKey([]byte(keypair.PrivateKey)); err != nil {
		return nil, fmt.Errorf("%w: ssh keypair %q: invalid private key: %w", ErrCreationFailed, name, err)
	}

	if err := os.WriteFile(privateKeyPath, []byte(keypair.PrivateKey), privateKeyMode); err != nil {
		return nil, fmt.Errorf("failed to save private key: %w", err)
	}

	return keypair, nil
}

func (d *Deployer) publishLocalKey(ctx context.Context, name, privateKeyPath, publicKeyPath string) (*cloud.Keypair, error) {
	exists, err := fileExists(publicKeyPath)
	if err != nil {
		return nil, err
	}

	if !exists {
		if err := writePublicKey(privateKeyPath, publicKeyPath); err != nil {
			return nil, err
		}
	}

	publicKey, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}

	keypair, err := d.cloud.CreateKeypair(ctx, name, string(publicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to upload public ssh key %q: %w", name, err)
	}
	if keypair == nil {
		return nil, fmt.Errorf("%w: upload of public ssh key %q", ErrCreationFailed, name)
	}

	return keypair, nil
}

// writePublicKey derives the authorized_keys line from an unencrypted private key.
func writePublicKey(privateKeyPath, publicKeyPath string) error {
	privateKey, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	if err := os.WriteFile(publicKeyPath, ssh.MarshalAuthorizedKey(signer.PublicKey()), publicKeyMode); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	return nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return !info.IsDir(), nil
}
