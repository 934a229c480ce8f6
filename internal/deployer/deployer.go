// Package deployer reconciles networks and servers described in the
// configuration document with the cloud, one named object at a time.
//
// Every operation returns a models.Result instead of an error: a failure of
// one object never stops the others.
package deployer

import (
	"errors"
	"time"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServerReadyTimeout  = 120 * time.Second
	DefaultServerDeleteTimeout = 300 * time.Second
)

var (
	ErrUnknownObject  = errors.New("there is no entry in the configuration file")
	ErrNotFound       = errors.New("does not exist")
	ErrCreationFailed = errors.New("creation failed")
	ErrFileMissing    = errors.New("file does not exist")
	ErrSubnetExists   = errors.New("subnet with the same name already exists")
)

type Config struct {
	Document            *models.Document
	SSHDir              string
	ServerReadyTimeout  time.Duration
	ServerDeleteTimeout time.Duration
	Logger              logrus.FieldLogger
}

type Deployer struct {
	cloud         cloud.Gateway
	document      *models.Document
	sshDir        string
	readyTimeout  time.Duration
	deleteTimeout time.Duration
	log           logrus.FieldLogger
}

func New(gateway cloud.Gateway, cfg Config) *Deployer {
	d := &Deployer{
		cloud:         gateway,
		document:      cfg.Document,
		sshDir:        cfg.SSHDir,
		readyTimeout:  cfg.ServerReadyTimeout,
		deleteTimeout: cfg.ServerDeleteTimeout,
		log:           cfg.Logger,
	}

	if d.document == nil {
		d.document = &models.Document{}
	}
	if d.readyTimeout == 0 {
		d.readyTimeout = DefaultServerReadyTimeout
	}
	if d.deleteTimeout == 0 {
		d.deleteTimeout = DefaultServerDeleteTimeout
	}
	if d.log == nil {
		d.log = logrus.StandardLogger()
	}

	return d
}
