package deployer

import (
	"testing"

	"github.com/hogwarts-cloud/stackctl/internal/cloud"
	"github.com/hogwarts-cloud/stackctl/internal/cloud/fakes"
	"github.com/hogwarts-cloud/stackctl/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func testDocument() *models.Document {
	return &models.Document{
		Networks: []models.Network{
			{Name: "n1", CIDR: "10.0.0.0/24"},
		},
		Servers: []models.Server{
			{
				Name:     "s1",
				Image:    "img",
				Flavor:   "f1",
				Networks: []models.NetworkAttachment{{Name: "n1"}},
			},
		},
	}
}

func testGateway() *fakes.Gateway {
	gateway := fakes.New()
	gateway.Images = []cloud.Image{{ID: "img-id", Name: "img"}}
	gateway.Flavors = []cloud.Flavor{{ID: "f1-id", Name: "f1"}}
	return gateway
}

func newTestDeployer(t *testing.T, gateway cloud.Gateway, document *models.Document) *Deployer {
	t.Helper()

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	return New(gateway, Config{
		Document: document,
		SSHDir:   t.TempDir(),
		Logger:   logger,
	})
}
