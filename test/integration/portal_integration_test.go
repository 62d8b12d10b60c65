//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/fivetwenty-io/vra/internal/action"
	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/stretchr/testify/suite"
)

// PortalIntegrationTestSuite exercises the read-only portal calls against a
// live vRA.
type PortalIntegrationTestSuite struct {
	suite.Suite

	config *TestConfig
	client *client.Client
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *PortalIntegrationTestSuite) SetupSuite() {
	s.config = LoadTestConfig()
	s.config.SkipIfMissingConfig(s.T())

	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)

	c, err := s.config.NewClient(s.ctx)
	s.Require().NoError(err)

	_, err = c.Login(s.ctx, s.config.Tenant, s.config.Username, s.config.Password)
	s.Require().NoError(err, "login should succeed")

	s.client = c
}

func (s *PortalIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.NoError(s.client.Logout(s.ctx))
	}

	if s.cancel != nil {
		s.cancel()
	}
}

func (s *PortalIntegrationTestSuite) TestSession() {
	s.Require().NoError(s.client.Validate(s.ctx))

	info, err := s.client.Session(s.ctx)
	s.Require().NoError(err)
	s.Equal(s.config.Tenant, info.Tenant)
}

func (s *PortalIntegrationTestSuite) TestBusinessGroups() {
	groups, err := s.client.Subtenants(s.ctx)
	s.Require().NoError(err)

	for _, group := range groups {
		s.NotEmpty(group.ID)
	}
}

func (s *PortalIntegrationTestSuite) TestCatalog() {
	catalog := s.client.Catalog()
	s.Require().NoError(catalog.Refresh(s.ctx))

	for _, item := range catalog.Rows() {
		s.NotEmpty(item.ID())
		s.NotEmpty(item.Name())
	}

	if rows := catalog.Rows(); len(rows) > 0 {
		detail, err := rows[0].Detail(s.ctx)
		s.Require().NoError(err)
		s.NotNil(detail)
	}
}

func (s *PortalIntegrationTestSuite) TestRequestsNewestFirst() {
	requests := s.client.Requests()
	s.Require().NoError(requests.Refresh(s.ctx))

	rows := requests.Rows()
	for i := 1; i < len(rows); i++ {
		s.GreaterOrEqual(rows[i-1].Request().RequestNumber, rows[i].Request().RequestNumber)
	}
}

func (s *PortalIntegrationTestSuite) TestMachineActionsDeclined() {
	machines := s.client.Machines()
	s.Require().NoError(machines.Refresh(s.ctx))

	for _, machine := range machines.Rows() {
		if _, ok := machine.Actions().Get(action.Reboot); !ok {
			continue
		}

		err := machine.Run(s.ctx, action.Reboot, nil)
		s.ErrorIs(err, action.ErrConfirmationDeclined, "a declined prompt must not reach the portal")

		return
	}

	s.T().Log("no machine offers Reboot")
}

func TestPortalIntegration(t *testing.T) {
	suite.Run(t, new(PortalIntegrationTestSuite))
}
