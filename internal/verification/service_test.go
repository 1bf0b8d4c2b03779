package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kyc-gateway/internal/provider"
	dErrors "kyc-gateway/pkg/domain-errors"
)

type ServiceSuite struct {
	ManagerSuite
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ManagerSuite.SetupTest()
	svc, err := NewService(s.gateway, s.testConfig())
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TestRegistry() {
	s.Run("nil gateway is rejected", func() {
		_, err := NewService(nil, Config{})
		s.Error(err)
	})

	s.Run("start requires a registration id", func() {
		_, err := s.service.Start(context.Background(), "", validApplicant())
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})

	s.Run("operations on an unknown registration return not found", func() {
		for _, op := range []func(context.Context, string) (State, error){
			s.service.Retry, s.service.Cancel, s.service.Reset,
			s.service.Status, s.service.CheckStatus,
		} {
			_, err := op(context.Background(), "reg-missing")
			s.Require().Error(err)
			s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
		}
	})

	s.Run("start then status round-trips through the same manager", func() {
		s.expectCreateSession()
		st, err := s.service.Start(context.Background(), testRegistrationID, validApplicant())
		s.Require().NoError(err)
		s.Equal(StatusManualVerification, st.Status)

		st, err = s.service.Status(context.Background(), testRegistrationID)
		s.Require().NoError(err)
		s.Equal(StatusManualVerification, st.Status)
		s.Equal(testSessionID, st.SessionID)
	})
}

func (s *ServiceSuite) TestHandleWebhook() {
	s.Run("routes by vendor data when present", func() {
		s.expectCreateSession()
		_, err := s.service.Start(context.Background(), testRegistrationID, validApplicant())
		s.Require().NoError(err)

		st, err := s.service.HandleWebhook(context.Background(), provider.WebhookPayload{
			SessionID:  testSessionID,
			Status:     "Approved",
			VendorData: testRegistrationID,
			Decision:   approvedDecision(),
		})
		s.Require().NoError(err)
		s.Equal(StatusCompleted, st.Status)
	})

	s.Run("falls back to session id lookup", func() {
		const otherSessionID = "8b1d6e4f-2c3a-4d5e-8f90-1a2b3c4d5e6f"
		s.gateway.EXPECT().
			CreateSession(gomock.Any(), gomock.Any()).
			Return(&provider.Session{
				SessionID:       otherSessionID,
				SessionNumber:   43763,
				VerificationURL: "https://verify.example.com/v/43763",
				Status:          "Not Started",
			}, nil)
		_, err := s.service.Start(context.Background(), "reg-other", validApplicant())
		s.Require().NoError(err)

		st, err := s.service.HandleWebhook(context.Background(), provider.WebhookPayload{
			SessionID: otherSessionID,
			Status:    "Processing",
		})
		s.Require().NoError(err)
		s.Equal(StatusProcessing, st.Status)
	})

	s.Run("unknown session is rejected", func() {
		_, err := s.service.HandleWebhook(context.Background(), provider.WebhookPayload{
			SessionID: "nope",
			Status:    "Approved",
		})
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}
