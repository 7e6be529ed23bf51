package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	if out, _ := args.Get(0).(*sns.PublishOutput); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSendSMS_PublishesTransactional(t *testing.T) {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		attr, ok := in.MessageAttributes["AWS.SNS.SMS.SMSType"]
		return aws.ToString(in.PhoneNumber) == "+15551234" &&
			aws.ToString(in.Message) == "code 123456" &&
			ok && aws.ToString(attr.StringValue) == "Transactional"
	})).Return(&sns.PublishOutput{MessageId: aws.String("m1")}, nil)

	s := &sender{client: p}
	require.NoError(t, s.SendSMS(context.Background(), "+15551234", "code 123456"))
	p.AssertExpectations(t)
}

func TestSendSMS_WrapsError(t *testing.T) {
	p := &mockPublisher{}
	boom := errors.New("throttled")
	p.On("Publish", mock.Anything, mock.Anything).Return(nil, boom)

	s := &sender{client: p}
	err := s.SendSMS(context.Background(), "+1", "x")
	assert.ErrorIs(t, err, boom)
}
