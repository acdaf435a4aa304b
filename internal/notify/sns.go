package notify

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/sirupsen/logrus"
)

// SNSSender sends SMS through AWS SNS direct-to-phone publishing.
type SNSSender struct {
	client snsiface.SNSAPI
	logger logrus.FieldLogger
}

// NewSNSSender builds a sender for region. An empty region yields an
// unconfigured sender that refuses every message.
func NewSNSSender(region string, logger logrus.FieldLogger) (*SNSSender, error) {
	s := &SNSSender{logger: logger.WithField("sender", "sns")}
	if region == "" {
		return s, nil
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}
	s.client = sns.New(sess)
	return s, nil
}

// NewSNSSenderWithClient wraps an existing SNS client.
func NewSNSSenderWithClient(client snsiface.SNSAPI, logger logrus.FieldLogger) *SNSSender {
	return &SNSSender{client: client, logger: logger.WithField("sender", "sns")}
}

// Send publishes the message to the phone number. See Sender.
func (s *SNSSender) Send(ctx context.Context, to, body string) bool {
	if s.client == nil {
		s.logger.WithField("to", to).Warn("sns not configured; skipping sms")
		return false
	}

	out, err := s.client.PublishWithContext(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{"to": to, "error": err}).Warn("failed to send sms")
		return false
	}

	s.logger.WithFields(logrus.Fields{"to": to, "message_id": aws.StringValue(out.MessageId)}).Info("sms sent")
	return true
}
