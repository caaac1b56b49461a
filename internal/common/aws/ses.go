// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	sdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESClient struct {
	client *ses.Client
}

func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input)
}

// SendCompletionEmail sends a plain-text notification to a single
// recipient. Callers hand over addresses and text; the SES envelope
// stays here.
func (s *SESClient) SendCompletionEmail(ctx context.Context, from, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Source:      sdk.String(from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: sdk.String(subject)},
			Body:    &types.Body{Text: &types.Content{Data: sdk.String(body)}},
		},
	}
	if _, err := s.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send completion email to %s: %w", to, err)
	}
	return nil
}
