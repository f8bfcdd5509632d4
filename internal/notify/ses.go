// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const charsetUTF8 = "UTF-8"

// sesAPI is the subset of the SES v2 client used by SES.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends through Amazon Simple Email Service.
type SES struct {
	client sesAPI
}

// NewSES builds an SES notifier from the default AWS credential chain. An
// empty region defers to the chain's region.
func NewSES(ctx context.Context, region string) (*SES, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SES{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// Send delivers e as a simple HTML message.
func (s *SES) Send(ctx context.Context, e Email) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.From),
		Destination: &sestypes.Destination{
			ToAddresses: []string{e.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(e.Subject), Charset: aws.String(charsetUTF8)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(e.HTML), Charset: aws.String(charsetUTF8)},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send to %s: %w", e.To, err)
	}
	return aws.ToString(out.MessageId), nil
}
