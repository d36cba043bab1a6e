package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/go-chat-realtime/internal/config"
	"github.com/go-chat-realtime/internal/infrastructure/awscfg"
)

// Publisher is the subset of *sns.Client the notifier calls.
type Publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// CodeNotifier publishes verification codes to a topic. A subscriber (mail
// lambda, SES forwarder) owns the actual delivery.
type CodeNotifier struct {
	client   Publisher
	topicARN string
}

type codeMessage struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	endpoint := awscfg.Endpoint(cfg)
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	}), nil
}

func NewCodeNotifier(client Publisher, topicARN string) (*CodeNotifier, error) {
	if topicARN == "" {
		return nil, errors.New("sns topic arn is required")
	}
	return &CodeNotifier{client: client, topicARN: topicARN}, nil
}

func (n *CodeNotifier) NotifyCode(ctx context.Context, email, code string) error {
	body, err := json.Marshal(codeMessage{Email: email, Code: code})
	if err != nil {
		return err
	}
	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("verification_code"),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"email": {DataType: aws.String("String"), StringValue: aws.String(email)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
