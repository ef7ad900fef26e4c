package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/chunksync/chunksync/internal/logging"
)

// sqsAPI is the subset of the SQS client the poller uses.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// s3Event is the S3 notification envelope delivered through SQS. Only the
// object key is of interest.
type s3Event struct {
	Records []struct {
		S3 struct {
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// Poller consumes object-created events from an SQS queue and feeds them to
// the handler. Delivery is at-least-once and unordered; the handler and the
// complete-time reconciliation are built for that.
type Poller struct {
	client   sqsAPI
	queueURL string
	handler  *Handler
	logger   logging.Logger
	waitTime int32
}

func NewPoller(client sqsAPI, queueURL string, waitTime time.Duration, handler *Handler, logger logging.Logger) *Poller {
	return &Poller{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		logger:   logger.With("module", "sqs_poller"),
		waitTime: int32(waitTime.Seconds()),
	}
}

// Run long-polls the queue until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info(ctx, "queue poller started", "queue", p.queueURL)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "queue poller stopped")
			return
		default:
		}

		out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(p.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     p.waitTime,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Error(ctx, "receiving messages", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, msg := range out.Messages {
			p.handleMessage(ctx, aws.ToString(msg.Body))

			// Delete unconditionally. A poison message would otherwise loop
			// forever, and a dropped event is recovered by reconciliation.
			_, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(p.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				p.logger.Error(ctx, "deleting message", "error", err)
			}
		}
	}
}

func (p *Poller) handleMessage(ctx context.Context, body string) {
	var event s3Event
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		p.logger.Error(ctx, "undecodable event body", "error", err)
		return
	}
	for _, record := range event.Records {
		if err := p.handler.OnObjectCreated(ctx, record.S3.Object.Key); err != nil {
			p.logger.Error(ctx, "handling object created event",
				"key", record.S3.Object.Key, "error", err)
		}
	}
}

// NewSQSClient builds an SQS client with static credentials. BaseEndpoint
// supports queue emulators alongside the real service.
func NewSQSClient(ctx context.Context, region, accessKey, secretKey, baseEndpoint string) (*sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
	})
	return client, nil
}
