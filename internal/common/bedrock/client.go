// internal/common/bedrock/client.go
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var (
	ErrCompletionTimeout = errors.New("COMPLETION_TIMEOUT")
	ErrCompletionFailed  = errors.New("COMPLETION_FAILED")
	ErrEmptyCompletion   = errors.New("EMPTY_COMPLETION")
)

// Options holds per-call generation parameters.
type Options struct {
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// Completer sends a prompt to the completion service and returns the
// generated text. Single text result per call, no streaming.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client wraps the Bedrock runtime Converse API.
type Client struct {
	api     converseAPI
	modelID string
}

// NewClient creates a Bedrock completion client for the given region/model.
func NewClient(ctx context.Context, region, modelID string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{
		api:     bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

// NewClientWithAPI injects a Converse implementation; used in tests.
func NewClientWithAPI(api converseAPI, modelID string) *Client {
	return &Client{api: api, modelID: modelID}
}

func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	inferenceConfig := &types.InferenceConfiguration{}
	if opts.MaxTokens > 0 {
		inferenceConfig.MaxTokens = aws.Int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		inferenceConfig.Temperature = aws.Float32(opts.Temperature)
	}
	if opts.TopP > 0 {
		inferenceConfig.TopP = aws.Float32(opts.TopP)
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: inferenceConfig,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrCompletionTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return "", ErrEmptyCompletion
	}

	block, ok := msg.Value.Content[0].(*types.ContentBlockMemberText)
	if !ok {
		return "", ErrEmptyCompletion
	}

	return strings.TrimSpace(block.Value), nil
}
