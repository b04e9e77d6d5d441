package bedrock

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

const (
	// NovaReelModelID is the default text-to-video model.
	NovaReelModelID = "amazon.nova-reel-v1:0"

	// NovaReelPollInterval suits multi-minute generation jobs.
	NovaReelPollInterval = 30 * time.Second
)

// AsyncInvokeAPI is the subset of the bedrock-runtime client used here.
type AsyncInvokeAPI interface {
	StartAsyncInvoke(ctx context.Context, in *bedrockruntime.StartAsyncInvokeInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.StartAsyncInvokeOutput, error)
	GetAsyncInvoke(ctx context.Context, in *bedrockruntime.GetAsyncInvokeInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.GetAsyncInvokeOutput, error)
}

// NovaReel implements mediajob.Executor for text-to-video generation.
// The submission's configuration reference is the model ID.
type NovaReel struct {
	client AsyncInvokeAPI
}

var _ mediajob.Executor = (*NovaReel)(nil)

func NewNovaReel(client AsyncInvokeAPI) *NovaReel {
	return &NovaReel{client: client}
}

// novaReelInput is the TEXT_VIDEO model input document.
type novaReelInput struct {
	TaskType              string                `json:"taskType"`
	TextToVideoParams     textToVideoParams     `json:"textToVideoParams"`
	VideoGenerationConfig videoGenerationConfig `json:"videoGenerationConfig"`
}

type textToVideoParams struct {
	Text   string           `json:"text"`
	Images []referenceImage `json:"images,omitempty"`
}

type referenceImage struct {
	Format string      `json:"format"`
	Source imageSource `json:"source"`
}

// Bytes is base64-encoded by encoding/json.
type imageSource struct {
	Bytes []byte `json:"bytes"`
}

type videoGenerationConfig struct {
	DurationSeconds int    `json:"durationSeconds"`
	FPS             int    `json:"fps"`
	Dimension       string `json:"dimension"`
	Seed            *int64 `json:"seed,omitempty"`
}

func buildModelInput(p mediajob.GenerationParams) novaReelInput {
	in := novaReelInput{
		TaskType:          "TEXT_VIDEO",
		TextToVideoParams: textToVideoParams{Text: p.Prompt},
		VideoGenerationConfig: videoGenerationConfig{
			DurationSeconds: p.DurationSeconds,
			FPS:             p.FPS,
			Dimension:       p.Dimension,
			Seed:            p.Seed,
		},
	}
	if len(p.ReferenceImage) > 0 {
		in.TextToVideoParams.Images = []referenceImage{{
			Format: p.ReferenceImageFormat,
			Source: imageSource{Bytes: p.ReferenceImage},
		}}
	}
	return in
}

// Submit starts an asynchronous generation writing under the output prefix.
func (n *NovaReel) Submit(ctx context.Context, sub mediajob.Submission) (mediajob.InvocationHandle, error) {
	params, ok := sub.Params.(mediajob.GenerationParams)
	if !ok {
		return "", fmt.Errorf("nova reel cannot run %s jobs", sub.Kind)
	}

	in := &bedrockruntime.StartAsyncInvokeInput{
		ModelId:    aws.String(string(sub.Configuration)),
		ModelInput: document.NewLazyDocument(buildModelInput(params)),
		OutputDataConfig: &brtypes.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig{
			Value: brtypes.AsyncInvokeS3OutputDataConfig{S3Uri: aws.String(sub.OutputPrefix.URI())},
		},
	}
	if sub.ClientToken != "" {
		in.ClientRequestToken = aws.String(sub.ClientToken)
	}

	out, err := n.client.StartAsyncInvoke(ctx, in)
	if err != nil {
		return "", fmt.Errorf("StartAsyncInvoke: %w", err)
	}
	return mediajob.InvocationHandle(aws.ToString(out.InvocationArn)), nil
}

// GetStatus reports the invocation's status. The output reference is the
// invocation's own folder, which holds output.mp4 once the job completes.
func (n *NovaReel) GetStatus(ctx context.Context, handle mediajob.InvocationHandle) (mediajob.StatusReport, error) {
	out, err := n.client.GetAsyncInvoke(ctx, &bedrockruntime.GetAsyncInvokeInput{
		InvocationArn: aws.String(string(handle)),
	})
	if err != nil {
		return mediajob.StatusReport{}, fmt.Errorf("GetAsyncInvoke: %w", err)
	}
	report := mediajob.StatusReport{
		Status:       string(out.Status),
		ErrorMessage: aws.ToString(out.FailureMessage),
	}
	if s3cfg, ok := out.OutputDataConfig.(*brtypes.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig); ok {
		report.OutputRef = invocationFolder(aws.ToString(s3cfg.Value.S3Uri), handle)
	}
	return report, nil
}

// invocationFolder returns the per-invocation output folder. Depending on
// the API version the reported URI is either the submitted prefix or the
// invocation folder itself.
func invocationFolder(uri string, handle mediajob.InvocationHandle) string {
	if uri == "" {
		return ""
	}
	loc, err := storage.ParseLocation(uri)
	if err != nil {
		return uri
	}
	if loc.Base() == handle.ID() {
		return loc.URI()
	}
	return loc.Join(handle.ID() + "/").URI()
}
