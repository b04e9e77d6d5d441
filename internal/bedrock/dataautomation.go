package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	bda "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	bdatypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation/types"
	bdart "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	bdarttypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
)

// ProjectAPI is the subset of the Data Automation control-plane client used here.
type ProjectAPI interface {
	CreateDataAutomationProject(ctx context.Context, in *bda.CreateDataAutomationProjectInput, opts ...func(*bda.Options)) (*bda.CreateDataAutomationProjectOutput, error)
	ListDataAutomationProjects(ctx context.Context, in *bda.ListDataAutomationProjectsInput, opts ...func(*bda.Options)) (*bda.ListDataAutomationProjectsOutput, error)
}

// InvocationAPI is the subset of the Data Automation runtime client used here.
type InvocationAPI interface {
	InvokeDataAutomationAsync(ctx context.Context, in *bdart.InvokeDataAutomationAsyncInput, opts ...func(*bdart.Options)) (*bdart.InvokeDataAutomationAsyncOutput, error)
	GetDataAutomationStatus(ctx context.Context, in *bdart.GetDataAutomationStatusInput, opts ...func(*bdart.Options)) (*bdart.GetDataAutomationStatusOutput, error)
}

// DataAutomation implements mediajob.ConfigurationAPI and mediajob.Executor
// for video analysis. Configurations are Data Automation projects.
type DataAutomation struct {
	projects   ProjectAPI
	runtime    InvocationAPI
	profileARN string
}

var (
	_ mediajob.ConfigurationAPI = (*DataAutomation)(nil)
	_ mediajob.Executor         = (*DataAutomation)(nil)
)

// NewDataAutomation builds the adapter. profileARN is the Data Automation
// profile every invocation runs under.
func NewDataAutomation(projects ProjectAPI, runtime InvocationAPI, profileARN string) *DataAutomation {
	return &DataAutomation{projects: projects, runtime: runtime, profileARN: profileARN}
}

// CreateConfiguration creates a project with a video standard output
// configuration built from spec.
func (d *DataAutomation) CreateConfiguration(ctx context.Context, name string, spec mediajob.CapabilitySpec) (mediajob.ConfigurationRef, error) {
	in := &bda.CreateDataAutomationProjectInput{
		ProjectName:                 aws.String(name),
		ProjectStage:                bdatypes.DataAutomationProjectStage(spec.Stage),
		StandardOutputConfiguration: standardOutput(spec),
	}
	if spec.Description != "" {
		in.ProjectDescription = aws.String(spec.Description)
	}

	out, err := d.projects.CreateDataAutomationProject(ctx, in)
	if err != nil {
		if isConflict(err) {
			return "", fmt.Errorf("create project %s: %w", name, mediajob.ErrNameConflict)
		}
		return "", fmt.Errorf("CreateDataAutomationProject %s: %w", name, err)
	}
	return mediajob.ConfigurationRef(aws.ToString(out.ProjectArn)), nil
}

func standardOutput(spec mediajob.CapabilitySpec) *bdatypes.StandardOutputConfiguration {
	category := &bdatypes.VideoExtractionCategory{State: state(spec.Category)}
	for _, t := range spec.CategoryTypes {
		category.Types = append(category.Types, bdatypes.VideoExtractionCategoryType(t))
	}

	video := &bdatypes.VideoStandardOutputConfiguration{
		Extraction: &bdatypes.VideoStandardExtraction{
			Category:    category,
			BoundingBox: &bdatypes.VideoBoundingBox{State: state(spec.BoundingBox)},
		},
	}
	if len(spec.GenerativeFields) > 0 {
		gen := &bdatypes.VideoStandardGenerativeField{State: bdatypes.StateEnabled}
		for _, f := range spec.GenerativeFields {
			gen.Types = append(gen.Types, bdatypes.VideoStandardGenerativeFieldType(f))
		}
		video.GenerativeField = gen
	}
	return &bdatypes.StandardOutputConfiguration{Video: video}
}

func state(enabled bool) bdatypes.State {
	if enabled {
		return bdatypes.StateEnabled
	}
	return bdatypes.StateDisabled
}

// ListConfigurations lists every project, following pagination.
func (d *DataAutomation) ListConfigurations(ctx context.Context) ([]mediajob.ConfigurationSummary, error) {
	var (
		out   []mediajob.ConfigurationSummary
		token *string
		pages int
	)
	for {
		resp, err := d.projects.ListDataAutomationProjects(ctx, &bda.ListDataAutomationProjectsInput{NextToken: token})
		if err != nil {
			return nil, fmt.Errorf("ListDataAutomationProjects: %w", err)
		}
		pages++
		for _, p := range resp.Projects {
			out = append(out, mediajob.ConfigurationSummary{
				Name: aws.ToString(p.ProjectName),
				Ref:  mediajob.ConfigurationRef(aws.ToString(p.ProjectArn)),
			})
		}
		if aws.ToString(resp.NextToken) == "" {
			break
		}
		token = resp.NextToken
	}
	log.Debug().Int("projects", len(out)).Int("pages", pages).Msg("Listed Data Automation projects")
	return out, nil
}

// Submit starts an analysis invocation of the project on the input video.
func (d *DataAutomation) Submit(ctx context.Context, sub mediajob.Submission) (mediajob.InvocationHandle, error) {
	params, ok := sub.Params.(mediajob.AnalysisParams)
	if !ok {
		return "", fmt.Errorf("data automation cannot run %s jobs", sub.Kind)
	}
	if d.profileARN == "" {
		return "", fmt.Errorf("data automation profile ARN is not configured")
	}

	in := &bdart.InvokeDataAutomationAsyncInput{
		InputConfiguration:  &bdarttypes.InputConfiguration{S3Uri: aws.String(sub.Input.URI())},
		OutputConfiguration: &bdarttypes.OutputConfiguration{S3Uri: aws.String(sub.OutputPrefix.URI())},
		DataAutomationConfiguration: &bdarttypes.DataAutomationConfiguration{
			DataAutomationProjectArn: aws.String(string(sub.Configuration)),
			Stage:                    bdarttypes.DataAutomationStage(params.Stage),
		},
		DataAutomationProfileArn: aws.String(d.profileARN),
	}
	if sub.ClientToken != "" {
		in.ClientToken = aws.String(sub.ClientToken)
	}

	out, err := d.runtime.InvokeDataAutomationAsync(ctx, in)
	if err != nil {
		return "", fmt.Errorf("InvokeDataAutomationAsync: %w", err)
	}
	return mediajob.InvocationHandle(aws.ToString(out.InvocationArn)), nil
}

// GetStatus reports the invocation's status. The output reference is the
// job manifest URI once the job has succeeded.
func (d *DataAutomation) GetStatus(ctx context.Context, handle mediajob.InvocationHandle) (mediajob.StatusReport, error) {
	out, err := d.runtime.GetDataAutomationStatus(ctx, &bdart.GetDataAutomationStatusInput{
		InvocationArn: aws.String(string(handle)),
	})
	if err != nil {
		return mediajob.StatusReport{}, fmt.Errorf("GetDataAutomationStatus: %w", err)
	}
	report := mediajob.StatusReport{
		Status:       string(out.Status),
		ErrorCode:    aws.ToString(out.ErrorType),
		ErrorMessage: aws.ToString(out.ErrorMessage),
	}
	if out.OutputConfiguration != nil {
		report.OutputRef = aws.ToString(out.OutputConfiguration.S3Uri)
	}
	return report, nil
}

// DefaultVideoCapabilities enables category extraction, bounding boxes and
// the summary generative fields.
func DefaultVideoCapabilities() mediajob.CapabilitySpec {
	return mediajob.CapabilitySpec{
		Description:      "Video analysis with summaries, transcripts and detected text",
		Category:         true,
		CategoryTypes:    []string{"TRANSCRIPT", "TEXT_DETECTION", "CONTENT_MODERATION", "LOGOS"},
		BoundingBox:      true,
		GenerativeFields: []string{"VIDEO_SUMMARY", "CHAPTER_SUMMARY", "IAB"},
		Stage:            mediajob.StageLive,
	}
}
