package transcoder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/google/uuid"
)

// UnknownJobID is recorded when the service accepts a job but the
// response carries no identifier. The record is still written so an
// audit trail exists even for a malformed response.
const UnknownJobID = "UNKNOWN"

// JobSpec describes one transcode: a single input object and the
// destination prefix for the rendition.
type JobSpec struct {
	InputURI       string
	DestinationURI string
}

// Submitter is the only contract the tracker requires from the external
// transcoding service: accept a job description, return a job
// identifier, notify completion asynchronously through the event bus.
type Submitter interface {
	Submit(ctx context.Context, spec JobSpec) (string, error)
}

// MediaConvertAPI is the subset of the MediaConvert client used here.
type MediaConvertAPI interface {
	CreateJob(ctx context.Context, params *mediaconvert.CreateJobInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.CreateJobOutput, error)
}

// MediaConvert submits jobs to AWS Elemental MediaConvert.
type MediaConvert struct {
	api     MediaConvertAPI
	roleARN string
	profile Profile
	logger  *slog.Logger
}

// Compile-time check that MediaConvert implements Submitter.
var _ Submitter = (*MediaConvert)(nil)

// NewMediaConvert creates a submitter that runs jobs under the given
// service role with a fixed encoding profile.
func NewMediaConvert(api MediaConvertAPI, roleARN string, profile Profile, logger *slog.Logger) *MediaConvert {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaConvert{api: api, roleARN: roleARN, profile: profile, logger: logger}
}

// Submit creates one MediaConvert job for spec and returns the assigned
// job identifier, or UnknownJobID when the response lacks one.
func (m *MediaConvert) Submit(ctx context.Context, spec JobSpec) (string, error) {
	out, err := m.api.CreateJob(ctx, &mediaconvert.CreateJobInput{
		Role:               aws.String(m.roleARN),
		ClientRequestToken: aws.String(uuid.New().String()),
		Settings:           m.jobSettings(spec),
	})
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	if out.Job == nil || out.Job.Id == nil || *out.Job.Id == "" {
		m.logger.Warn("job accepted without an id", "input", spec.InputURI)
		return UnknownJobID, nil
	}
	return *out.Job.Id, nil
}

// jobSettings builds the fixed single-rendition job description: one
// file input, one FILE_GROUP output group writing MP4/H.264 with QVBR
// rate control under the destination prefix.
func (m *MediaConvert) jobSettings(spec JobSpec) *types.JobSettings {
	return &types.JobSettings{
		TimecodeConfig: &types.TimecodeConfig{
			Source: types.TimecodeSourceZerobased,
		},
		Inputs: []types.Input{
			{FileInput: aws.String(spec.InputURI)},
		},
		OutputGroups: []types.OutputGroup{
			{
				OutputGroupSettings: &types.OutputGroupSettings{
					Type: types.OutputGroupTypeFileGroupSettings,
					FileGroupSettings: &types.FileGroupSettings{
						Destination: aws.String(spec.DestinationURI),
					},
				},
				Outputs: []types.Output{
					{
						ContainerSettings: &types.ContainerSettings{
							Container:   types.ContainerTypeMp4,
							Mp4Settings: &types.Mp4Settings{},
						},
						VideoDescription: &types.VideoDescription{
							CodecSettings: &types.VideoCodecSettings{
								Codec: types.VideoCodecH264,
								H264Settings: &types.H264Settings{
									RateControlMode: types.H264RateControlModeQvbr,
									QvbrSettings: &types.H264QvbrSettings{
										QvbrQualityLevel: aws.Int32(m.profile.QVBRQualityLevel),
									},
									MaxBitrate:        aws.Int32(m.profile.MaxBitrate),
									SceneChangeDetect: types.H264SceneChangeDetectTransitionDetection,
								},
							},
						},
					},
				},
			},
		},
	}
}
