package compute

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

const tagName = "Name"

// EC2API is the subset of the EC2 client used by EC2Session.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

// EC2SessionConfig holds the resolved credential profile for an EC2 session.
type EC2SessionConfig struct {
	Profile         string
	ConfigFile      string // shared config file for the default chain; empty uses the SDK default
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// EC2Session implements Session on top of the AWS EC2 API.
type EC2Session struct {
	client EC2API
	region string
}

// NewEC2Session creates an EC2 session.
// If AccessKeyID is empty, uses the default AWS credential chain for the named profile.
func NewEC2Session(ctx context.Context, cfg EC2SessionConfig) (*EC2Session, error) {
	if cfg.AccessKeyID != "" {
		awsCfg := aws.Config{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		}
		return NewEC2SessionWithClient(ec2.NewFromConfig(awsCfg), cfg.Region), nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.ConfigFile != "" {
		opts = append(opts, awsconfig.WithSharedConfigFiles([]string{cfg.ConfigFile}))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ec2: failed to load AWS config: %w: %w", ErrProviderUnavailable, err)
	}
	return NewEC2SessionWithClient(ec2.NewFromConfig(awsCfg), awsCfg.Region), nil
}

// NewEC2SessionWithClient wraps an existing EC2 client.
func NewEC2SessionWithClient(client EC2API, region string) *EC2Session {
	return &EC2Session{client: client, region: region}
}

// Region returns the region the session talks to.
func (s *EC2Session) Region() string { return s.region }

func (s *EC2Session) Instance(id string) Handle {
	return &ec2Instance{client: s.client, id: id}
}

type ec2Instance struct {
	client EC2API
	id     string
}

func (i *ec2Instance) ID() string { return i.id }

func (i *ec2Instance) Observe(ctx context.Context) (PowerState, error) {
	inst, err := i.describe(ctx)
	if err != nil {
		return StateUnknown, err
	}
	if inst.State == nil {
		return StateUnknown, nil
	}
	return ParsePowerState(string(inst.State.Name)), nil
}

func (i *ec2Instance) DisplayName(ctx context.Context) (string, error) {
	inst, err := i.describe(ctx)
	if err != nil {
		return "", err
	}
	for _, tag := range inst.Tags {
		if aws.ToString(tag.Key) == tagName && aws.ToString(tag.Value) != "" {
			return aws.ToString(tag.Value), nil
		}
	}
	return i.id, nil
}

func (i *ec2Instance) IssueStart(ctx context.Context) error {
	_, err := i.client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{i.id},
	})
	if err != nil {
		return classify("StartInstances", i.id, err)
	}
	return nil
}

func (i *ec2Instance) IssueStop(ctx context.Context) error {
	_, err := i.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{i.id},
	})
	if err != nil {
		return classify("StopInstances", i.id, err)
	}
	return nil
}

func (i *ec2Instance) describe(ctx context.Context) (*ec2types.Instance, error) {
	result, err := i.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{i.id},
	})
	if err != nil {
		return nil, classify("DescribeInstances", i.id, err)
	}
	for _, res := range result.Reservations {
		for _, inst := range res.Instances {
			if aws.ToString(inst.InstanceId) == i.id {
				return &inst, nil
			}
		}
	}
	return nil, fmt.Errorf("ec2: instance %s: %w", i.id, ErrInstanceNotFound)
}

// classify maps an EC2 API failure onto ErrInstanceNotFound or ErrProviderUnavailable.
// Context cancellation stays detectable through the wrapped cause.
func classify(op, id string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed":
			return fmt.Errorf("ec2: %s failed for %s: %w: %w", op, id, ErrInstanceNotFound, err)
		}
	}
	return fmt.Errorf("ec2: %s failed for %s: %w: %w", op, id, ErrProviderUnavailable, err)
}
