package omics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	sdkomics "github.com/aws/aws-sdk-go-v2/service/omics"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	awslib "healthomics/internal/aws"
	"healthomics/internal/healthomics"
	"healthomics/internal/mcp"
	omicsanalyze "healthomics/toolsets/omics/analyze"
	omicsdiagnose "healthomics/toolsets/omics/diagnose"
	omicshelpers "healthomics/toolsets/omics/helpers"
	omicslogs "healthomics/toolsets/omics/logs"
	omicsruns "healthomics/toolsets/omics/runs"
	omicsstores "healthomics/toolsets/omics/stores"
	omicsworkflows "healthomics/toolsets/omics/workflows"
)

const toolsetID = "omics"

type Toolset struct {
	ctx    mcp.ToolsetContext
	load   awslib.ConfigLoader
	omics  *awslib.ClientCache[*sdkomics.Client]
	logs   *awslib.ClientCache[*cloudwatchlogs.Client]
	iam    *awslib.ClientCache[*iam.Client]
	ssm    *awslib.ClientCache[*ssm.Client]
	s3     *awslib.ClientCache[*s3.Client]
	region string
}

func New() *Toolset {
	return &Toolset{}
}

// NewWithLoader builds a toolset whose clients come from load instead of the
// shared AWS config chain.
func NewWithLoader(load awslib.ConfigLoader) *Toolset {
	return &Toolset{load: load}
}

func init() {
	mcp.MustRegisterToolset(toolsetID, func() mcp.Toolset {
		return New()
	})
}

func (t *Toolset) ID() string {
	return toolsetID
}

func (t *Toolset) Version() string {
	return "0.1.0"
}

func (t *Toolset) Init(ctx mcp.ToolsetContext) error {
	if ctx.Config == nil {
		return errors.New("missing config")
	}
	t.ctx = ctx
	t.region = strings.TrimSpace(ctx.Config.Region)
	profile := ctx.Config.Profile
	t.omics = awslib.NewClientCache(profile, t.load, func(cfg aws.Config) *sdkomics.Client { return sdkomics.NewFromConfig(cfg) })
	t.logs = awslib.NewClientCache(profile, t.load, func(cfg aws.Config) *cloudwatchlogs.Client { return cloudwatchlogs.NewFromConfig(cfg) })
	t.iam = awslib.NewClientCache(profile, t.load, func(cfg aws.Config) *iam.Client { return iam.NewFromConfig(cfg) })
	t.ssm = awslib.NewClientCache(profile, t.load, func(cfg aws.Config) *ssm.Client { return ssm.NewFromConfig(cfg) })
	t.s3 = awslib.NewClientCache(profile, t.load, func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) })
	return nil
}

func (t *Toolset) Register(reg mcp.Registry) error {
	groups := [][]mcp.ToolSpec{
		omicsworkflows.ToolSpecs(t.ctx, t.ID(), t.omicsClient),
		omicsruns.ToolSpecs(t.ctx, t.ID(), t.omicsClient),
		omicslogs.ToolSpecs(t.ctx, t.ID(), t.omicsClient, t.logsClient),
		omicsanalyze.ToolSpecs(t.ctx, t.ID(), t.omicsClient, t.logsClient),
		omicsdiagnose.ToolSpecs(t.ctx, t.ID(), t.omicsClient, t.logsClient, t.iamClient),
		omicsstores.ToolSpecs(t.ctx, t.ID(), t.omicsClient),
		omicshelpers.ToolSpecs(t.ctx, t.ID(), t.ssmClient, t.s3Client),
	}
	for _, specs := range groups {
		for _, tool := range specs {
			if err := reg.Add(tool); err != nil {
				return fmt.Errorf("register %s: %w", tool.Name, err)
			}
		}
	}
	return nil
}

// resolve applies the configured region when a tool call names none.
func (t *Toolset) resolve(region string) string {
	if region = strings.TrimSpace(region); region != "" {
		return region
	}
	return t.region
}

func (t *Toolset) omicsClient(ctx context.Context, region string) (healthomics.OmicsAPI, string, error) {
	client, used, err := t.omics.Get(ctx, t.resolve(region))
	if err != nil {
		return nil, "", err
	}
	return client, used, nil
}

func (t *Toolset) logsClient(ctx context.Context, region string) (healthomics.LogsAPI, string, error) {
	client, used, err := t.logs.Get(ctx, t.resolve(region))
	if err != nil {
		return nil, "", err
	}
	return client, used, nil
}

func (t *Toolset) iamClient(ctx context.Context, region string) (*iam.Client, string, error) {
	return t.iam.Get(ctx, t.resolve(region))
}

func (t *Toolset) ssmClient(ctx context.Context, region string) (omicshelpers.SSMAPI, string, error) {
	client, used, err := t.ssm.Get(ctx, t.resolve(region))
	if err != nil {
		return nil, "", err
	}
	return client, used, nil
}

func (t *Toolset) s3Client(ctx context.Context, region string) (omicshelpers.S3API, string, error) {
	client, used, err := t.s3.Get(ctx, t.resolve(region))
	if err != nil {
		return nil, "", err
	}
	return client, used, nil
}
