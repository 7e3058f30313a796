package ecr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkecr "github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	awslib "healthomics/internal/aws"
	"healthomics/internal/mcp"
	ecrimages "healthomics/toolsets/ecr/images"
)

const toolsetID = "ecr"

type Toolset struct {
	ctx    mcp.ToolsetContext
	load   awslib.ConfigLoader
	ecr    *awslib.ClientCache[*sdkecr.Client]
	sts    *awslib.ClientCache[*sts.Client]
	region string
}

func New() *Toolset {
	return &Toolset{}
}

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
	t.ecr = awslib.NewClientCache(ctx.Config.Profile, t.load, func(cfg aws.Config) *sdkecr.Client { return sdkecr.NewFromConfig(cfg) })
	t.sts = awslib.NewClientCache(ctx.Config.Profile, t.load, func(cfg aws.Config) *sts.Client { return sts.NewFromConfig(cfg) })
	return nil
}

func (t *Toolset) Register(reg mcp.Registry) error {
	for _, tool := range ecrimages.ToolSpecs(t.ctx, t.ID(), t.ecrClient, t.stsClient) {
		if err := reg.Add(tool); err != nil {
			return fmt.Errorf("register %s: %w", tool.Name, err)
		}
	}
	return nil
}

// ecrClient is keyed by the image's own region, which the URI always names.
func (t *Toolset) ecrClient(ctx context.Context, region string) (ecrimages.ECRAPI, string, error) {
	client, used, err := t.ecr.Get(ctx, region)
	if err != nil {
		return nil, "", err
	}
	return client, used, nil
}

func (t *Toolset) stsClient(ctx context.Context, region string) (ecrimages.STSAPI, string, error) {
	if region = strings.TrimSpace(region); region == "" {
		region = t.region
	}
	client, used, err := t.sts.Get(ctx, region)
	if err != nil {
		return nil, "", err
	}
	return client, used, nil
}
