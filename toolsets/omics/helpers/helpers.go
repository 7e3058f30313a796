package omicshelpers

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"healthomics/internal/archive"
	"healthomics/internal/logging"
	"healthomics/internal/mcp"
)

const (
	defaultMainFile = "main.wdl"
	regionsPath     = "/aws/service/global-infrastructure/services/omics/regions"
	regionsCacheKey = "omics:supported-regions"
)

// fallbackRegions is served when the SSM parameter tree is unreachable or
// empty.
var fallbackRegions = []string{
	"ap-northeast-2",
	"ap-southeast-1",
	"eu-central-1",
	"eu-west-1",
	"eu-west-2",
	"il-central-1",
	"us-east-1",
	"us-west-2",
}

type SSMAPI interface {
	GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type SSMClientFunc func(ctx context.Context, region string) (SSMAPI, string, error)

type S3ClientFunc func(ctx context.Context, region string) (S3API, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	ssmClient SSMClientFunc
	s3Client  S3ClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, ssmClient SSMClientFunc, s3Client S3ClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, ssmClient: ssmClient, s3Client: s3Client, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "PackageWorkflow",
			Description: "Package workflow definition files into a base64 zip, optionally uploading it to S3.",
			ToolsetID:   toolsetID,
			InputSchema: schemaPackageWorkflow(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handlePackageWorkflow,
		},
		{
			Name:        "GetSupportedRegions",
			Description: "List the AWS regions where HealthOmics is available.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetSupportedRegions(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetSupportedRegions,
		},
	}
}

type packageWorkflowArgs struct {
	MainFileContent string            `json:"mainFileContent" validate:"required"`
	MainFileName    string            `json:"mainFileName"`
	AdditionalFiles map[string]string `json:"additionalFiles"`
	S3URI           string            `json:"s3Uri" validate:"omitempty,startswith=s3://"`
	Region          string            `json:"region"`
}

type supportedRegionsArgs struct {
	Region string `json:"region"`
}

func (s *Service) handlePackageWorkflow(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args packageWorkflowArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	mainName := strings.TrimSpace(args.MainFileName)
	if mainName == "" {
		mainName = defaultMainFile
	}
	if _, dup := args.AdditionalFiles[mainName]; dup {
		err := mcp.Invalid("additionalFiles must not repeat the main file %q", mainName)
		return errorResult(err), err
	}
	var bucket, key string
	if args.S3URI != "" {
		var err error
		if bucket, key, err = parseS3URI(args.S3URI); err != nil {
			return errorResult(err), err
		}
		if s.ctx.Config != nil && s.ctx.Config.ReadOnly {
			err := mcp.Invalid("s3Uri upload is disabled in read-only mode")
			return errorResult(err), err
		}
	}
	data, err := archive.PackWorkflow(mainName, []byte(args.MainFileContent), args.AdditionalFiles)
	if err != nil {
		err = mcp.Invalid("package workflow: %v", err)
		return errorResult(err), err
	}
	files := make([]string, 0, len(args.AdditionalFiles)+1)
	for name := range args.AdditionalFiles {
		files = append(files, name)
	}
	sort.Strings(files)
	out := map[string]any{
		"zipBase64": archive.EncodeBase64(data),
		"sizeBytes": len(data),
		"mainFile":  mainName,
		"files":     append([]string{mainName}, files...),
	}
	if bucket == "" {
		return mcp.ToolResult{Data: out}, nil
	}

	client, usedRegion, err := s.s3Client(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("PutObject", err)
	}
	put, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return errorResult(err), mcp.Wrap("PutObject", err)
	}
	uri := "s3://" + bucket + "/" + key
	out["s3Uri"] = uri
	if etag := strings.Trim(aws.ToString(put.ETag), `"`); etag != "" {
		out["eTag"] = etag
	}
	s.logger().Info("uploaded workflow bundle", "uri", uri, "bytes", len(data))
	return mcp.ToolResult{Data: out, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{uri}}}, nil
}

func (s *Service) handleGetSupportedRegions(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args supportedRegionsArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	load := func() (any, error) { return s.lookupRegions(ctx, args.Region) }

	var (
		value any
		hit   bool
		err   error
	)
	if ttl, ok := s.regionsTTL(); ok && s.ctx.Cache != nil {
		value, hit, err = s.ctx.Cache.Remember(regionsCacheKey, ttl, load)
	} else {
		value, err = load()
	}
	if err != nil {
		s.logger().Warn("supported regions lookup failed, using built-in list", "err", err)
		regions := append([]string(nil), fallbackRegions...)
		return mcp.ToolResult{Data: map[string]any{
			"regions": regions,
			"count":   len(regions),
			"source":  "fallback",
			"note":    "Using built-in region list due to error: " + err.Error(),
		}}, nil
	}
	regions := value.([]string)
	return mcp.ToolResult{Data: map[string]any{
		"regions": regions,
		"count":   len(regions),
		"source":  "ssm",
		"cached":  hit,
	}}, nil
}

func (s *Service) lookupRegions(ctx context.Context, region string) ([]string, error) {
	client, _, err := s.ssmClient(ctx, region)
	if err != nil {
		return nil, err
	}
	var regions []string
	pager := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{Path: aws.String(regionsPath)})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mcp.Wrap("GetParametersByPath", err)
		}
		for _, param := range page.Parameters {
			if value := strings.TrimSpace(aws.ToString(param.Value)); value != "" {
				regions = append(regions, value)
			}
		}
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("no parameters under %s", regionsPath)
	}
	sort.Strings(regions)
	return regions, nil
}

// regionsTTL reports whether region lookups may be cached and for how long.
func (s *Service) regionsTTL() (time.Duration, bool) {
	if s.ctx.Config == nil || s.ctx.Config.Cache.RegionsTTLSeconds < 0 {
		return 0, false
	}
	return time.Duration(s.ctx.Config.Cache.RegionsTTLSeconds) * time.Second, true
}

func (s *Service) logger() logging.Logger {
	if s.ctx.Logger == nil {
		return logging.Discard()
	}
	return s.ctx.Logger
}

func parseS3URI(uri string) (string, string, error) {
	rest := strings.TrimPrefix(strings.TrimSpace(uri), "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", mcp.Invalid("s3Uri must look like s3://bucket/key.zip, got %q", uri)
	}
	return bucket, key, nil
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ToolResult{Data: map[string]any{"error": err.Error()}}
}
