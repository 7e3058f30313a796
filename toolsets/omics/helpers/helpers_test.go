package omicshelpers

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"healthomics/internal/archive"
	"healthomics/internal/aws/awstest"
	"healthomics/internal/cache"
	"healthomics/internal/config"
	"healthomics/internal/mcp"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{ETag: aws.String(`"abc123"`)}, nil
}

func newService(t *testing.T, cfg *config.Config, ssmRT *awstest.TargetRoundTripper, s3Client *fakeS3) *Service {
	t.Helper()
	return &Service{
		ctx: mcp.ToolsetContext{Config: cfg, Cache: cache.NewStore()},
		ssmClient: func(context.Context, string) (SSMAPI, string, error) {
			if ssmRT == nil {
				return nil, "", errors.New("no credentials")
			}
			return ssm.NewFromConfig(awstest.Config(t, ssmRT)), "us-east-1", nil
		},
		s3Client: func(context.Context, string) (S3API, string, error) {
			return s3Client, "us-east-1", nil
		},
	}
}

func TestPackageWorkflow(t *testing.T) {
	cfg := config.DefaultConfig()
	svc := newService(t, &cfg, nil, &fakeS3{})
	result, err := svc.handlePackageWorkflow(context.Background(), mcp.ToolRequest{Arguments: map[string]any{
		"mainFileContent": "workflow hello {}",
		"additionalFiles": map[string]any{"tasks/align.wdl": "task align {}", "params.json": "{}"},
	}})
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	data := result.Data.(map[string]any)
	if data["mainFile"] != "main.wdl" {
		t.Fatalf("expected default main file, got %v", data["mainFile"])
	}
	raw, err := archive.DecodeBase64(data["zipBase64"].(string))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	files, err := archive.Unpack(raw)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	got := make([]string, 0, len(files))
	for _, f := range files {
		got = append(got, f.Name+"="+string(f.Content))
	}
	want := "main.wdl=workflow hello {},params.json={},tasks/align.wdl=task align {}"
	if strings.Join(got, ",") != want {
		t.Fatalf("unexpected bundle contents %v", got)
	}
	if _, ok := data["s3Uri"]; ok {
		t.Fatalf("no upload was requested")
	}
}

func TestPackageWorkflowUpload(t *testing.T) {
	cfg := config.DefaultConfig()
	fake := &fakeS3{}
	svc := newService(t, &cfg, nil, fake)
	result, err := svc.handlePackageWorkflow(context.Background(), mcp.ToolRequest{Arguments: map[string]any{
		"mainFileContent": "nextflow.enable.dsl=2",
		"mainFileName":    "main.nf",
		"s3Uri":           "s3://bundles/wf/v1.zip",
	}})
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	data := result.Data.(map[string]any)
	if len(fake.inputs) != 1 || aws.ToString(fake.inputs[0].Bucket) != "bundles" || aws.ToString(fake.inputs[0].Key) != "wf/v1.zip" {
		t.Fatalf("unexpected upload %+v", fake.inputs)
	}
	if data["s3Uri"] != "s3://bundles/wf/v1.zip" || data["eTag"] != "abc123" {
		t.Fatalf("unexpected upload result %v", data)
	}
	if decoded, _ := archive.DecodeBase64(data["zipBase64"].(string)); string(decoded) != fake.bodies[0] {
		t.Fatalf("uploaded body differs from returned bundle")
	}
}

func TestPackageWorkflowUploadError(t *testing.T) {
	cfg := config.DefaultConfig()
	svc := newService(t, &cfg, nil, &fakeS3{err: errors.New("boom")})
	_, err := svc.handlePackageWorkflow(context.Background(), mcp.ToolRequest{Arguments: map[string]any{
		"mainFileContent": "x",
		"s3Uri":           "s3://bundles/wf.zip",
	}})
	if err == nil || !strings.Contains(err.Error(), "PutObject") {
		t.Fatalf("expected wrapped upload error, got %v", err)
	}
}

func TestPackageWorkflowValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	readOnly := config.DefaultConfig()
	readOnly.ReadOnly = true
	tests := []struct {
		name    string
		cfg     *config.Config
		args    map[string]any
		wantErr string
	}{
		{"missingContent", &cfg, map[string]any{}, "mainFileContent is required"},
		{"badScheme", &cfg, map[string]any{"mainFileContent": "x", "s3Uri": "https://bucket/key"}, `s3Uri must start with "s3://"`},
		{"bucketOnly", &cfg, map[string]any{"mainFileContent": "x", "s3Uri": "s3://bucket"}, "s3Uri must look like"},
		{"parentPath", &cfg, map[string]any{"mainFileContent": "x", "additionalFiles": map[string]any{"../escape.wdl": "x"}}, "must not contain .."},
		{"duplicateMain", &cfg, map[string]any{"mainFileContent": "x", "additionalFiles": map[string]any{"main.wdl": "y"}}, "must not repeat the main file"},
		{"readOnlyUpload", &readOnly, map[string]any{"mainFileContent": "x", "s3Uri": "s3://bucket/key.zip"}, "read-only mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeS3{}
			_, err := newService(t, tt.cfg, nil, fake).handlePackageWorkflow(context.Background(), mcp.ToolRequest{Arguments: tt.args})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error %q, got %v", tt.wantErr, err)
			}
			if len(fake.inputs) != 0 {
				t.Fatalf("validation errors must not upload")
			}
		})
	}
}

func TestReadOnlyPackagingWithoutUpload(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReadOnly = true
	if _, err := newService(t, &cfg, nil, &fakeS3{}).handlePackageWorkflow(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"mainFileContent": "x"}}); err != nil {
		t.Fatalf("local packaging must work read-only: %v", err)
	}
}

const regionsBody = `{"Parameters":[
	{"Name":"/aws/service/global-infrastructure/services/omics/regions/us-west-2","Value":"us-west-2"},
	{"Name":"/aws/service/global-infrastructure/services/omics/regions/eu-west-1","Value":"eu-west-1"},
	{"Name":"/aws/service/global-infrastructure/services/omics/regions/us-east-1","Value":"us-east-1"}
]}`

func TestGetSupportedRegionsFromSSM(t *testing.T) {
	rt := &awstest.TargetRoundTripper{Responses: map[string]awstest.Response{
		"AmazonSSM.GetParametersByPath": awstest.OK(regionsBody),
	}}
	cfg := config.DefaultConfig()
	svc := newService(t, &cfg, rt, nil)
	for i := 0; i < 2; i++ {
		result, err := svc.handleGetSupportedRegions(context.Background(), mcp.ToolRequest{})
		if err != nil {
			t.Fatalf("regions: %v", err)
		}
		data := result.Data.(map[string]any)
		regions := data["regions"].([]string)
		if strings.Join(regions, ",") != "eu-west-1,us-east-1,us-west-2" || data["count"] != 3 || data["source"] != "ssm" {
			t.Fatalf("unexpected regions %v", data)
		}
		if data["cached"] != (i == 1) {
			t.Fatalf("call %d: unexpected cached flag %v", i, data["cached"])
		}
	}
	if rt.Count("AmazonSSM.GetParametersByPath") != 1 {
		t.Fatalf("expected one SSM call, got %d", rt.Count("AmazonSSM.GetParametersByPath"))
	}
	if !strings.Contains(rt.Requests["AmazonSSM.GetParametersByPath"][0], regionsPath) {
		t.Fatalf("request did not carry the regions path: %s", rt.Requests["AmazonSSM.GetParametersByPath"][0])
	}
}

func TestGetSupportedRegionsCacheDisabled(t *testing.T) {
	rt := &awstest.TargetRoundTripper{Responses: map[string]awstest.Response{
		"AmazonSSM.GetParametersByPath": awstest.OK(regionsBody),
	}}
	cfg := config.DefaultConfig()
	cfg.Cache.RegionsTTLSeconds = -1
	svc := newService(t, &cfg, rt, nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.handleGetSupportedRegions(context.Background(), mcp.ToolRequest{}); err != nil {
			t.Fatalf("regions: %v", err)
		}
	}
	if rt.Count("AmazonSSM.GetParametersByPath") != 2 {
		t.Fatalf("expected two SSM calls with caching off, got %d", rt.Count("AmazonSSM.GetParametersByPath"))
	}
}

func TestGetSupportedRegionsFallback(t *testing.T) {
	tests := []struct {
		name string
		rt   *awstest.TargetRoundTripper
	}{
		{"accessDenied", &awstest.TargetRoundTripper{Responses: map[string]awstest.Response{
			"AmazonSSM.GetParametersByPath": awstest.JSONError("AccessDeniedException", "not allowed"),
		}}},
		{"empty", &awstest.TargetRoundTripper{Responses: map[string]awstest.Response{
			"AmazonSSM.GetParametersByPath": awstest.OK(`{"Parameters":[]}`),
		}}},
		{"noClient", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			svc := newService(t, &cfg, tt.rt, nil)
			result, err := svc.handleGetSupportedRegions(context.Background(), mcp.ToolRequest{})
			if err != nil {
				t.Fatalf("fallback must not fail: %v", err)
			}
			data := result.Data.(map[string]any)
			if data["source"] != "fallback" || data["count"] != len(fallbackRegions) {
				t.Fatalf("unexpected fallback %v", data)
			}
			if note, _ := data["note"].(string); !strings.HasPrefix(note, "Using built-in region list") {
				t.Fatalf("expected a note, got %v", data["note"])
			}
			if _, cached := svc.ctx.Cache.Get(regionsCacheKey); cached {
				t.Fatalf("fallback results must not be cached")
			}
		})
	}
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := parseS3URI("s3://my-bucket/path/to/bundle.zip")
	if err != nil || bucket != "my-bucket" || key != "path/to/bundle.zip" {
		t.Fatalf("unexpected parse %q %q %v", bucket, key, err)
	}
	for _, bad := range []string{"s3://", "s3:///key", "s3://bucket/", "s3://bucket/dir/"} {
		if _, _, err := parseS3URI(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
