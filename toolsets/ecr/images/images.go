package ecrimages

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"golang.org/x/sync/errgroup"

	"healthomics/internal/iampolicy"
	"healthomics/internal/logging"
	"healthomics/internal/mcp"
)

const (
	omicsPrincipal    = "omics.amazonaws.com"
	verifyConcurrency = 4
)

// pullActions are the actions HealthOmics needs to pull an image.
var pullActions = []string{"ecr:BatchGetImage", "ecr:GetDownloadUrlForLayer"}

var imageURIPattern = regexp.MustCompile(`^(\d+)\.dkr\.ecr\.([^.]+)\.amazonaws\.com/([^:]+)(?::(.+))?$`)

type ECRAPI interface {
	DescribeRepositories(ctx context.Context, in *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
	DescribeImages(ctx context.Context, in *ecr.DescribeImagesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error)
	GetRepositoryPolicy(ctx context.Context, in *ecr.GetRepositoryPolicyInput, optFns ...func(*ecr.Options)) (*ecr.GetRepositoryPolicyOutput, error)
}

type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type ECRClientFunc func(ctx context.Context, region string) (ECRAPI, string, error)

type STSClientFunc func(ctx context.Context, region string) (STSAPI, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	ecrClient ECRClientFunc
	stsClient STSClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, ecrClient ECRClientFunc, stsClient STSClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, ecrClient: ecrClient, stsClient: stsClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "VerifyContainerImages",
			Description: "Check that ECR images exist and that their repository policy lets HealthOmics pull them.",
			ToolsetID:   toolsetID,
			InputSchema: schemaVerifyContainerImages(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleVerifyContainerImages,
		},
		{
			Name:        "GenerateECRRepositoryPolicy",
			Description: "Generate an ECR repository policy that grants HealthOmics pull access.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGenerateECRRepositoryPolicy(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGenerateECRRepositoryPolicy,
		},
	}
}

// ImageRef is a parsed private ECR image URI.
type ImageRef struct {
	AccountID  string
	Region     string
	Repository string
	Tag        string
}

// ParseImageURI splits account.dkr.ecr.region.amazonaws.com/repo[:tag]. The
// tag defaults to latest.
func ParseImageURI(uri string) (ImageRef, bool) {
	match := imageURIPattern.FindStringSubmatch(strings.TrimSpace(uri))
	if match == nil {
		return ImageRef{}, false
	}
	ref := ImageRef{AccountID: match[1], Region: match[2], Repository: match[3], Tag: match[4]}
	if ref.Tag == "" {
		ref.Tag = "latest"
	}
	return ref, true
}

type verifyArgs struct {
	ImageURIs []string `json:"imageUris" validate:"required,min=1,max=50,dive,required"`
}

// verification is the outcome for one image URI.
type verification struct {
	URI               string
	Ref               ImageRef
	Parsed            bool
	Exists            bool
	ImageExists       bool
	HasPolicy         bool
	AccessibleToOmics bool
	PolicyCompliant   bool
	CurrentPolicy     string
	Errors            []string
	Warnings          []string
}

func (v verification) Map() map[string]any {
	out := map[string]any{
		"uri":               v.URI,
		"exists":            v.Exists,
		"imageExists":       v.ImageExists,
		"hasPolicy":         v.HasPolicy,
		"accessibleToOmics": v.AccessibleToOmics,
		"policyCompliant":   v.PolicyCompliant,
		"errors":            nonNil(v.Errors),
		"warnings":          nonNil(v.Warnings),
	}
	if v.Parsed {
		out["accountId"] = v.Ref.AccountID
		out["region"] = v.Ref.Region
		out["repositoryName"] = v.Ref.Repository
		out["tag"] = v.Ref.Tag
	}
	if v.CurrentPolicy != "" {
		out["currentPolicy"] = v.CurrentPolicy
	}
	return out
}

func (s *Service) handleVerifyContainerImages(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	// Weak decoding turns a single URI string into a one-element list.
	var parsed verifyArgs
	if err := mcp.DecodeArgs(req.Arguments, &parsed); err != nil {
		return errorResult(err), err
	}

	caller, callerErr := s.callerAccount(ctx)
	results := make([]verification, len(parsed.ImageURIs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for i, uri := range parsed.ImageURIs {
		g.Go(func() error {
			results[i] = s.verifyImage(gctx, strings.TrimSpace(uri), caller)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return errorResult(err), mcp.Wrap("VerifyContainerImages", err)
	}

	existing, accessible := 0, 0
	items := make([]map[string]any, 0, len(results))
	var resources []string
	for _, res := range results {
		if res.Exists {
			existing++
		}
		if res.AccessibleToOmics && res.PolicyCompliant {
			accessible++
		}
		items = append(items, res.Map())
		resources = append(resources, res.URI)
	}
	data := map[string]any{
		"totalImagesChecked":  len(results),
		"existingImages":      existing,
		"accessibleToOmics":   accessible,
		"verificationResults": items,
		"requiredActions":     pullActions,
	}
	if caller != "" {
		data["callerAccountId"] = caller
	}
	if callerErr != nil {
		data["warnings"] = []string{"Could not determine the caller account; cross-account checks were skipped: " + callerErr.Error()}
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Resources: resources}}, nil
}

func (s *Service) callerAccount(ctx context.Context) (string, error) {
	if s.stsClient == nil {
		return "", errors.New("sts client not configured")
	}
	client, _, err := s.stsClient(ctx, "")
	if err != nil {
		return "", err
	}
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		s.logger().Warn("caller identity lookup failed", "err", err)
		return "", mcp.Wrap("GetCallerIdentity", err)
	}
	return aws.ToString(out.Account), nil
}

func (s *Service) verifyImage(ctx context.Context, uri, caller string) verification {
	res := verification{URI: uri}
	ref, ok := ParseImageURI(uri)
	if !ok {
		res.Errors = append(res.Errors, "Invalid ECR URI format: "+uri)
		return res
	}
	res.Ref, res.Parsed = ref, true
	if caller != "" && caller != ref.AccountID {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Image account %s differs from caller account %s; the registry policy must also allow your account and HealthOmics may need cross-account access.",
			ref.AccountID, caller))
	}

	client, _, err := s.ecrClient(ctx, ref.Region)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to create ECR client for region %s: %v", ref.Region, err))
		return res
	}

	_, err = client.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RegistryId:      aws.String(ref.AccountID),
		RepositoryNames: []string{ref.Repository},
	})
	if err != nil {
		var notFound *ecrtypes.RepositoryNotFoundException
		if errors.As(err, &notFound) {
			res.Errors = append(res.Errors, fmt.Sprintf("Repository %s not found in region %s", ref.Repository, ref.Region))
		} else {
			res.Errors = append(res.Errors, mcp.Wrap("DescribeRepositories", err).Error())
		}
		return res
	}
	res.Exists = true

	images, err := client.DescribeImages(ctx, &ecr.DescribeImagesInput{
		RegistryId:     aws.String(ref.AccountID),
		RepositoryName: aws.String(ref.Repository),
		ImageIds:       []ecrtypes.ImageIdentifier{{ImageTag: aws.String(ref.Tag)}},
	})
	var imageMissing *ecrtypes.ImageNotFoundException
	switch {
	case errors.As(err, &imageMissing) || (err == nil && len(images.ImageDetails) == 0):
		res.Errors = append(res.Errors, fmt.Sprintf("Image with tag %s not found in repository %s", ref.Tag, ref.Repository))
		return res
	case err != nil:
		res.Errors = append(res.Errors, mcp.Wrap("DescribeImages", err).Error())
		return res
	}
	res.ImageExists = true

	s.checkPolicy(ctx, client, &res)
	return res
}

func (s *Service) checkPolicy(ctx context.Context, client ECRAPI, res *verification) {
	out, err := client.GetRepositoryPolicy(ctx, &ecr.GetRepositoryPolicyInput{
		RegistryId:     aws.String(res.Ref.AccountID),
		RepositoryName: aws.String(res.Ref.Repository),
	})
	if err != nil {
		var noPolicy *ecrtypes.RepositoryPolicyNotFoundException
		if errors.As(err, &noPolicy) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"No repository policy found for %s. HealthOmics will not be able to pull from this private repository. Add a policy that allows %s to perform: %s",
				res.Ref.Repository, omicsPrincipal, strings.Join(pullActions, ", ")))
			return
		}
		res.Errors = append(res.Errors, fmt.Sprintf("Error checking repository policy for %s: %v", res.Ref.Repository, mcp.Wrap("GetRepositoryPolicy", err)))
		return
	}
	res.HasPolicy = true
	text := aws.ToString(out.PolicyText)
	doc, err := iampolicy.Parse(text)
	if err != nil {
		res.CurrentPolicy = text
		res.Errors = append(res.Errors, fmt.Sprintf("Repository policy for %s could not be parsed: %v", res.Ref.Repository, err))
		return
	}
	for _, stmt := range doc.Statements {
		if stmt.IsAllow() && stmt.HasPrincipal("Service", omicsPrincipal) {
			res.AccessibleToOmics = true
			break
		}
	}
	res.PolicyCompliant = doc.Grants("Service", omicsPrincipal, pullActions...)
	switch {
	case !res.AccessibleToOmics:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Repository policy does not grant access to %s. HealthOmics may not be able to pull this image.", omicsPrincipal))
	case !res.PolicyCompliant:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Repository policy grants access to %s but is missing required actions: %s. HealthOmics may not be able to pull this image.",
			omicsPrincipal, strings.Join(pullActions, ", ")))
	}
	if !res.PolicyCompliant {
		res.CurrentPolicy = text
	}
}

func (s *Service) logger() logging.Logger {
	if s.ctx.Logger == nil {
		return logging.Discard()
	}
	return s.ctx.Logger
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ToolResult{Data: map[string]any{"error": err.Error()}}
}
