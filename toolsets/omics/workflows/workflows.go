package omicsworkflows

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"
	"github.com/google/uuid"

	"healthomics/internal/archive"
	"healthomics/internal/healthomics"
	"healthomics/internal/mcp"
)

const defaultPageSize = 10

type Service struct {
	ctx         mcp.ToolsetContext
	omicsClient healthomics.OmicsClientFunc
	toolsetID   string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, omicsClient healthomics.OmicsClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, omicsClient: omicsClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "ListWorkflows",
			Description: "List HealthOmics workflows.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListWorkflows(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListWorkflows,
		},
		{
			Name:        "CreateWorkflow",
			Description: "Create a HealthOmics workflow from a base64 zip or an S3 definition.",
			ToolsetID:   toolsetID,
			InputSchema: schemaCreateWorkflow(),
			Safety:      mcp.SafetyWrite,
			Handler:     svc.handleCreateWorkflow,
		},
		{
			Name:        "GetWorkflow",
			Description: "Get a HealthOmics workflow, optionally with a presigned definition URL.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetWorkflow(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetWorkflow,
		},
		{
			Name:        "CreateWorkflowVersion",
			Description: "Create a new version of an existing workflow.",
			ToolsetID:   toolsetID,
			InputSchema: schemaCreateWorkflowVersion(),
			Safety:      mcp.SafetyWrite,
			Handler:     svc.handleCreateWorkflowVersion,
		},
		{
			Name:        "ListWorkflowVersions",
			Description: "List versions of a workflow.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListWorkflowVersions(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListWorkflowVersions,
		},
		{
			Name:        "GetWorkflowVersion",
			Description: "Get a single workflow version.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetWorkflowVersion(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetWorkflowVersion,
		},
	}
}

type listWorkflowsArgs struct {
	mcp.Page
	WorkflowType string `json:"workflowType" validate:"omitempty,oneof=PRIVATE READY2RUN SHARED"`
	Name         string `json:"name"`
	Region       string `json:"region"`
}

type templateParam struct {
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
}

// DefinitionArgs is shared by workflow and workflow version creation.
type DefinitionArgs struct {
	DefinitionZipBase64 string                   `json:"definitionZipBase64"`
	DefinitionURI       string                   `json:"definitionUri" validate:"omitempty,startswith=s3://"`
	Description         string                   `json:"description"`
	Engine              string                   `json:"engine" validate:"omitempty,oneof=WDL NEXTFLOW CWL"`
	Main                string                   `json:"main"`
	ParameterTemplate   map[string]templateParam `json:"parameterTemplate"`
	StorageType         string                   `json:"storageType" validate:"omitempty,oneof=STATIC DYNAMIC"`
	StorageCapacity     int                      `json:"storageCapacity" validate:"omitempty,min=1,max=2147483647"`
	Tags                map[string]string        `json:"tags"`
	RequestID           string                   `json:"requestId"`
	Region              string                   `json:"region"`
}

type createWorkflowArgs struct {
	DefinitionArgs
	Name string `json:"name" validate:"required"`
}

type getWorkflowArgs struct {
	WorkflowID       string `json:"workflowId" validate:"required"`
	WorkflowType     string `json:"workflowType" validate:"omitempty,oneof=PRIVATE READY2RUN SHARED"`
	ExportDefinition bool   `json:"exportDefinition"`
	Region           string `json:"region"`
}

type createWorkflowVersionArgs struct {
	DefinitionArgs
	WorkflowID  string `json:"workflowId" validate:"required"`
	VersionName string `json:"versionName" validate:"required"`
}

type listWorkflowVersionsArgs struct {
	mcp.Page
	WorkflowID   string `json:"workflowId" validate:"required"`
	WorkflowType string `json:"workflowType" validate:"omitempty,oneof=PRIVATE READY2RUN SHARED"`
	Region       string `json:"region"`
}

type getWorkflowVersionArgs struct {
	WorkflowID       string `json:"workflowId" validate:"required"`
	VersionName      string `json:"versionName" validate:"required"`
	WorkflowType     string `json:"workflowType" validate:"omitempty,oneof=PRIVATE READY2RUN SHARED"`
	ExportDefinition bool   `json:"exportDefinition"`
	Region           string `json:"region"`
}

// definition holds the checked, decoded form of DefinitionArgs.
type definition struct {
	zip             []byte
	uri             *string
	storageType     omicstypes.StorageType
	storageCapacity *int32
	template        map[string]omicstypes.WorkflowParameter
}

func (a DefinitionArgs) resolve(defaultStorage omicstypes.StorageType) (definition, error) {
	var def definition
	hasZip := strings.TrimSpace(a.DefinitionZipBase64) != ""
	hasURI := strings.TrimSpace(a.DefinitionURI) != ""
	switch {
	case hasZip && hasURI:
		return def, mcp.Invalid("provide either definitionZipBase64 or definitionUri, not both")
	case !hasZip && !hasURI:
		return def, mcp.Invalid("one of definitionZipBase64 or definitionUri is required")
	case hasZip:
		data, err := archive.DecodeBase64(a.DefinitionZipBase64)
		if err != nil {
			return def, mcp.Invalid("definitionZipBase64: %v", err)
		}
		def.zip = data
	default:
		def.uri = aws.String(strings.TrimSpace(a.DefinitionURI))
	}

	def.storageType = omicstypes.StorageType(a.StorageType)
	if def.storageType == "" {
		def.storageType = defaultStorage
	}
	if a.StorageCapacity > 0 {
		if def.storageType != omicstypes.StorageTypeStatic {
			return def, mcp.Invalid("storageCapacity is only valid with STATIC storage")
		}
		def.storageCapacity = aws.Int32(int32(a.StorageCapacity))
	}
	if len(a.ParameterTemplate) > 0 {
		def.template = make(map[string]omicstypes.WorkflowParameter, len(a.ParameterTemplate))
		for name, param := range a.ParameterTemplate {
			entry := omicstypes.WorkflowParameter{Optional: aws.Bool(param.Optional)}
			if param.Description != "" {
				entry.Description = aws.String(param.Description)
			}
			def.template[name] = entry
		}
	}
	return def, nil
}

func requestID(id string) *string {
	if id = strings.TrimSpace(id); id != "" {
		return aws.String(id)
	}
	return aws.String(uuid.NewString())
}

func optString(value string) *string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	return aws.String(value)
}

func (s *Service) handleListWorkflows(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args listWorkflowsArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListWorkflows", err)
	}
	input := &omics.ListWorkflowsInput{
		MaxResults:    aws.Int32(args.Limit(defaultPageSize)),
		Name:          optString(args.Name),
		StartingToken: optString(args.NextToken),
		Type:          omicstypes.WorkflowType(args.WorkflowType),
	}
	out, err := client.ListWorkflows(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListWorkflows", err)
	}
	workflows := make([]map[string]any, 0, len(out.Items))
	for _, item := range out.Items {
		workflows = append(workflows, summarizeWorkflowItem(item))
	}
	data := map[string]any{"region": usedRegion, "workflows": workflows}
	if token := aws.ToString(out.NextToken); token != "" {
		data["nextToken"] = token
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion}}, nil
}

func (s *Service) handleCreateWorkflow(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args createWorkflowArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	def, err := args.resolve("")
	if err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("CreateWorkflow", err)
	}
	input := &omics.CreateWorkflowInput{
		Name:              aws.String(args.Name),
		RequestId:         requestID(args.RequestID),
		DefinitionZip:     def.zip,
		DefinitionUri:     def.uri,
		Description:       optString(args.Description),
		Engine:            omicstypes.WorkflowEngine(args.Engine),
		Main:              optString(args.Main),
		ParameterTemplate: def.template,
		StorageType:       def.storageType,
		StorageCapacity:   def.storageCapacity,
		Tags:              args.Tags,
	}
	out, err := client.CreateWorkflow(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("CreateWorkflow", err)
	}
	data := map[string]any{
		"region":      usedRegion,
		"id":          aws.ToString(out.Id),
		"arn":         aws.ToString(out.Arn),
		"status":      string(out.Status),
		"name":        args.Name,
		"description": args.Description,
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{aws.ToString(out.Arn)}}}, nil
}

func (s *Service) handleGetWorkflow(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args getWorkflowArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("GetWorkflow", err)
	}
	input := &omics.GetWorkflowInput{
		Id:   aws.String(args.WorkflowID),
		Type: omicstypes.WorkflowType(args.WorkflowType),
	}
	if args.ExportDefinition {
		input.Export = []omicstypes.WorkflowExport{omicstypes.WorkflowExportDefinition}
	}
	out, err := client.GetWorkflow(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("GetWorkflow", err)
	}
	data := map[string]any{
		"region":            usedRegion,
		"id":                aws.ToString(out.Id),
		"arn":               aws.ToString(out.Arn),
		"name":              aws.ToString(out.Name),
		"status":            string(out.Status),
		"type":              string(out.Type),
		"engine":            string(out.Engine),
		"main":              aws.ToString(out.Main),
		"description":       aws.ToString(out.Description),
		"statusMessage":     aws.ToString(out.StatusMessage),
		"storageType":       string(out.StorageType),
		"creationTime":      healthomics.FormatTime(out.CreationTime),
		"parameterTemplate": summarizeTemplate(out.ParameterTemplate),
	}
	if out.StorageCapacity != nil {
		data["storageCapacity"] = aws.ToInt32(out.StorageCapacity)
	}
	if out.Definition != nil {
		data["definition"] = aws.ToString(out.Definition)
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{aws.ToString(out.Arn)}}}, nil
}

func (s *Service) handleCreateWorkflowVersion(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args createWorkflowVersionArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	def, err := args.resolve(omicstypes.StorageTypeDynamic)
	if err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("CreateWorkflowVersion", err)
	}
	input := &omics.CreateWorkflowVersionInput{
		WorkflowId:        aws.String(args.WorkflowID),
		VersionName:       aws.String(args.VersionName),
		RequestId:         requestID(args.RequestID),
		DefinitionZip:     def.zip,
		DefinitionUri:     def.uri,
		Description:       optString(args.Description),
		Engine:            omicstypes.WorkflowEngine(args.Engine),
		Main:              optString(args.Main),
		ParameterTemplate: def.template,
		StorageType:       def.storageType,
		StorageCapacity:   def.storageCapacity,
		Tags:              args.Tags,
	}
	out, err := client.CreateWorkflowVersion(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("CreateWorkflowVersion", err)
	}
	data := map[string]any{
		"region":      usedRegion,
		"arn":         aws.ToString(out.Arn),
		"workflowId":  args.WorkflowID,
		"versionName": args.VersionName,
		"status":      string(out.Status),
		"storageType": string(def.storageType),
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{aws.ToString(out.Arn)}}}, nil
}

func (s *Service) handleListWorkflowVersions(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args listWorkflowVersionsArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListWorkflowVersions", err)
	}
	out, err := client.ListWorkflowVersions(ctx, &omics.ListWorkflowVersionsInput{
		WorkflowId:    aws.String(args.WorkflowID),
		Type:          omicstypes.WorkflowType(args.WorkflowType),
		MaxResults:    aws.Int32(args.Limit(defaultPageSize)),
		StartingToken: optString(args.NextToken),
	})
	if err != nil {
		return errorResult(err), mcp.Wrap("ListWorkflowVersions", err)
	}
	versions := make([]map[string]any, 0, len(out.Items))
	for _, item := range out.Items {
		versions = append(versions, map[string]any{
			"arn":          aws.ToString(item.Arn),
			"workflowId":   aws.ToString(item.WorkflowId),
			"versionName":  aws.ToString(item.VersionName),
			"description":  aws.ToString(item.Description),
			"status":       string(item.Status),
			"type":         string(item.Type),
			"creationTime": healthomics.FormatTime(item.CreationTime),
		})
	}
	data := map[string]any{"region": usedRegion, "workflowId": args.WorkflowID, "versions": versions}
	if token := aws.ToString(out.NextToken); token != "" {
		data["nextToken"] = token
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion}}, nil
}

func (s *Service) handleGetWorkflowVersion(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args getWorkflowVersionArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("GetWorkflowVersion", err)
	}
	input := &omics.GetWorkflowVersionInput{
		WorkflowId:  aws.String(args.WorkflowID),
		VersionName: aws.String(args.VersionName),
		Type:        omicstypes.WorkflowType(args.WorkflowType),
	}
	if args.ExportDefinition {
		input.Export = []omicstypes.WorkflowExport{omicstypes.WorkflowExportDefinition}
	}
	out, err := client.GetWorkflowVersion(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("GetWorkflowVersion", err)
	}
	data := map[string]any{
		"region":            usedRegion,
		"arn":               aws.ToString(out.Arn),
		"workflowId":        aws.ToString(out.WorkflowId),
		"versionName":       aws.ToString(out.VersionName),
		"status":            string(out.Status),
		"statusMessage":     aws.ToString(out.StatusMessage),
		"type":              string(out.Type),
		"engine":            string(out.Engine),
		"main":              aws.ToString(out.Main),
		"description":       aws.ToString(out.Description),
		"storageType":       string(out.StorageType),
		"creationTime":      healthomics.FormatTime(out.CreationTime),
		"parameterTemplate": summarizeTemplate(out.ParameterTemplate),
	}
	if out.StorageCapacity != nil {
		data["storageCapacity"] = aws.ToInt32(out.StorageCapacity)
	}
	if out.Definition != nil {
		data["definition"] = aws.ToString(out.Definition)
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{aws.ToString(out.Arn)}}}, nil
}

func summarizeWorkflowItem(item omicstypes.WorkflowListItem) map[string]any {
	return map[string]any{
		"id":           aws.ToString(item.Id),
		"arn":          aws.ToString(item.Arn),
		"name":         aws.ToString(item.Name),
		"status":       string(item.Status),
		"type":         string(item.Type),
		"creationTime": healthomics.FormatTime(item.CreationTime),
	}
}

func summarizeTemplate(template map[string]omicstypes.WorkflowParameter) map[string]any {
	out := make(map[string]any, len(template))
	for name, param := range template {
		out[name] = map[string]any{
			"description": aws.ToString(param.Description),
			"optional":    aws.ToBool(param.Optional),
		}
	}
	return out
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ToolResult{Data: map[string]any{"error": err.Error()}}
}
