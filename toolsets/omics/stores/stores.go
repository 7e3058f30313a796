package omicsstores

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"

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
			Name:        "ListSequenceStores",
			Description: "List HealthOmics sequence stores.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListStores(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListSequenceStores,
		},
		{
			Name:        "GetSequenceStore",
			Description: "Get a HealthOmics sequence store.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetStore("sequenceStoreId"),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetSequenceStore,
		},
		{
			Name:        "ListReadSets",
			Description: "List read sets in a sequence store, filtered by sample, subject, reference, status, file type or creation time.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListReadSets(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListReadSets,
		},
		{
			Name:        "ListReferenceStores",
			Description: "List HealthOmics reference stores.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListStores(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListReferenceStores,
		},
		{
			Name:        "GetReferenceStore",
			Description: "Get a HealthOmics reference store.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetStore("referenceStoreId"),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetReferenceStore,
		},
	}
}

type listStoresArgs struct {
	mcp.Page
	Name   string `json:"name"`
	Region string `json:"region"`
}

type getSequenceStoreArgs struct {
	SequenceStoreID string `json:"sequenceStoreId" validate:"required"`
	Region          string `json:"region"`
}

type getReferenceStoreArgs struct {
	ReferenceStoreID string `json:"referenceStoreId" validate:"required"`
	Region           string `json:"region"`
}

type listReadSetsArgs struct {
	mcp.Page
	SequenceStoreID string `json:"sequenceStoreId" validate:"required"`
	Name            string `json:"name"`
	SampleID        string `json:"sampleId"`
	SubjectID       string `json:"subjectId"`
	ReferenceArn    string `json:"referenceArn"`
	Status          string `json:"status" validate:"omitempty,oneof=ARCHIVED ACTIVATING ACTIVE DELETING DELETED PROCESSING_UPLOAD UPLOAD_FAILED"`
	FileType        string `json:"fileType" validate:"omitempty,oneof=FASTQ BAM CRAM UBAM"`
	CreatedAfter    string `json:"createdAfter"`
	CreatedBefore   string `json:"createdBefore"`
	Region          string `json:"region"`
}

func (s *Service) handleListSequenceStores(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args listStoresArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListSequenceStores", err)
	}
	input := &omics.ListSequenceStoresInput{
		MaxResults: aws.Int32(args.Limit(defaultPageSize)),
		NextToken:  optString(args.NextToken),
	}
	if name := optString(args.Name); name != nil {
		input.Filter = &omicstypes.SequenceStoreFilter{Name: name}
	}
	out, err := client.ListSequenceStores(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListSequenceStores", err)
	}
	stores := make([]map[string]any, 0, len(out.SequenceStores))
	for _, store := range out.SequenceStores {
		stores = append(stores, withOptional(map[string]any{
			"id":           aws.ToString(store.Id),
			"arn":          aws.ToString(store.Arn),
			"name":         aws.ToString(store.Name),
			"creationTime": healthomics.FormatTime(store.CreationTime),
		}, map[string]string{
			"description":      aws.ToString(store.Description),
			"fallbackLocation": aws.ToString(store.FallbackLocation),
		}))
	}
	return listResult(usedRegion, "sequenceStores", stores, out.NextToken), nil
}

func (s *Service) handleGetSequenceStore(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args getSequenceStoreArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("GetSequenceStore", err)
	}
	out, err := client.GetSequenceStore(ctx, &omics.GetSequenceStoreInput{Id: aws.String(strings.TrimSpace(args.SequenceStoreID))})
	if err != nil {
		return errorResult(err), mcp.Wrap("GetSequenceStore", err)
	}
	data := withOptional(map[string]any{
		"region":       usedRegion,
		"id":           aws.ToString(out.Id),
		"arn":          aws.ToString(out.Arn),
		"name":         aws.ToString(out.Name),
		"creationTime": healthomics.FormatTime(out.CreationTime),
	}, map[string]string{
		"description":      aws.ToString(out.Description),
		"fallbackLocation": aws.ToString(out.FallbackLocation),
	})
	if sse := summarizeSSE(out.SseConfig); sse != nil {
		data["sseConfig"] = sse
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{aws.ToString(out.Arn)}}}, nil
}

func (s *Service) handleListReadSets(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args listReadSetsArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	createdAfter, err := mcp.ParseTimeArg("createdAfter", args.CreatedAfter)
	if err != nil {
		return errorResult(err), err
	}
	createdBefore, err := mcp.ParseTimeArg("createdBefore", args.CreatedBefore)
	if err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListReadSets", err)
	}
	input := &omics.ListReadSetsInput{
		SequenceStoreId: aws.String(strings.TrimSpace(args.SequenceStoreID)),
		MaxResults:      aws.Int32(args.Limit(defaultPageSize)),
		NextToken:       optString(args.NextToken),
	}
	filter := &omicstypes.ReadSetFilter{
		Name:          optString(args.Name),
		SampleId:      optString(args.SampleID),
		SubjectId:     optString(args.SubjectID),
		ReferenceArn:  optString(args.ReferenceArn),
		Status:        omicstypes.ReadSetStatus(args.Status),
		CreatedAfter:  createdAfter,
		CreatedBefore: createdBefore,
	}
	if filter.Name != nil || filter.SampleId != nil || filter.SubjectId != nil || filter.ReferenceArn != nil ||
		filter.Status != "" || createdAfter != nil || createdBefore != nil {
		input.Filter = filter
	}
	out, err := client.ListReadSets(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListReadSets", err)
	}
	readSets := make([]map[string]any, 0, len(out.ReadSets))
	for _, item := range out.ReadSets {
		// The API has no file type filter.
		if args.FileType != "" && string(item.FileType) != args.FileType {
			continue
		}
		readSets = append(readSets, withOptional(map[string]any{
			"id":              aws.ToString(item.Id),
			"arn":             aws.ToString(item.Arn),
			"sequenceStoreId": aws.ToString(item.SequenceStoreId),
			"status":          string(item.Status),
			"fileType":        string(item.FileType),
			"creationTime":    healthomics.FormatTime(item.CreationTime),
		}, map[string]string{
			"name":         aws.ToString(item.Name),
			"description":  aws.ToString(item.Description),
			"sampleId":     aws.ToString(item.SampleId),
			"subjectId":    aws.ToString(item.SubjectId),
			"referenceArn": aws.ToString(item.ReferenceArn),
		}))
	}
	return listResult(usedRegion, "readSets", readSets, out.NextToken), nil
}

func (s *Service) handleListReferenceStores(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args listStoresArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListReferenceStores", err)
	}
	input := &omics.ListReferenceStoresInput{
		MaxResults: aws.Int32(args.Limit(defaultPageSize)),
		NextToken:  optString(args.NextToken),
	}
	if name := optString(args.Name); name != nil {
		input.Filter = &omicstypes.ReferenceStoreFilter{Name: name}
	}
	out, err := client.ListReferenceStores(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListReferenceStores", err)
	}
	stores := make([]map[string]any, 0, len(out.ReferenceStores))
	for _, store := range out.ReferenceStores {
		entry := withOptional(map[string]any{
			"id":           aws.ToString(store.Id),
			"arn":          aws.ToString(store.Arn),
			"name":         aws.ToString(store.Name),
			"creationTime": healthomics.FormatTime(store.CreationTime),
		}, map[string]string{"description": aws.ToString(store.Description)})
		if sse := summarizeSSE(store.SseConfig); sse != nil {
			entry["sseConfig"] = sse
		}
		stores = append(stores, entry)
	}
	return listResult(usedRegion, "referenceStores", stores, out.NextToken), nil
}

func (s *Service) handleGetReferenceStore(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args getReferenceStoreArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("GetReferenceStore", err)
	}
	out, err := client.GetReferenceStore(ctx, &omics.GetReferenceStoreInput{Id: aws.String(strings.TrimSpace(args.ReferenceStoreID))})
	if err != nil {
		return errorResult(err), mcp.Wrap("GetReferenceStore", err)
	}
	data := withOptional(map[string]any{
		"region":       usedRegion,
		"id":           aws.ToString(out.Id),
		"arn":          aws.ToString(out.Arn),
		"name":         aws.ToString(out.Name),
		"creationTime": healthomics.FormatTime(out.CreationTime),
	}, map[string]string{"description": aws.ToString(out.Description)})
	if sse := summarizeSSE(out.SseConfig); sse != nil {
		data["sseConfig"] = sse
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{aws.ToString(out.Arn)}}}, nil
}

func summarizeSSE(cfg *omicstypes.SseConfig) map[string]any {
	if cfg == nil {
		return nil
	}
	out := map[string]any{"type": string(cfg.Type)}
	if arn := aws.ToString(cfg.KeyArn); arn != "" {
		out["keyArn"] = arn
	}
	return out
}

func listResult(region, key string, items []map[string]any, nextToken *string) mcp.ToolResult {
	data := map[string]any{"region": region, key: items}
	if token := aws.ToString(nextToken); token != "" {
		data["nextToken"] = token
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: region}}
}

func withOptional(data map[string]any, optional map[string]string) map[string]any {
	for key, value := range optional {
		if value != "" {
			data[key] = value
		}
	}
	return data
}

func optString(value string) *string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	return aws.String(value)
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ToolResult{Data: map[string]any{"error": err.Error()}}
}
