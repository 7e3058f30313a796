// Package healthomics holds the narrow AWS HealthOmics and CloudWatch Logs
// client surfaces the toolsets depend on, plus small helpers shared by the
// omics tools.
package healthomics

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/omics"
)

// OmicsAPI is the subset of the HealthOmics client the tools call.
type OmicsAPI interface {
	ListWorkflows(ctx context.Context, in *omics.ListWorkflowsInput, optFns ...func(*omics.Options)) (*omics.ListWorkflowsOutput, error)
	CreateWorkflow(ctx context.Context, in *omics.CreateWorkflowInput, optFns ...func(*omics.Options)) (*omics.CreateWorkflowOutput, error)
	GetWorkflow(ctx context.Context, in *omics.GetWorkflowInput, optFns ...func(*omics.Options)) (*omics.GetWorkflowOutput, error)
	CreateWorkflowVersion(ctx context.Context, in *omics.CreateWorkflowVersionInput, optFns ...func(*omics.Options)) (*omics.CreateWorkflowVersionOutput, error)
	ListWorkflowVersions(ctx context.Context, in *omics.ListWorkflowVersionsInput, optFns ...func(*omics.Options)) (*omics.ListWorkflowVersionsOutput, error)
	GetWorkflowVersion(ctx context.Context, in *omics.GetWorkflowVersionInput, optFns ...func(*omics.Options)) (*omics.GetWorkflowVersionOutput, error)
	StartRun(ctx context.Context, in *omics.StartRunInput, optFns ...func(*omics.Options)) (*omics.StartRunOutput, error)
	ListRuns(ctx context.Context, in *omics.ListRunsInput, optFns ...func(*omics.Options)) (*omics.ListRunsOutput, error)
	GetRun(ctx context.Context, in *omics.GetRunInput, optFns ...func(*omics.Options)) (*omics.GetRunOutput, error)
	ListRunTasks(ctx context.Context, in *omics.ListRunTasksInput, optFns ...func(*omics.Options)) (*omics.ListRunTasksOutput, error)
	GetRunTask(ctx context.Context, in *omics.GetRunTaskInput, optFns ...func(*omics.Options)) (*omics.GetRunTaskOutput, error)
	ListSequenceStores(ctx context.Context, in *omics.ListSequenceStoresInput, optFns ...func(*omics.Options)) (*omics.ListSequenceStoresOutput, error)
	GetSequenceStore(ctx context.Context, in *omics.GetSequenceStoreInput, optFns ...func(*omics.Options)) (*omics.GetSequenceStoreOutput, error)
	ListReadSets(ctx context.Context, in *omics.ListReadSetsInput, optFns ...func(*omics.Options)) (*omics.ListReadSetsOutput, error)
	ListReferenceStores(ctx context.Context, in *omics.ListReferenceStoresInput, optFns ...func(*omics.Options)) (*omics.ListReferenceStoresOutput, error)
	GetReferenceStore(ctx context.Context, in *omics.GetReferenceStoreInput, optFns ...func(*omics.Options)) (*omics.GetReferenceStoreOutput, error)
}

// LogsAPI is the subset of the CloudWatch Logs client used to read run logs.
type LogsAPI interface {
	GetLogEvents(ctx context.Context, in *cloudwatchlogs.GetLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error)
	DescribeLogStreams(ctx context.Context, in *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
}

var (
	_ OmicsAPI = (*omics.Client)(nil)
	_ LogsAPI  = (*cloudwatchlogs.Client)(nil)
)

// OmicsClientFunc returns a client for region and the region it resolved to.
type OmicsClientFunc func(ctx context.Context, region string) (OmicsAPI, string, error)

type LogsClientFunc func(ctx context.Context, region string) (LogsAPI, string, error)
