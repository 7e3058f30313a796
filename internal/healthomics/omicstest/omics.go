package omicstest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"

	"healthomics/internal/healthomics"
)

// ErrNotStubbed is returned by Omics methods with no stub installed.
var ErrNotStubbed = errors.New("omicstest: operation not stubbed")

// Omics serves runs and tasks from memory. Other operations are answered by
// the matching func field, if set.
type Omics struct {
	mu    sync.Mutex
	runs  map[string]*omics.GetRunOutput
	tasks map[string][]*omics.GetRunTaskOutput
	Calls []string

	ListWorkflowsFn         func(*omics.ListWorkflowsInput) (*omics.ListWorkflowsOutput, error)
	CreateWorkflowFn        func(*omics.CreateWorkflowInput) (*omics.CreateWorkflowOutput, error)
	GetWorkflowFn           func(*omics.GetWorkflowInput) (*omics.GetWorkflowOutput, error)
	CreateWorkflowVersionFn func(*omics.CreateWorkflowVersionInput) (*omics.CreateWorkflowVersionOutput, error)
	ListWorkflowVersionsFn  func(*omics.ListWorkflowVersionsInput) (*omics.ListWorkflowVersionsOutput, error)
	GetWorkflowVersionFn    func(*omics.GetWorkflowVersionInput) (*omics.GetWorkflowVersionOutput, error)
	StartRunFn              func(*omics.StartRunInput) (*omics.StartRunOutput, error)
	ListRunsFn              func(*omics.ListRunsInput) (*omics.ListRunsOutput, error)
	ListSequenceStoresFn    func(*omics.ListSequenceStoresInput) (*omics.ListSequenceStoresOutput, error)
	GetSequenceStoreFn      func(*omics.GetSequenceStoreInput) (*omics.GetSequenceStoreOutput, error)
	ListReadSetsFn          func(*omics.ListReadSetsInput) (*omics.ListReadSetsOutput, error)
	ListReferenceStoresFn   func(*omics.ListReferenceStoresInput) (*omics.ListReferenceStoresOutput, error)
	GetReferenceStoreFn     func(*omics.GetReferenceStoreInput) (*omics.GetReferenceStoreOutput, error)
}

var _ healthomics.OmicsAPI = (*Omics)(nil)

func NewOmics() *Omics {
	return &Omics{runs: map[string]*omics.GetRunOutput{}, tasks: map[string][]*omics.GetRunTaskOutput{}}
}

func (o *Omics) AddRun(run *omics.GetRunOutput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs[aws.ToString(run.Id)] = run
}

func (o *Omics) AddTask(runID string, task *omics.GetRunTaskOutput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tasks[runID] = append(o.tasks[runID], task)
}

// CallCount reports how many times op was invoked.
func (o *Omics) CallCount(op string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	count := 0
	for _, call := range o.Calls {
		if call == op {
			count++
		}
	}
	return count
}

func (o *Omics) record(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	o.Calls = append(o.Calls, op)
	o.mu.Unlock()
	return nil
}

func notFound(msg string) error {
	return &omicstypes.ResourceNotFoundException{Message: aws.String(msg)}
}

func (o *Omics) GetRun(ctx context.Context, in *omics.GetRunInput, _ ...func(*omics.Options)) (*omics.GetRunOutput, error) {
	if err := o.record(ctx, "GetRun"); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.runs[aws.ToString(in.Id)]
	if !ok {
		return nil, notFound("run not found")
	}
	return run, nil
}

func (o *Omics) ListRunTasks(ctx context.Context, in *omics.ListRunTasksInput, _ ...func(*omics.Options)) (*omics.ListRunTasksOutput, error) {
	if err := o.record(ctx, "ListRunTasks"); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	runID := aws.ToString(in.Id)
	if _, ok := o.runs[runID]; !ok {
		return nil, notFound("run not found")
	}
	var items []omicstypes.TaskListItem
	for _, task := range o.tasks[runID] {
		if in.Status != "" && task.Status != in.Status {
			continue
		}
		items = append(items, omicstypes.TaskListItem{
			TaskId:       task.TaskId,
			Name:         task.Name,
			Status:       task.Status,
			Cpus:         task.Cpus,
			Memory:       task.Memory,
			Gpus:         task.Gpus,
			InstanceType: task.InstanceType,
			CreationTime: task.CreationTime,
			StartTime:    task.StartTime,
			StopTime:     task.StopTime,
		})
	}
	start := 0
	if token := aws.ToString(in.StartingToken); token != "" {
		idx, err := strconv.Atoi(token)
		if err != nil {
			return nil, &omicstypes.ValidationException{Message: aws.String("bad token")}
		}
		start = clamp(idx, 0, len(items))
	}
	limit := int(aws.ToInt32(in.MaxResults))
	if limit <= 0 {
		limit = 100
	}
	end := clamp(start+limit, start, len(items))
	out := &omics.ListRunTasksOutput{Items: items[start:end]}
	if end < len(items) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (o *Omics) GetRunTask(ctx context.Context, in *omics.GetRunTaskInput, _ ...func(*omics.Options)) (*omics.GetRunTaskOutput, error) {
	if err := o.record(ctx, "GetRunTask"); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, task := range o.tasks[aws.ToString(in.Id)] {
		if aws.ToString(task.TaskId) == aws.ToString(in.TaskId) {
			return task, nil
		}
	}
	return nil, notFound("task not found")
}

func (o *Omics) ListWorkflows(ctx context.Context, in *omics.ListWorkflowsInput, _ ...func(*omics.Options)) (*omics.ListWorkflowsOutput, error) {
	if err := o.record(ctx, "ListWorkflows"); err != nil {
		return nil, err
	}
	if o.ListWorkflowsFn == nil {
		return nil, ErrNotStubbed
	}
	return o.ListWorkflowsFn(in)
}

func (o *Omics) CreateWorkflow(ctx context.Context, in *omics.CreateWorkflowInput, _ ...func(*omics.Options)) (*omics.CreateWorkflowOutput, error) {
	if err := o.record(ctx, "CreateWorkflow"); err != nil {
		return nil, err
	}
	if o.CreateWorkflowFn == nil {
		return nil, ErrNotStubbed
	}
	return o.CreateWorkflowFn(in)
}

func (o *Omics) GetWorkflow(ctx context.Context, in *omics.GetWorkflowInput, _ ...func(*omics.Options)) (*omics.GetWorkflowOutput, error) {
	if err := o.record(ctx, "GetWorkflow"); err != nil {
		return nil, err
	}
	if o.GetWorkflowFn == nil {
		return nil, ErrNotStubbed
	}
	return o.GetWorkflowFn(in)
}

func (o *Omics) CreateWorkflowVersion(ctx context.Context, in *omics.CreateWorkflowVersionInput, _ ...func(*omics.Options)) (*omics.CreateWorkflowVersionOutput, error) {
	if err := o.record(ctx, "CreateWorkflowVersion"); err != nil {
		return nil, err
	}
	if o.CreateWorkflowVersionFn == nil {
		return nil, ErrNotStubbed
	}
	return o.CreateWorkflowVersionFn(in)
}

func (o *Omics) ListWorkflowVersions(ctx context.Context, in *omics.ListWorkflowVersionsInput, _ ...func(*omics.Options)) (*omics.ListWorkflowVersionsOutput, error) {
	if err := o.record(ctx, "ListWorkflowVersions"); err != nil {
		return nil, err
	}
	if o.ListWorkflowVersionsFn == nil {
		return nil, ErrNotStubbed
	}
	return o.ListWorkflowVersionsFn(in)
}

func (o *Omics) GetWorkflowVersion(ctx context.Context, in *omics.GetWorkflowVersionInput, _ ...func(*omics.Options)) (*omics.GetWorkflowVersionOutput, error) {
	if err := o.record(ctx, "GetWorkflowVersion"); err != nil {
		return nil, err
	}
	if o.GetWorkflowVersionFn == nil {
		return nil, ErrNotStubbed
	}
	return o.GetWorkflowVersionFn(in)
}

func (o *Omics) StartRun(ctx context.Context, in *omics.StartRunInput, _ ...func(*omics.Options)) (*omics.StartRunOutput, error) {
	if err := o.record(ctx, "StartRun"); err != nil {
		return nil, err
	}
	if o.StartRunFn == nil {
		return nil, ErrNotStubbed
	}
	return o.StartRunFn(in)
}

func (o *Omics) ListRuns(ctx context.Context, in *omics.ListRunsInput, _ ...func(*omics.Options)) (*omics.ListRunsOutput, error) {
	if err := o.record(ctx, "ListRuns"); err != nil {
		return nil, err
	}
	if o.ListRunsFn == nil {
		return nil, ErrNotStubbed
	}
	return o.ListRunsFn(in)
}

func (o *Omics) ListSequenceStores(ctx context.Context, in *omics.ListSequenceStoresInput, _ ...func(*omics.Options)) (*omics.ListSequenceStoresOutput, error) {
	if err := o.record(ctx, "ListSequenceStores"); err != nil {
		return nil, err
	}
	if o.ListSequenceStoresFn == nil {
		return nil, ErrNotStubbed
	}
	return o.ListSequenceStoresFn(in)
}

func (o *Omics) GetSequenceStore(ctx context.Context, in *omics.GetSequenceStoreInput, _ ...func(*omics.Options)) (*omics.GetSequenceStoreOutput, error) {
	if err := o.record(ctx, "GetSequenceStore"); err != nil {
		return nil, err
	}
	if o.GetSequenceStoreFn == nil {
		return nil, ErrNotStubbed
	}
	return o.GetSequenceStoreFn(in)
}

func (o *Omics) ListReadSets(ctx context.Context, in *omics.ListReadSetsInput, _ ...func(*omics.Options)) (*omics.ListReadSetsOutput, error) {
	if err := o.record(ctx, "ListReadSets"); err != nil {
		return nil, err
	}
	if o.ListReadSetsFn == nil {
		return nil, ErrNotStubbed
	}
	return o.ListReadSetsFn(in)
}

func (o *Omics) ListReferenceStores(ctx context.Context, in *omics.ListReferenceStoresInput, _ ...func(*omics.Options)) (*omics.ListReferenceStoresOutput, error) {
	if err := o.record(ctx, "ListReferenceStores"); err != nil {
		return nil, err
	}
	if o.ListReferenceStoresFn == nil {
		return nil, ErrNotStubbed
	}
	return o.ListReferenceStoresFn(in)
}

func (o *Omics) GetReferenceStore(ctx context.Context, in *omics.GetReferenceStoreInput, _ ...func(*omics.Options)) (*omics.GetReferenceStoreOutput, error) {
	if err := o.record(ctx, "GetReferenceStore"); err != nil {
		return nil, err
	}
	if o.GetReferenceStoreFn == nil {
		return nil, ErrNotStubbed
	}
	return o.GetReferenceStoreFn(in)
}
