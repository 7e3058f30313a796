package runlogs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"healthomics/internal/config"
	"healthomics/internal/healthomics"
)

// Event is one normalized log line.
type Event struct {
	Timestamp time.Time
	Message   string
}

func (e Event) Map() map[string]any {
	return map[string]any{
		"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
		"message":   e.Message,
	}
}

// Query selects one stream and a page of it.
type Query struct {
	Category  Category
	RunID     string
	TaskID    string
	RunUUID   string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int32
	NextToken string
	// StartFromHead reads oldest first. When false the page is the newest
	// events, returned newest first.
	StartFromHead bool
}

// Page is the result of one fetch. Missing is set when the log group or
// stream does not exist yet; Events is then empty.
type Page struct {
	Category  Category
	LogGroup  string
	Stream    string
	Events    []Event
	NextToken string
	Missing   bool
}

func (p Page) Map() map[string]any {
	events := make([]map[string]any, 0, len(p.Events))
	for _, event := range p.Events {
		events = append(events, event.Map())
	}
	out := map[string]any{
		"category":  string(p.Category),
		"logGroup":  p.LogGroup,
		"logStream": p.Stream,
		"events":    events,
	}
	if p.NextToken != "" {
		out["nextToken"] = p.NextToken
	}
	if p.Missing {
		out["missing"] = true
	}
	return out
}

type Fetcher struct {
	client   healthomics.LogsAPI
	logGroup string
}

func NewFetcher(client healthomics.LogsAPI, logGroup string) *Fetcher {
	if logGroup == "" {
		logGroup = config.DefaultLogGroup
	}
	return &Fetcher{client: client, logGroup: logGroup}
}

func (f *Fetcher) LogGroup() string {
	return f.logGroup
}

// Fetch reads one page of a stream.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (Page, error) {
	stream, err := StreamName(q.Category, q.RunID, q.TaskID, q.RunUUID)
	if err != nil {
		return Page{}, err
	}
	if q.Limit <= 0 {
		q.Limit = config.DefaultLogLimit
	}
	page := Page{Category: q.Category, LogGroup: f.logGroup, Stream: stream, Events: []Event{}}
	input := &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(f.logGroup),
		LogStreamName: aws.String(stream),
		Limit:         aws.Int32(q.Limit),
		StartFromHead: aws.Bool(q.StartFromHead),
	}
	if q.StartTime != nil {
		input.StartTime = aws.Int64(q.StartTime.UnixMilli())
	}
	if q.EndTime != nil {
		input.EndTime = aws.Int64(q.EndTime.UnixMilli())
	}
	if q.NextToken != "" {
		input.NextToken = aws.String(q.NextToken)
	}
	out, err := f.client.GetLogEvents(ctx, input)
	if err != nil {
		if IsNotFound(err) {
			page.Missing = true
			return page, nil
		}
		return page, fmt.Errorf("get log events %s: %w", stream, err)
	}

	for _, raw := range out.Events {
		page.Events = append(page.Events, Event{
			Timestamp: healthomics.FromEpochMillis(aws.ToInt64(raw.Timestamp)),
			Message:   aws.ToString(raw.Message),
		})
	}
	token := aws.ToString(out.NextForwardToken)
	if !q.StartFromHead {
		// The service returns the newest page in ascending order.
		for i, j := 0, len(page.Events)-1; i < j; i, j = i+1, j-1 {
			page.Events[i], page.Events[j] = page.Events[j], page.Events[i]
		}
		token = aws.ToString(out.NextBackwardToken)
	}
	if len(page.Events) > 0 && int32(len(page.Events)) >= q.Limit && token != q.NextToken {
		page.NextToken = token
	}
	return page, nil
}

// FetchAll follows cursors until the stream is exhausted or maxEvents have
// been read. q.Limit sets the page size.
func (f *Fetcher) FetchAll(ctx context.Context, q Query, maxEvents int) (Page, error) {
	var all Page
	for {
		page, err := f.Fetch(ctx, q)
		if err != nil {
			return all, err
		}
		if all.Stream == "" {
			all = page
		} else {
			all.Events = append(all.Events, page.Events...)
		}
		all.NextToken = page.NextToken
		if page.NextToken == "" || (maxEvents > 0 && len(all.Events) >= maxEvents) {
			break
		}
		q.NextToken = page.NextToken
	}
	if maxEvents > 0 && len(all.Events) > maxEvents {
		all.Events = all.Events[:maxEvents]
	}
	return all, nil
}

// Stream describes a log stream belonging to a run.
type Stream struct {
	Name       string
	Category   Category
	FirstEvent *time.Time
	LastEvent  *time.Time
}

func (s Stream) Map() map[string]any {
	out := map[string]any{"logStreamName": s.Name, "category": string(s.Category)}
	if s.FirstEvent != nil {
		out["firstEventTimestamp"] = healthomics.FormatTime(s.FirstEvent)
	}
	if s.LastEvent != nil {
		out["lastEventTimestamp"] = healthomics.FormatTime(s.LastEvent)
	}
	return out
}

// ListStreams lists the run's streams ("run/{id}" prefix) and its manifest
// streams. The cursor applies to the run prefix only.
func (f *Fetcher) ListStreams(ctx context.Context, runID string, limit int32, nextToken string) ([]Stream, string, error) {
	if _, err := StreamName(CategoryRun, runID, "", ""); err != nil {
		return nil, "", err
	}
	streams, next, err := f.describe(ctx, "run/"+runID, limit, nextToken)
	if err != nil {
		return nil, "", err
	}
	if nextToken == "" {
		manifests, _, err := f.describe(ctx, "manifest/run/"+runID, limit, "")
		if err != nil {
			return nil, "", err
		}
		streams = append(streams, manifests...)
	}
	return ownedBy(streams, runID), next, nil
}

// ownedBy drops streams of runs whose id merely shares the prefix.
func ownedBy(streams []Stream, runID string) []Stream {
	out := streams[:0]
	for _, stream := range streams {
		name := strings.TrimPrefix(stream.Name, "manifest/")
		if name == "run/"+runID || strings.HasPrefix(name, "run/"+runID+"/") {
			out = append(out, stream)
		}
	}
	return out
}

func (f *Fetcher) describe(ctx context.Context, prefix string, limit int32, nextToken string) ([]Stream, string, error) {
	input := &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName:        aws.String(f.logGroup),
		LogStreamNamePrefix: aws.String(prefix),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	if nextToken != "" {
		input.NextToken = aws.String(nextToken)
	}
	out, err := f.client.DescribeLogStreams(ctx, input)
	if err != nil {
		if IsNotFound(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("describe log streams %s: %w", prefix, err)
	}
	streams := make([]Stream, 0, len(out.LogStreams))
	for _, raw := range out.LogStreams {
		name := aws.ToString(raw.LogStreamName)
		stream := Stream{Name: name, Category: categoryOf(name)}
		if raw.FirstEventTimestamp != nil {
			ts := healthomics.FromEpochMillis(*raw.FirstEventTimestamp)
			stream.FirstEvent = &ts
		}
		if raw.LastEventTimestamp != nil {
			ts := healthomics.FromEpochMillis(*raw.LastEventTimestamp)
			stream.LastEvent = &ts
		}
		streams = append(streams, stream)
	}
	return streams, aws.ToString(out.NextToken), nil
}

func categoryOf(stream string) Category {
	switch {
	case strings.HasPrefix(stream, "manifest/"):
		return CategoryManifest
	case strings.HasSuffix(stream, "/engine"):
		return CategoryEngine
	case strings.Contains(stream, "/task/"):
		return CategoryTask
	default:
		return CategoryRun
	}
}

// IsNotFound reports a missing log group or stream.
func IsNotFound(err error) bool {
	var notFound *cwltypes.ResourceNotFoundException
	return errors.As(err, &notFound)
}
