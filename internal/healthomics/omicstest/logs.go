// Package omicstest provides in-memory HealthOmics and CloudWatch Logs
// clients for tests.
package omicstest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"healthomics/internal/healthomics"
)

// Logs stores events per log group and stream. Paging follows CloudWatch:
// both tokens are always returned and a forward token at the end of the
// stream repeats the submitted one.
type Logs struct {
	mu      sync.Mutex
	streams map[string][]cwltypes.OutputLogEvent
	errs    map[string]error
	Calls   []*cloudwatchlogs.GetLogEventsInput
}

var _ healthomics.LogsAPI = (*Logs)(nil)

func NewLogs() *Logs {
	return &Logs{streams: map[string][]cwltypes.OutputLogEvent{}, errs: map[string]error{}}
}

func streamKey(group, stream string) string {
	return group + "|" + stream
}

// Add appends a message at ts to a stream, creating it if needed.
func (l *Logs) Add(group, stream string, ts time.Time, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := streamKey(group, stream)
	l.streams[key] = append(l.streams[key], cwltypes.OutputLogEvent{
		Timestamp: aws.Int64(ts.UnixMilli()),
		Message:   aws.String(message),
	})
	sort.SliceStable(l.streams[key], func(i, j int) bool {
		return aws.ToInt64(l.streams[key][i].Timestamp) < aws.ToInt64(l.streams[key][j].Timestamp)
	})
}

// Fail makes every read of stream return err.
func (l *Logs) Fail(group, stream string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[streamKey(group, stream)] = err
}

func (l *Logs) GetLogEvents(ctx context.Context, in *cloudwatchlogs.GetLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *in
	l.Calls = append(l.Calls, &copied)

	key := streamKey(aws.ToString(in.LogGroupName), aws.ToString(in.LogStreamName))
	if err, ok := l.errs[key]; ok {
		return nil, err
	}
	all, ok := l.streams[key]
	if !ok {
		return nil, &cwltypes.ResourceNotFoundException{Message: aws.String("The specified log stream does not exist.")}
	}
	events := make([]cwltypes.OutputLogEvent, 0, len(all))
	for _, event := range all {
		ts := aws.ToInt64(event.Timestamp)
		if in.StartTime != nil && ts < *in.StartTime {
			continue
		}
		if in.EndTime != nil && ts >= *in.EndTime {
			continue
		}
		events = append(events, event)
	}

	limit := int(aws.ToInt32(in.Limit))
	if limit <= 0 {
		limit = 10000
	}
	forward := in.StartFromHead != nil && *in.StartFromHead
	start, end := 0, len(events)
	if token := aws.ToString(in.NextToken); token != "" {
		dir, idx, err := parseToken(token)
		if err != nil {
			return nil, &cwltypes.InvalidParameterException{Message: aws.String(err.Error())}
		}
		forward = dir == "f"
		if forward {
			start = idx
		} else {
			end = idx
		}
	}
	if forward {
		start = clamp(start, 0, len(events))
		end = clamp(start+limit, start, len(events))
	} else {
		end = clamp(end, 0, len(events))
		start = clamp(end-limit, 0, end)
	}
	return &cloudwatchlogs.GetLogEventsOutput{
		Events:            append([]cwltypes.OutputLogEvent(nil), events[start:end]...),
		NextForwardToken:  aws.String(fmt.Sprintf("f/%d", end)),
		NextBackwardToken: aws.String(fmt.Sprintf("b/%d", start)),
	}, nil
}

func (l *Logs) DescribeLogStreams(ctx context.Context, in *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	group := aws.ToString(in.LogGroupName)
	prefix := streamKey(group, aws.ToString(in.LogStreamNamePrefix))
	var names []string
	for key := range l.streams {
		if strings.HasPrefix(key, prefix) {
			names = append(names, strings.TrimPrefix(key, group+"|"))
		}
	}
	if len(names) == 0 && !l.hasGroup(group) {
		return nil, &cwltypes.ResourceNotFoundException{Message: aws.String("The specified log group does not exist.")}
	}
	sort.Strings(names)

	start := 0
	if token := aws.ToString(in.NextToken); token != "" {
		idx, err := strconv.Atoi(token)
		if err != nil {
			return nil, &cwltypes.InvalidParameterException{Message: aws.String("bad token")}
		}
		start = clamp(idx, 0, len(names))
	}
	limit := int(aws.ToInt32(in.Limit))
	if limit <= 0 {
		limit = 50
	}
	end := clamp(start+limit, start, len(names))
	out := &cloudwatchlogs.DescribeLogStreamsOutput{}
	for _, name := range names[start:end] {
		events := l.streams[streamKey(group, name)]
		stream := cwltypes.LogStream{LogStreamName: aws.String(name)}
		if len(events) > 0 {
			stream.FirstEventTimestamp = events[0].Timestamp
			stream.LastEventTimestamp = events[len(events)-1].Timestamp
		}
		out.LogStreams = append(out.LogStreams, stream)
	}
	if end < len(names) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (l *Logs) hasGroup(group string) bool {
	for key := range l.streams {
		if strings.HasPrefix(key, group+"|") {
			return true
		}
	}
	return false
}

func parseToken(token string) (string, int, error) {
	dir, rest, ok := strings.Cut(token, "/")
	if !ok || (dir != "f" && dir != "b") {
		return "", 0, fmt.Errorf("invalid token %q", token)
	}
	idx, err := strconv.Atoi(rest)
	if err != nil {
		return "", 0, fmt.Errorf("invalid token %q", token)
	}
	return dir, idx, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
