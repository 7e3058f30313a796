// Package awstest builds SDK configs whose requests are answered in-process
// by canned responses keyed on the API operation.
package awstest

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Response is one canned HTTP reply.
type Response struct {
	Status int
	Body   string
	// Header overrides the default content type for error payloads.
	Header http.Header
}

// Config returns a static-credential config that sends every request to rt.
func Config(t *testing.T, rt http.RoundTripper) aws.Config {
	t.Helper()
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		HTTPClient:  &http.Client{Transport: rt},
		// One attempt keeps failure tests fast.
		RetryMaxAttempts: 1,
	}
	cfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: "https://aws.test", SigningRegion: region, HostnameImmutable: true}, nil
		},
	)
	return cfg
}

// TargetRoundTripper answers JSON-protocol calls (ECR, SSM, Logs) routed by
// the X-Amz-Target header, e.g. "AmazonSSM.GetParametersByPath".
type TargetRoundTripper struct {
	mu        sync.Mutex
	Responses map[string]Response
	Requests  map[string][]string
}

func (rt *TargetRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	target := req.Header.Get("X-Amz-Target")
	body := readBody(req)
	rt.mu.Lock()
	if rt.Requests == nil {
		rt.Requests = map[string][]string{}
	}
	rt.Requests[target] = append(rt.Requests[target], body)
	resp, ok := rt.Responses[target]
	rt.mu.Unlock()
	if !ok {
		return reply(req, Response{Status: http.StatusBadRequest, Body: `{"__type":"UnknownOperationException","message":"unknown target"}`}, "application/x-amz-json-1.1"), nil
	}
	return reply(req, resp, "application/x-amz-json-1.1"), nil
}

// Count returns how many requests were sent to target.
func (rt *TargetRoundTripper) Count(target string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.Requests[target])
}

// QueryRoundTripper answers query-protocol calls (STS, IAM) routed by the
// Action form value.
type QueryRoundTripper struct {
	mu        sync.Mutex
	Responses map[string]Response
	Requests  map[string][]url.Values
}

func (rt *QueryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	values, _ := url.ParseQuery(readBody(req))
	action := values.Get("Action")
	if action == "" {
		action = req.URL.Query().Get("Action")
	}
	rt.mu.Lock()
	if rt.Requests == nil {
		rt.Requests = map[string][]url.Values{}
	}
	rt.Requests[action] = append(rt.Requests[action], values)
	resp, ok := rt.Responses[action]
	rt.mu.Unlock()
	if !ok {
		return reply(req, Response{Status: http.StatusBadRequest, Body: "unknown action", Header: http.Header{"Content-Type": []string{"text/plain"}}}, "text/xml"), nil
	}
	return reply(req, resp, "text/xml"), nil
}

func (rt *QueryRoundTripper) Count(action string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.Requests[action])
}

func readBody(req *http.Request) string {
	if req.Body == nil {
		return ""
	}
	body, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	return string(body)
}

func reply(req *http.Request, resp Response, contentType string) *http.Response {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	header := http.Header{"Content-Type": []string{contentType}}
	for k, v := range resp.Header {
		header[k] = v
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(strings.TrimSpace(resp.Body))),
		Header:     header,
		Request:    req,
	}
}

// OK is a 200 reply with body.
func OK(body string) Response {
	return Response{Status: http.StatusOK, Body: body}
}

// JSONError is a 400 JSON-protocol error reply of the given type.
func JSONError(errType, message string) Response {
	return Response{Status: http.StatusBadRequest, Body: `{"__type":"` + errType + `","message":"` + message + `"}`}
}

// QueryError is a query-protocol error reply.
func QueryError(status int, code, message string) Response {
	return Response{Status: status, Body: `<ErrorResponse><Error><Type>Sender</Type><Code>` + code + `</Code><Message>` + message + `</Message></Error><RequestId>req</RequestId></ErrorResponse>`}
}
