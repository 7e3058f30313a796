package healthomics

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// FormatTime renders t in UTC with nanosecond precision, or "" for nil.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// FromEpochMillis converts a CloudWatch timestamp to UTC.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// S3Location is a parsed s3://bucket/key URI.
type S3Location struct {
	Bucket string
	Key    string
}

func (l S3Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

func ParseS3URI(raw string) (S3Location, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "s3://") {
		return S3Location{}, fmt.Errorf("%q is not an s3:// URI", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return S3Location{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Host == "" {
		return S3Location{}, errors.New("s3 URI is missing a bucket")
	}
	return S3Location{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}

// NormalizeOutputURI validates an s3:// prefix and ensures it ends with "/".
func NormalizeOutputURI(raw string) (string, error) {
	loc, err := ParseS3URI(raw)
	if err != nil {
		return "", err
	}
	out := loc.String()
	if !strings.HasSuffix(out, "/") {
		out += "/"
	}
	return out, nil
}
