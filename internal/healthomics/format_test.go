package healthomics

import (
	"testing"
	"time"
)

func TestFormatTime(t *testing.T) {
	if got := FormatTime(nil); got != "" {
		t.Fatalf("expected empty string for nil, got %q", got)
	}
	loc := time.FixedZone("x", 3600)
	ts := time.Date(2024, 1, 2, 4, 4, 5, 123000000, loc)
	if got := FormatTime(&ts); got != "2024-01-02T03:04:05.123Z" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FromEpochMillis(1704164645123); got.Location() != time.UTC || got.UnixMilli() != 1704164645123 {
		t.Fatalf("unexpected conversion %v", got)
	}
}

func TestNormalizeOutputURI(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "s3://bucket/out", want: "s3://bucket/out/"},
		{in: "s3://bucket/out/", want: "s3://bucket/out/"},
		{in: "s3://bucket", want: "s3://bucket/"},
		{in: "https://bucket/out", wantErr: true},
		{in: "s3:///key", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeOutputURI(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%s: got %q, %v", tt.in, got, err)
		}
	}
}

func TestParseS3URI(t *testing.T) {
	loc, err := ParseS3URI("s3://my-bucket/path/to/workflow.zip")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if loc.Bucket != "my-bucket" || loc.Key != "path/to/workflow.zip" {
		t.Fatalf("unexpected location %#v", loc)
	}
}
