package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRecorderFlushOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	rec := New()
	rec.Dimension("Operation", "analyze")
	rec.Metric("PipelineLatencyMs", 842.0, UnitMilliseconds)
	rec.Count("AnalyzeRequests")
	rec.Property("sessionId", "abc-123")
	rec.Flush()

	line := strings.TrimSpace(buf.String())
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(line), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, line)
	}

	awsDir, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatal("missing or malformed _aws directive in EMF output")
	}
	cwMetrics, ok := awsDir["CloudWatchMetrics"].([]interface{})
	if !ok || len(cwMetrics) != 1 {
		t.Fatalf("CloudWatchMetrics = %v, want one entry", awsDir["CloudWatchMetrics"])
	}
	entry := cwMetrics[0].(map[string]interface{})
	if entry["Namespace"] != Namespace {
		t.Errorf("Namespace = %v, want %s", entry["Namespace"], Namespace)
	}

	if doc["Operation"] != "analyze" {
		t.Errorf("Operation dimension = %v, want analyze", doc["Operation"])
	}
	if doc["PipelineLatencyMs"] != 842.0 {
		t.Errorf("PipelineLatencyMs = %v, want 842", doc["PipelineLatencyMs"])
	}
	if doc["AnalyzeRequests"] != 1.0 {
		t.Errorf("AnalyzeRequests = %v, want 1", doc["AnalyzeRequests"])
	}
	if doc["sessionId"] != "abc-123" {
		t.Errorf("sessionId property = %v, want abc-123", doc["sessionId"])
	}
}

func TestRecorderEmptyFlush(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	New().Property("only", "properties").Flush()
	if buf.Len() != 0 {
		t.Errorf("Flush() with no metrics wrote %q, want nothing", buf.String())
	}
}

func TestRecorderServiceDimension(t *testing.T) {
	t.Setenv("REVIEWER_SERVICE_NAME", "reviewer-prod")
	r := New()
	if r.dimensions["Service"] != "reviewer-prod" {
		t.Errorf("Service dimension = %q, want reviewer-prod", r.dimensions["Service"])
	}
}
