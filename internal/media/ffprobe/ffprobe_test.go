package ffprobe

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
)

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Dimensions
		wantErr bool
	}{
		{name: "plain", input: "1920,1080\n", want: Dimensions{Width: 1920, Height: 1080}},
		{name: "leading blank lines", input: "\n\n1280,720\n", want: Dimensions{Width: 1280, Height: 720}},
		{name: "trailing comma", input: "3840,2160,\n", want: Dimensions{Width: 3840, Height: 2160}},
		{name: "extra streams ignored", input: "640,360\n1920,1080\n", want: Dimensions{Width: 640, Height: 360}},
		{name: "empty", input: "", wantErr: true},
		{name: "single value", input: "1920\n", wantErr: true},
		{name: "non numeric", input: "wide,tall\n", wantErr: true},
		{name: "zero", input: "0,1080\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDimensions([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestProberDimensionsInvokesFFprobe(t *testing.T) {
	var gotBinary string
	var gotArgs []string
	prober := New("/opt/ffprobe", WithRunner(func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary = binary
		gotArgs = args
		return []byte("1280,720\n"), nil
	}))

	dims, err := prober.Dimensions(context.Background(), "/videos/in.mp4")
	if err != nil {
		t.Fatalf("Dimensions returned error: %v", err)
	}
	if dims.String() != "1280x720" {
		t.Fatalf("unexpected dimensions: %s", dims)
	}
	if gotBinary != "/opt/ffprobe" {
		t.Fatalf("unexpected binary: %q", gotBinary)
	}
	if !slices.Contains(gotArgs, "stream=width,height") || gotArgs[len(gotArgs)-1] != "/videos/in.mp4" {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
}

func TestProberDimensionsPropagatesRunnerError(t *testing.T) {
	boom := errors.New("boom")
	prober := New("", WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, boom
	}))
	if prober.Binary() != "ffprobe" {
		t.Fatalf("expected default binary, got %q", prober.Binary())
	}
	if _, err := prober.Dimensions(context.Background(), "in.mp4"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
}

func TestInspectDecodesJSON(t *testing.T) {
	payload := `{"streams":[{"index":0,"codec_type":"video","width":1920,"height":1080,"avg_frame_rate":"60000/1001"},{"index":1,"codec_type":"audio"}],
"format":{"duration":"3600.5","size":"1000"}}`
	prober := New("ffprobe", WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(payload), nil
	}))
	result, err := prober.Inspect(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.DurationSeconds() != 3600.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if rate := result.FrameRate(); math.Abs(rate-59.94) > 0.01 {
		t.Fatalf("unexpected frame rate: %v", rate)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", FrameRate: "0/0"}},
		Format:  Format{Duration: "bad", Size: "-1"},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.FrameRate() != 0 {
		t.Fatalf("expected frame rate 0, got %v", result.FrameRate())
	}
}
