package ffprobe

import (
	"encoding/json"
	"math"
	"testing"
)

const sampleOutput = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "30000/1001",
      "r_frame_rate": "30000/1001"
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "sample_rate": "48000",
      "channels": 2,
      "duration": "120.5"
    }
  ],
  "format": {
    "filename": "input.mp4",
    "nb_streams": 2,
    "duration": "121.001000",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2"
  }
}`

func parseSample(t *testing.T) Result {
	t.Helper()
	var result Result
	if err := json.Unmarshal([]byte(sampleOutput), &result); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	return result
}

func TestResultStreamPresence(t *testing.T) {
	result := parseSample(t)
	if !result.HasVideo() {
		t.Error("expected video stream")
	}
	if !result.HasAudio() {
		t.Error("expected audio stream")
	}
	if got := result.FirstAudioIndex(); got != 1 {
		t.Errorf("FirstAudioIndex = %d, want 1", got)
	}
}

func TestResultDuration(t *testing.T) {
	result := parseSample(t)
	if got := result.DurationSeconds(); math.Abs(got-121.001) > 1e-9 {
		t.Errorf("DurationSeconds = %v, want 121.001", got)
	}
}

func TestResultDurationFallsBackToStreams(t *testing.T) {
	result := parseSample(t)
	result.Format.Duration = ""
	if got := result.DurationSeconds(); math.Abs(got-120.5) > 1e-9 {
		t.Errorf("DurationSeconds = %v, want stream fallback 120.5", got)
	}
}

func TestResultFrameRate(t *testing.T) {
	result := parseSample(t)
	want := 30000.0 / 1001.0
	if got := result.FrameRate(); math.Abs(got-want) > 1e-9 {
		t.Errorf("FrameRate = %v, want %v", got, want)
	}
}

func TestFrameRateWithoutVideo(t *testing.T) {
	result := parseSample(t)
	result.Streams = result.Streams[1:]
	if got := result.FrameRate(); got != 0 {
		t.Errorf("FrameRate = %v, want 0 without video", got)
	}
}

func TestParseRational(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"25/1", 25},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"", 0},
		{"24", 24},
		{"garbage", 0},
	}
	for _, tc := range cases {
		if got := parseRational(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("parseRational(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
