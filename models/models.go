package models

import "time"

// SpikeEvent is a single (time, neuron) pulse. Time is in seconds.
type SpikeEvent struct {
	Time   float64 `json:"time"`
	Neuron int     `json:"neuron"`
}

// SpikeTrain is an ordered sequence of spike events for one image.
type SpikeTrain []SpikeEvent

// Times returns the event times in train order.
func (t SpikeTrain) Times() []float64 {
	out := make([]float64, len(t))
	for i, ev := range t {
		out[i] = ev.Time
	}
	return out
}

// Neurons returns the event neuron indices in train order.
func (t SpikeTrain) Neurons() []int {
	out := make([]int, len(t))
	for i, ev := range t {
		out[i] = ev.Neuron
	}
	return out
}

// Status values for FileResult.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// FileResult records what happened to one spectrogram during a batch run.
type FileResult struct {
	RunID        int64     `json:"runId" bson:"runId"`
	InputPath    string    `json:"inputPath" bson:"inputPath"`
	OutputPath   string    `json:"outputPath,omitempty" bson:"outputPath,omitempty"`
	CombinedPath string    `json:"combinedPath,omitempty" bson:"combinedPath,omitempty"`
	Split        string    `json:"split" bson:"split"`
	Class        string    `json:"class" bson:"class"`
	Duration     float64   `json:"duration" bson:"duration"`
	Width        int       `json:"width" bson:"width"`
	Height       int       `json:"height" bson:"height"`
	Events       int       `json:"events" bson:"events"`
	RasterEvents int       `json:"rasterEvents" bson:"rasterEvents"`
	Plotted      int       `json:"plotted" bson:"plotted"`
	Status       string    `json:"status" bson:"status"`
	ErrorKind    string    `json:"errorKind,omitempty" bson:"errorKind,omitempty"`
	Error        string    `json:"error,omitempty" bson:"error,omitempty"`
	OutputSHA256 string    `json:"outputSha256,omitempty" bson:"outputSha256,omitempty"`
	LatencyMs    float64   `json:"latencyMs" bson:"latencyMs"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
}

// Run describes one invocation of the batch orchestrator.
type Run struct {
	ID         int64     `json:"id" bson:"_id"`
	InputRoot  string    `json:"inputRoot" bson:"inputRoot"`
	OutputRoot string    `json:"outputRoot" bson:"outputRoot"`
	Config     string    `json:"config" bson:"config"`
	StartedAt  time.Time `json:"startedAt" bson:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
	Processed  int       `json:"processed" bson:"processed"`
	Failed     int       `json:"failed" bson:"failed"`
}
