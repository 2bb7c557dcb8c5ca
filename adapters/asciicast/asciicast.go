// Package asciicast records a pty session in asciinema v2 JSON-Lines
// format, timing every chunk of terminal output against the start of the
// recording.
package asciicast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zhiburt/ptyprocess"
)

// Header is the asciinema v2 file header.
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Env       map[string]string `json:"env,omitempty"`
}

// Event is one timed entry: [offset_seconds, type, data] where type is
// "o" for output and "i" for input.
type Event struct {
	Offset float64
	Type   string
	Data   string
}

// MarshalJSON renders the event as the three-element array the format
// requires.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Offset, e.Type, e.Data})
}

// UnmarshalJSON parses the three-element array form.
func (e *Event) UnmarshalJSON(data []byte) error {
	var arr []any
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 3 {
		return fmt.Errorf("invalid event: expected 3 elements, got %d", len(arr))
	}
	offset, ok := arr[0].(float64)
	if !ok {
		return fmt.Errorf("invalid event offset")
	}
	kind, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid event type")
	}
	payload, ok := arr[2].(string)
	if !ok {
		return fmt.Errorf("invalid event data")
	}
	e.Offset = offset
	e.Type = kind
	e.Data = payload
	return nil
}

// Recorder writes a cast file for one pty session.
type Recorder struct {
	mu    sync.Mutex
	w     io.Writer
	file  *os.File
	start time.Time
}

// Create opens a cast file at path and writes the header using the
// process's current window size.
func Create(path string, proc *ptyprocess.PtyProcess) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create cast file: %w", err)
	}

	r := &Recorder{w: file, file: file, start: time.Now()}

	size, err := proc.WindowSize()
	if err != nil {
		file.Close()
		return nil, err
	}
	if err := r.writeHeader(int(size.Cols), int(size.Rows)); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

// NewWriter records into an arbitrary writer with an explicit size.
func NewWriter(w io.Writer, cols, rows int) (*Recorder, error) {
	r := &Recorder{w: w, start: time.Now()}
	if err := r.writeHeader(cols, rows); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recorder) writeHeader(cols, rows int) error {
	header := Header{
		Version:   2,
		Width:     cols,
		Height:    rows,
		Timestamp: r.start.Unix(),
	}
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// WriteOutput records a chunk of terminal output.
func (r *Recorder) WriteOutput(data []byte) error {
	return r.writeEvent("o", data)
}

// WriteInput records a chunk of input sent to the child.
func (r *Recorder) WriteInput(data []byte) error {
	return r.writeEvent("i", data)
}

func (r *Recorder) writeEvent(kind string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event := Event{
		Offset: time.Since(r.start).Seconds(),
		Type:   kind,
		Data:   string(data),
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := r.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Record pumps the child's output into the cast until the stream ends.
// It blocks and is intended to run in its own goroutine; the recorder is
// not closed when it returns.
func (r *Recorder) Record(proc *ptyprocess.PtyProcess) error {
	stream, err := proc.GetStream()
	if err != nil {
		return err
	}
	defer stream.Close()

	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if werr := r.WriteOutput(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Close closes the cast file when the recorder owns one.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
