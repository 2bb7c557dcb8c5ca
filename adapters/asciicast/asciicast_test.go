//go:build !windows
// +build !windows

package asciicast

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhiburt/ptyprocess"
)

// TestEventMarshalRoundTrip checks the array encoding of events.
func TestEventMarshalRoundTrip(t *testing.T) {
	event := Event{Offset: 1.25, Type: "o", Data: "hello\r\n"}

	data, err := json.Marshal(event)
	require.NoError(t, err)
	require.JSONEq(t, `[1.25, "o", "hello\r\n"]`, string(data))

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, event, back)
}

// TestRecorderWritesHeaderAndEvents records into a buffer and parses the
// lines back.
func TestRecorderWritesHeaderAndEvents(t *testing.T) {
	var buf bytes.Buffer

	rec, err := NewWriter(&buf, 80, 24)
	require.NoError(t, err)

	require.NoError(t, rec.WriteInput([]byte("ls\n")))
	require.NoError(t, rec.WriteOutput([]byte("file\r\n")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var header Header
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
	require.Equal(t, 2, header.Version)
	require.Equal(t, 80, header.Width)
	require.Equal(t, 24, header.Height)

	var in, out Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &in))
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &out))
	require.Equal(t, "i", in.Type)
	require.Equal(t, "ls\n", in.Data)
	require.Equal(t, "o", out.Type)
	require.GreaterOrEqual(t, out.Offset, in.Offset)
}

// TestRecordSession records a real cat session end to end.
func TestRecordSession(t *testing.T) {
	proc, err := ptyprocess.Spawn(ptyprocess.NewStartOptions("cat"))
	require.NoError(t, err)
	defer proc.Close()

	var buf bytes.Buffer
	rec, err := NewWriter(&buf, 80, 24)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- rec.Record(proc) }()

	require.NoError(t, proc.Send([]byte("take\n")))
	require.NoError(t, proc.SendControl('d'))

	require.NoError(t, <-done)

	var sawOutput bool
	scanner := bufio.NewScanner(&buf)
	scanner.Scan() // header
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		if event.Type == "o" && strings.Contains(event.Data, "take") {
			sawOutput = true
		}
	}
	require.True(t, sawOutput)
}
