package ptyprocess

import "testing"

// TestControlChar covers the letter, symbol and rejection cases of the
// control byte translation.
func TestControlChar(t *testing.T) {
	tests := []struct {
		name string
		in   byte
		want byte
		ok   bool
	}{
		{"lowercase c", 'c', 0x03, true},
		{"uppercase C", 'C', 0x03, true},
		{"lowercase d", 'd', 0x04, true},
		{"lowercase z", 'z', 0x1a, true},
		{"lowercase a", 'a', 0x01, true},
		{"at sign", '@', 0x00, true},
		{"left bracket", '[', 0x1b, true},
		{"backslash", '\\', 0x1c, true},
		{"right bracket", ']', 0x1d, true},
		{"caret", '^', 0x1e, true},
		{"underscore", '_', 0x1f, true},
		{"question mark", '?', 0x7f, true},
		{"space", ' ', 0x00, true},
		{"digit", '1', 0, false},
		{"high byte", 0xff, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := controlChar(tt.in)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v for %q, got %v", tt.ok, tt.in, ok)
			}
			if ok && got != tt.want {
				t.Errorf("Expected %#x for %q, got %#x", tt.want, tt.in, got)
			}
		})
	}
}

// TestStatusString checks the diagnostic rendering of statuses.
func TestStatusString(t *testing.T) {
	tests := []struct {
		name   string
		status ChildStatus
		want   string
	}{
		{"running", ChildStatus{Kind: StatusRunning}, "running"},
		{"exited", ChildStatus{Kind: StatusExited, ExitCode: 3}, "exited(3)"},
		{"signaled", ChildStatus{Kind: StatusSignaled, Signal: 9}, "signaled(9)"},
		{"stopped", ChildStatus{Kind: StatusStopped, Signal: 19}, "stopped(19)"},
		{"continued", ChildStatus{Kind: StatusContinued}, "continued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
