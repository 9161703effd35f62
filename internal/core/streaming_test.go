package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
		found    bool
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
			found:    true,
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
			found:    true,
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMSkippingReader(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
			if reader.Found() != tt.found {
				t.Errorf("Found() = %v, want %v", reader.Found(), tt.found)
			}
		})
	}
}

func TestLineEndingSniffer(t *testing.T) {
	tests := []struct {
		input string
		crlf  bool
	}{
		{"a,b\r\n1,2\r\n", true},
		{"a,b\n1,2\n", false},
		{"a,b\n1,2\r\n", false},
		{"a,b", false},
	}
	for _, tt := range tests {
		s := NewLineEndingSniffer(strings.NewReader(tt.input))
		if _, err := io.ReadAll(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.CRLF() != tt.crlf {
			t.Errorf("CRLF(%q) = %v, want %v", tt.input, s.CRLF(), tt.crlf)
		}
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input), int64(len(input)))

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.Progress() != 100 {
		t.Errorf("Progress = %d, want 100", reader.Progress())
	}
}

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		label    string
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{label: "", wantName: "utf-8", wantNil: true},
		{label: "UTF-8", wantName: "utf-8", wantNil: true},
		{label: "latin1", wantName: "windows-1252"},
		{label: "cp1252", wantName: "windows-1252"},
		{label: "no-such-encoding", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			enc, name, err := LookupEncoding(tt.label)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if (enc == nil) != tt.wantNil {
				t.Errorf("encoding nil = %v, want %v", enc == nil, tt.wantNil)
			}
		})
	}
}

func TestWrapForStreaming(t *testing.T) {
	// "Gebirgsjäger" in windows-1252, with CRLF line endings.
	input := []byte("id,name\r\n1,Gebirgsj\xe4ger\r\n")

	reader, state, err := WrapForStreaming(bytes.NewReader(input), "windows-1252", int64(len(input)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "id,name\r\n1,Gebirgsjäger\r\n"
	if string(result) != want {
		t.Errorf("got %q, want %q", string(result), want)
	}
	got := state.Format()
	if got != (Format{Encoding: "windows-1252", CRLF: true}) {
		t.Errorf("Format() = %+v", got)
	}
	if state.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", state.BytesRead(), len(input))
	}
}

func TestEncodingWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := EncodingWriter(&buf, "windows-1252")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := io.WriteString(w, "Gebirgsjäger"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got, want := buf.String(), "Gebirgsj\xe4ger"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
