package display

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestWriteKitty_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKitty(&buf, nil); err != nil {
		t.Fatalf("WriteKitty() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty output, got %q", buf.String())
	}
}

func TestWriteKitty_SingleChunk(t *testing.T) {
	var buf bytes.Buffer
	data := []byte("small test data")

	if err := WriteKitty(&buf, data); err != nil {
		t.Fatalf("WriteKitty() error = %v", err)
	}

	want := apcStart + "a=T,f=100,q=2;" + base64.StdEncoding.EncodeToString(data) + apcEnd
	if buf.String() != want {
		t.Errorf("WriteKitty() = %q, want %q", buf.String(), want)
	}
}

func TestWriteKitty_Chunked(t *testing.T) {
	var buf bytes.Buffer
	data := make([]byte, 7000)
	for i := range data {
		data[i] = byte(i % 251)
	}

	if err := WriteKitty(&buf, data); err != nil {
		t.Fatalf("WriteKitty() error = %v", err)
	}

	frames := strings.Split(strings.TrimSuffix(buf.String(), apcEnd), apcEnd)
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}

	wantControls := []string{"a=T,f=100,q=2,m=1", "m=1", "m=0"}
	var payload strings.Builder
	for i, frame := range frames {
		frame = strings.TrimPrefix(frame, apcStart)
		control, chunk, ok := strings.Cut(frame, ";")
		if !ok {
			t.Fatalf("frame %d has no payload separator", i)
		}
		if control != wantControls[i] {
			t.Errorf("frame %d control = %q, want %q", i, control, wantControls[i])
		}
		if len(chunk) > maxChunkBytes {
			t.Errorf("frame %d payload is %d bytes, limit %d", i, len(chunk), maxChunkBytes)
		}
		payload.WriteString(chunk)
	}

	decoded, err := base64.StdEncoding.DecodeString(payload.String())
	if err != nil {
		t.Fatalf("reassembled payload is not base64: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Error("reassembled payload does not match input")
	}
}

func TestChunkControl(t *testing.T) {
	tests := []struct {
		i, n int
		want string
	}{
		{0, 1, "a=T,f=100,q=2"},
		{0, 2, "a=T,f=100,q=2,m=1"},
		{1, 2, "m=0"},
		{1, 3, "m=1"},
	}
	for _, tt := range tests {
		if got := chunkControl(tt.i, tt.n); got != tt.want {
			t.Errorf("chunkControl(%d, %d) = %q, want %q", tt.i, tt.n, got, tt.want)
		}
	}
}
