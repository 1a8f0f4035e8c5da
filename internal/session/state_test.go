package session

import (
	"encoding/json"
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindUpload, "upload"},
		{KindProcessing, "processing"},
		{KindResult, "result"},
		{KindError, "error"},
		{Kind(9), "kind(9)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestState_JSON(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"upload", Upload(), `{"state":"upload"}`},
		{"processing", Processing("blob:a"), `{"state":"processing","original":"blob:a"}`},
		{"result", Result("blob:a", "https://x/y.png"), `{"state":"result","original":"blob:a","generated":"https://x/y.png"}`},
		{"error", Error("credential not configured"), `{"state":"error","message":"credential not configured"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.state)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if got := Error("nope").String(); got != "error(nope)" {
		t.Errorf("String() = %q", got)
	}
	if got := Result("blob:a", "blob:b").String(); got != "result(blob:b)" {
		t.Errorf("String() = %q", got)
	}
	if got := Upload().String(); got != "upload" {
		t.Errorf("String() = %q", got)
	}
}
