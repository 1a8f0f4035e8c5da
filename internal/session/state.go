package session

import (
	"fmt"

	"github.com/manash/ladmaker/pkg/models"
)

type Kind int

const (
	KindUpload Kind = iota
	KindProcessing
	KindResult
	KindError
)

var kindNames = map[Kind]string{
	KindUpload:     "upload",
	KindProcessing: "processing",
	KindResult:     "result",
	KindError:      "error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// State is the single value a Machine exposes. Only the fields that belong to
// Kind are set.
type State struct {
	Kind      Kind            `json:"state"`
	Original  models.ImageRef `json:"original,omitempty"`
	Generated models.ImageRef `json:"generated,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func Upload() State {
	return State{Kind: KindUpload}
}

func Processing(original models.ImageRef) State {
	return State{Kind: KindProcessing, Original: original}
}

func Result(original, generated models.ImageRef) State {
	return State{Kind: KindResult, Original: original, Generated: generated}
}

func Error(message string) State {
	return State{Kind: KindError, Message: message}
}

func (s State) String() string {
	switch s.Kind {
	case KindResult:
		return fmt.Sprintf("result(%s)", s.Generated)
	case KindError:
		return fmt.Sprintf("error(%s)", s.Message)
	default:
		return s.Kind.String()
	}
}
