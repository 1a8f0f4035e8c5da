package display

import (
	"encoding/base64"
	"fmt"
	"io"
)

// Kitty graphics protocol framing. Payloads are PNG (f=100), transmitted and
// displayed in one action (a=T) with responses suppressed (q=2).
const (
	apcStart      = "\x1b_G"
	apcEnd        = "\x1b\\"
	maxChunkBytes = 4096
)

// WriteKitty writes png as one or more kitty graphics escapes.
func WriteKitty(w io.Writer, png []byte) error {
	if len(png) == 0 {
		return nil
	}

	payload := base64.StdEncoding.EncodeToString(png)
	n := (len(payload) + maxChunkBytes - 1) / maxChunkBytes

	for i := 0; i < n; i++ {
		end := min(len(payload), (i+1)*maxChunkBytes)
		chunk := payload[i*maxChunkBytes : end]
		if _, err := fmt.Fprintf(w, "%s%s;%s%s", apcStart, chunkControl(i, n), chunk, apcEnd); err != nil {
			return err
		}
	}
	return nil
}

func chunkControl(i, n int) string {
	switch {
	case n == 1:
		return "a=T,f=100,q=2"
	case i == 0:
		return "a=T,f=100,q=2,m=1"
	case i == n-1:
		return "m=0"
	default:
		return "m=1"
	}
}
