package services

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// dataPrefix marks a frame line in a chat stream.
var dataPrefix = []byte("data: ")

// FrameReader decodes `data: {json}` lines from a chunked chat response.
// A line split across reads stays buffered until its newline arrives.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// Next returns the next frame in arrival order.
// Lines without the data prefix, malformed JSON and unknown frame types are
// skipped. Returns io.EOF once the body is exhausted.
func (fr *FrameReader) Next() (domain.StreamFrame, error) {
	for {
		line, err := fr.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return domain.StreamFrame{}, err
		}

		// A final line without a newline is still a complete frame at EOF.
		if len(line) > 0 {
			if frame, ok := decodeFrameLine(line); ok {
				return frame, nil
			}
		}

		if err != nil {
			return domain.StreamFrame{}, err
		}
	}
}

// decodeFrameLine parses one line. ok is false when the line carries no frame.
func decodeFrameLine(line []byte) (domain.StreamFrame, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, dataPrefix) {
		return domain.StreamFrame{}, false
	}

	var frame domain.StreamFrame
	if err := json.Unmarshal(line[len(dataPrefix):], &frame); err != nil {
		logger.Warn("chat stream: skipping malformed frame: %v", err)
		return domain.StreamFrame{}, false
	}

	switch frame.Type {
	case domain.FrameToken, domain.FrameSources, domain.FrameDone, domain.FrameError:
		return frame, true
	default:
		logger.Warn("chat stream: skipping unknown frame type %q", frame.Type)
		return domain.StreamFrame{}, false
	}
}
