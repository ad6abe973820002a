package services

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// defaultEventName is the event type used when a block carries no event field.
const defaultEventName = "message"

// Event is one dispatched server-sent event.
type Event struct {
	ID   string
	Name string
	Data string
}

// EventStreamReader parses a text/event-stream body. Lines end with
// CRLF, LF or a bare CR; blocks without a data field are not dispatched.
type EventStreamReader struct {
	r      *bufio.Reader
	lastID string

	// skipLF is set after a CR so the LF of a CRLF pair is not read as
	// an empty line.
	skipLF bool
}

// NewEventStreamReader wraps r.
func NewEventStreamReader(r io.Reader) *EventStreamReader {
	return &EventStreamReader{r: bufio.NewReader(r)}
}

// Next blocks until a complete event has been dispatched by a blank line.
// An event left incomplete when the body ends is discarded.
func (e *EventStreamReader) Next() (Event, error) {
	var (
		name    string
		data    strings.Builder
		hasData bool
	)

	for {
		line, err := e.readLine()
		if err != nil {
			// An unterminated last line never dispatches its event.
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if len(line) == 0 {
			if !hasData {
				name = ""
				continue
			}
			if name == "" {
				name = defaultEventName
			}
			return Event{ID: e.lastID, Name: name, Data: data.String()}, nil
		}
		if line[0] == ':' {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				e.lastID = value
			}
		}
	}
}

// readLine returns the next line without its terminator.
func (e *EventStreamReader) readLine() ([]byte, error) {
	var line []byte
	for {
		b, err := e.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if e.skipLF {
			e.skipLF = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case '\n':
			return line, nil
		case '\r':
			e.skipLF = true
			return line, nil
		}
		line = append(line, b)
	}
}

// LastEventID returns the most recent id field seen on the stream.
func (e *EventStreamReader) LastEventID() string {
	return e.lastID
}

// splitField splits "field: value", removing one space after the colon.
func splitField(line []byte) (string, string) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return string(line), ""
	}
	value := line[i+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return string(line[:i]), string(value)
}
