package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// StdioTransport serves the Handler over a length-delimited framing on an
// arbitrary byte stream (stdio by default): each message is preceded by a
// "Content-Length: N\r\n\r\n" header naming the exact byte length of the
// JSON body that follows, the framing spec.md §6 requires in place of the
// teacher's bare newline-delimited bufio.Scanner loop — a JSON body may
// itself legitimately contain embedded newlines, which a line-oriented
// reader would split incorrectly.
type StdioTransport struct {
	r       *bufio.Reader
	w       io.Writer
	handler *Handler
}

// NewStdioTransport builds a transport reading requests from r and
// writing responses to w.
func NewStdioTransport(r io.Reader, w io.Writer, handler *Handler) *StdioTransport {
	return &StdioTransport{r: bufio.NewReader(r), w: w, handler: handler}
}

// Serve reads requests until the stream closes or ctx is canceled,
// dispatching each to the handler and writing back its response.
func (t *StdioTransport) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := t.readMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(body, &req); err != nil {
			if werr := t.writeMessage(errorResponse(nil, codeParseError, "parse error")); werr != nil {
				return werr
			}
			continue
		}

		resp := t.handler.Handle(ctx, &req)
		if err := t.writeMessage(resp); err != nil {
			return err
		}
	}
}

func (t *StdioTransport) readMessage() ([]byte, error) {
	var length int
	headerSeen := false
	for {
		line, err := t.r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if !headerSeen {
				continue
			}
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length header %q: %w", value, err)
			}
			length = n
			headerSeen = true
		}
	}
	if !headerSeen {
		return nil, fmt.Errorf("message missing Content-Length header")
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(t.r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (t *StdioTransport) writeMessage(v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(t.w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err = t.w.Write(body)
	return err
}
