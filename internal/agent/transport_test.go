package agent

import (
	"bytes"
	"context"
	"strconv"
	"testing"
)

func TestStdioTransportRoundTripsOneRequest(t *testing.T) {
	h := NewHandler()
	h.RegisterTool("echo", stubTool{result: "pong"})

	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo"}}`)
	var in bytes.Buffer
	in.WriteString("Content-Length: ")
	in.WriteString(strconv.Itoa(len(body)))
	in.WriteString("\r\n\r\n")
	in.Write(body)

	var out bytes.Buffer
	transport := NewStdioTransport(&in, &out, h)
	if err := transport.Serve(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Contains(out.Bytes(), []byte("Content-Length:")) {
		t.Fatalf("expected a framed response, got %q", out.String())
	}
	if !bytes.Contains(out.Bytes(), []byte(`"result":"pong"`)) {
		t.Fatalf("expected result pong in response, got %q", out.String())
	}
}

func TestStdioTransportMalformedBodyReturnsParseError(t *testing.T) {
	h := NewHandler()
	body := []byte(`not json`)
	var in bytes.Buffer
	in.WriteString("Content-Length: ")
	in.WriteString(strconv.Itoa(len(body)))
	in.WriteString("\r\n\r\n")
	in.Write(body)

	var out bytes.Buffer
	transport := NewStdioTransport(&in, &out, h)
	if err := transport.Serve(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte(`"code":-32700`)) {
		t.Fatalf("expected parse error in response, got %q", out.String())
	}
}

func TestStdioTransportEmptyStreamReturnsNoError(t *testing.T) {
	h := NewHandler()
	var in, out bytes.Buffer
	transport := NewStdioTransport(&in, &out, h)
	if err := transport.Serve(context.Background()); err != nil {
		t.Fatalf("unexpected error on empty stream: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output for an empty stream, got %q", out.String())
	}
}

