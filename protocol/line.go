package protocol

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Conn is a CR-terminated line reader/writer over a TCP (or any io.ReadWriter)
// connection to the Galil: a leading ':' prompt is stripped, blank lines
// after stripping are ignored, and at most one logical line is ever emitted
// per ReadLine call.
type Conn struct {
	rw     io.ReadWriter
	reader *bufio.Reader
}

// NewConn wraps rw (typically a net.Conn) in the Galil line protocol.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw, reader: bufio.NewReader(rw)}
}

// ReadLine blocks for the next non-blank logical line, with any leading
// ':' prompt character and trailing CR/LF stripped. It loops internally
// past blank lines so callers never see one.
func (c *Conn) ReadLine() (string, error) {
	for {
		line, err := c.reader.ReadString('\r')
		if err != nil {
			if line == "" {
				return "", errors.Wrap(err, "reading line from device")
			}
			// Return what we have; the caller's next read will surface err.
		}
		line = strings.TrimRight(line, "\r\n")
		line = strings.TrimPrefix(line, ":")
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				return "", errors.Wrap(err, "reading line from device")
			}
			continue
		}
		return line, err
	}
}

// WriteLine sends a single statement terminated by CR. The Galil accepts
// semicolon-separated statements in one write but answers with at most one
// OK regardless; callers that need several statements join them themselves,
// so each call here corresponds to exactly one device command.
func (c *Conn) WriteLine(stmt string) error {
	_, err := io.WriteString(c.rw, stmt+"\r")
	if err != nil {
		return errors.Wrap(err, "writing line to device")
	}
	return nil
}
