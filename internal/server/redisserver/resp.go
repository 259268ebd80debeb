package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol limits.
const (
	// MaxArrayLen bounds the number of arguments in one command.
	MaxArrayLen = 64

	// MaxBulkLen bounds one argument. Claim data is the largest argument a client sends.
	MaxBulkLen = 256 * 1024

	// MaxInlineLen bounds an inline command line.
	MaxInlineLen = 4 * 1024

	// maxHeaderLen bounds "*<n>" and "$<n>" header lines.
	maxHeaderLen = 32
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Reader decodes client commands: RESP arrays of bulk strings, or inline
// whitespace-separated lines.
type Reader struct {
	br *bufio.Reader
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{br: br}
	}
	return &Reader{br: bufio.NewReader(r)}
}

// Peek blocks until at least one byte is buffered.
func (r *Reader) Peek() error {
	_, err := r.br.Peek(1)
	return err
}

// ReadCommand reads the next command. An empty command yields a nil slice.
func (r *Reader) ReadCommand() ([][]byte, error) {
	b, err := r.br.Peek(1)
	if err != nil {
		return nil, err
	}
	if b[0] == '*' {
		return r.readArray()
	}

	line, err := r.readLine(MaxInlineLen)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > MaxArrayLen {
		return nil, fmt.Errorf("%w: %d arguments exceeds limit %d", ErrLimitExceeded, len(fields), MaxArrayLen)
	}
	args := make([][]byte, len(fields))
	for i, f := range fields {
		args[i] = []byte(f)
	}
	return args, nil
}

func (r *Reader) readArray() ([][]byte, error) {
	n, err := r.readHeader('*')
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if n > MaxArrayLen {
		return nil, fmt.Errorf("%w: %d arguments exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	args := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := r.readBulk()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (r *Reader) readBulk() ([]byte, error) {
	n, err := r.readHeader('$')
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: null argument", ErrProtocol)
	}
	if n > MaxBulkLen {
		return nil, fmt.Errorf("%w: argument of %d bytes exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return nil, fmt.Errorf("%w: bad bulk terminator", ErrProtocol)
	}
	return buf[:n], nil
}

// readHeader reads a "<prefix><int>\r\n" line.
func (r *Reader) readHeader(prefix byte) (int, error) {
	line, err := r.readLine(maxHeaderLen)
	if err != nil {
		return 0, err
	}
	if len(line) < 2 || line[0] != prefix {
		return 0, fmt.Errorf("%w: expected %q", ErrProtocol, prefix)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: bad length %q", ErrProtocol, line[1:])
	}
	return n, nil
}

func (r *Reader) readLine(maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLen+2 {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return "", err
		}
	}
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

// Writer encodes replies. The first write error sticks; later writes are
// no-ops and Flush reports it.
type Writer struct {
	bw  *bufio.Writer
	err error
}

// NewWriter returns a Writer buffering into w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

func (w *Writer) write(parts ...string) {
	for _, p := range parts {
		if w.err != nil {
			return
		}
		_, w.err = w.bw.WriteString(p)
	}
}

// Status writes a simple string reply.
func (w *Writer) Status(s string) { w.write("+", s, "\r\n") }

// Error writes an error reply. CR and LF in s are replaced by spaces.
func (w *Writer) Error(s string) {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	w.write("-", s, "\r\n")
}

// Int writes an integer reply.
func (w *Writer) Int(n int64) { w.write(":", strconv.FormatInt(n, 10), "\r\n") }

// Bulk writes a bulk string reply.
func (w *Writer) Bulk(s string) { w.write("$", strconv.Itoa(len(s)), "\r\n", s, "\r\n") }

// Null writes a null bulk reply.
func (w *Writer) Null() { w.write("$-1\r\n") }

// Array writes the header of an n-element array; the caller writes the elements.
func (w *Writer) Array(n int) { w.write("*", strconv.Itoa(n), "\r\n") }

// Strings writes an array of bulk strings.
func (w *Writer) Strings(ss ...string) {
	w.Array(len(ss))
	for _, s := range ss {
		w.Bulk(s)
	}
}

// Flush sends buffered replies.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}

// commandName upper-cases an ASCII command name.
func commandName(b []byte) string {
	return string(bytes.ToUpper(b))
}
