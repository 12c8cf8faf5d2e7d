package feed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"exchange_sim/internal/domain"
)

const maxLineBytes = 64 * 1024

// Reader yields records from a feed stream, one per line. Blank lines and
// lines starting with '#' are skipped.
type Reader struct {
	scanner *bufio.Scanner
	parser  *Parser
	line    int
}

// NewReader creates a reader over r.
func NewReader(r io.Reader, parser *Parser) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Reader{scanner: sc, parser: parser}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int { return r.line }

// Next returns the next record, or io.EOF at the end of the stream.
// Parse failures are *domain.FeedError carrying the line number; the reader
// can continue past them. Any other error ends the stream.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimRight(r.scanner.Bytes(), "\r")
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		rec, err := r.parser.Parse(line)
		if err != nil {
			var fe *domain.FeedError
			if errors.As(err, &fe) {
				fe.Line = r.line
				return Record{}, fe
			}
			return Record{}, &domain.FeedError{Line: r.line, Err: err}
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("read feed after line %d: %w", r.line, err)
	}
	return Record{}, io.EOF
}
