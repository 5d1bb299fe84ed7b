// Package stream reads snapshot events from a text/event-stream body.
package stream

import (
	"bufio"
	"bytes"
	"io"

	"go.uber.org/zap"

	"github.com/naclonts/marketstream/pkg/models"
)

// maxEventSize bounds a single data line; a 25 symbol snapshot is a few KiB.
const maxEventSize = 1 << 20

var dataPrefix = []byte("data:")

// Reader yields one Snapshot per event. Events that do not decode are logged and skipped.
type Reader struct {
	scanner *bufio.Scanner
	logger  *zap.Logger
}

func NewReader(r io.Reader, logger *zap.Logger) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &Reader{scanner: sc, logger: logger}
}

// Next blocks until the next complete event. It returns io.EOF when the stream ends.
func (r *Reader) Next() (models.Snapshot, error) {
	var data []byte
	for r.scanner.Scan() {
		line := bytes.TrimSuffix(r.scanner.Bytes(), []byte("\r"))

		if len(line) == 0 {
			if data == nil {
				continue
			}
			snap, err := models.DecodeSnapshot(data)
			if err != nil {
				r.logger.Warn("Skipping malformed event", zap.Error(err), zap.Int("bytes", len(data)))
				data = nil
				continue
			}
			return snap, nil
		}

		// comments and non-data fields (event:, id:, retry:) carry nothing we use
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		value := bytes.TrimPrefix(line[len(dataPrefix):], []byte(" "))
		if data != nil {
			data = append(data, '\n')
		} else {
			data = []byte{}
		}
		data = append(data, value...)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
