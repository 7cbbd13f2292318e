package processor

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/pkg/pool"
)

const (
	writerFlushInterval = 100 * time.Millisecond
	writerFlushRecords  = 1024
)

var bufferPool = pool.NewLitePool(func() *resettableBuffer {
	return &resettableBuffer{Buffer: &bytes.Buffer{}}
})

type resettableBuffer struct {
	*bytes.Buffer
}

func (b *resettableBuffer) Reset() {
	b.Buffer.Reset()
}

// runWriter owns path exclusively for the run's duration, draining in
// until it closes. It flushes every writerFlushRecords records or every
// writerFlushInterval, whichever comes first, so a long-running batch
// never loses more than a fraction of a second of output to a crash.
func runWriter(path string, in <-chan domain.OutcomeRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening output %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 256*1024)
	defer bw.Flush()

	ticker := time.NewTicker(writerFlushInterval)
	defer ticker.Stop()

	unflushed := 0
	scratch := bufferPool.Get()
	defer bufferPool.Put(scratch)

	for {
		select {
		case rec, ok := <-in:
			if !ok {
				return bw.Flush()
			}

			scratch.Reset()
			line, err := rec.MarshalJSONLine()
			if err != nil {
				continue
			}
			scratch.Write(line)
			scratch.WriteByte('\n')
			if _, err := bw.Write(scratch.Bytes()); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			unflushed++
			if unflushed >= writerFlushRecords {
				if err := bw.Flush(); err != nil {
					return fmt.Errorf("flushing %s: %w", path, err)
				}
				unflushed = 0
			}

		case <-ticker.C:
			if unflushed > 0 {
				if err := bw.Flush(); err != nil {
					return fmt.Errorf("flushing %s: %w", path, err)
				}
				unflushed = 0
			}
		}
	}
}
