package metadata_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocat/pkg/metadata"
)

// countingReadCloser tracks how many bytes were actually pulled from the
// underlying stream.
type countingReadCloser struct {
	r      io.Reader
	read   atomic.Int64
	closed atomic.Bool
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read.Add(int64(n))
	return n, err
}

func (c *countingReadCloser) Close() error {
	c.closed.Store(true)
	return nil
}

// stallingReadCloser blocks every Read until the stream is closed.
type stallingReadCloser struct {
	unblock chan struct{}
}

func newStallingReadCloser() *stallingReadCloser {
	return &stallingReadCloser{unblock: make(chan struct{})}
}

func (s *stallingReadCloser) Read(_ []byte) (int, error) {
	<-s.unblock
	return 0, io.EOF
}

func (s *stallingReadCloser) Close() error {
	select {
	case <-s.unblock:
	default:
		close(s.unblock)
	}
	return nil
}

// failingReadCloser returns a transport error after a short prefix.
type failingReadCloser struct {
	err error
}

func (f *failingReadCloser) Read(_ []byte) (int, error) { return 0, f.err }
func (f *failingReadCloser) Close() error               { return nil }

func TestExtract_NonMetadataStreamYieldsEmptyResult(t *testing.T) {
	e := metadata.NewExtractor(512*1024, time.Second)

	rc := &countingReadCloser{r: bytes.NewReader(bytes.Repeat([]byte{0xAB}, 64*1024))}
	meta, err := e.Extract(context.Background(), rc)

	require.NoError(t, err, "garbage bytes are not an error, just no metadata")
	assert.True(t, meta.IsEmpty())
	assert.True(t, rc.closed.Load(), "stream must be closed after extraction")
}

func TestExtract_ReadsAtMostTheConfiguredCap(t *testing.T) {
	const prefixCap = 512 * 1024
	e := metadata.NewExtractor(prefixCap, time.Second)

	// A stream four times larger than the cap. Extraction must finish
	// without draining it.
	rc := &countingReadCloser{r: bytes.NewReader(bytes.Repeat([]byte{0xCD}, 4*prefixCap))}
	meta, err := e.Extract(context.Background(), rc)

	require.NoError(t, err)
	assert.True(t, meta.IsEmpty())
	assert.LessOrEqual(t, rc.read.Load(), int64(prefixCap), "extractor must not read past the prefix cap")
	assert.True(t, rc.closed.Load())
}

func TestExtract_StalledStreamTimesOutWithoutError(t *testing.T) {
	e := metadata.NewExtractor(512*1024, 50*time.Millisecond)

	rc := newStallingReadCloser()
	start := time.Now()
	meta, err := e.Extract(context.Background(), rc)

	require.NoError(t, err, "a timeout resolves to empty metadata, not an error")
	assert.True(t, meta.IsEmpty())
	assert.Less(t, time.Since(start), 2*time.Second, "extraction must not block past its budget")
}

func TestExtract_StoreReadErrorIsReturned(t *testing.T) {
	e := metadata.NewExtractor(512*1024, time.Second)

	transportErr := errors.New("connection reset")
	_, err := e.Extract(context.Background(), &failingReadCloser{err: transportErr})

	require.Error(t, err, "a failed read must surface so the caller can retry")
	assert.ErrorIs(t, err, transportErr)
}

func TestExtract_EmptyStream(t *testing.T) {
	e := metadata.NewExtractor(512*1024, time.Second)

	meta, err := e.Extract(context.Background(), io.NopCloser(bytes.NewReader(nil)))

	require.NoError(t, err)
	assert.True(t, meta.IsEmpty())
}
