// Package metadata extracts embedded metadata (capture time, GPS, pixel
// dimensions) from a bounded prefix of an object's byte stream. Embedded
// metadata blocks live near the front of well-formed media files, so the
// extractor never materializes the whole file: it reads at most a fixed cap
// and then closes the stream instead of draining it.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"

	"photocat/pkg/dto"
)

const (
	// DefaultMaxPrefixBytes is the default byte cap read per object.
	DefaultMaxPrefixBytes = 512 * 1024
	// DefaultTimeout is the default wall-clock budget per object.
	DefaultTimeout = 30 * time.Second
)

var registerOnce sync.Once

// Extractor parses embedded metadata from object streams.
type Extractor struct {
	maxBytes int64
	timeout  time.Duration
	log      *slog.Logger
}

// NewExtractor creates an extractor; non-positive arguments fall back to the
// package defaults.
func NewExtractor(maxBytes int64, timeout time.Duration) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPrefixBytes
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{
		maxBytes: maxBytes,
		timeout:  timeout,
		log:      slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for the extractor.
func (e *Extractor) SetLogger(log *slog.Logger) {
	e.log = log
}

// Extract reads at most the configured cap from the stream and parses whatever
// metadata is discoverable in that prefix. A stalled stream (timeout) or an
// unparseable prefix both resolve to an empty Metadata with a nil error:
// metadata is an enhancement, not a correctness requirement. Only an actual
// read failure from the store is returned as an error, so the caller can mark
// the record for retry. Extract always closes the stream.
func (e *Extractor) Extract(ctx context.Context, rc io.ReadCloser) (dto.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prefix, err := e.readPrefix(ctx, rc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.log.Warn("metadata stream timed out, treating as no metadata")
			return dto.Metadata{}, nil
		}
		return dto.Metadata{}, err
	}
	return e.parse(prefix), nil
}

// readPrefix reads up to maxBytes from the stream, honoring the context
// deadline. The stream is closed as soon as the cap is reached or the context
// fires; it is never drained.
func (e *Extractor) readPrefix(ctx context.Context, rc io.ReadCloser) ([]byte, error) {
	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)

	go func() {
		data, err := io.ReadAll(io.LimitReader(rc, e.maxBytes))
		_ = rc.Close()
		done <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		// Closing the stream unblocks the reader goroutine.
		_ = rc.Close()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return r.data, nil
	}
}

// parse decodes EXIF data from the buffered prefix. Corrupt or unrecognized
// metadata yields an empty result, never an error.
func (e *Extractor) parse(prefix []byte) dto.Metadata {
	registerOnce.Do(func() {
		exif.RegisterParsers(mknote.All...)
	})

	var meta dto.Metadata
	x, err := exif.Decode(bytes.NewReader(prefix))
	if err != nil {
		e.log.Debug("no parseable metadata in stream prefix", slog.String("error", err.Error()))
		return meta
	}

	if taken, err := x.DateTime(); err == nil {
		meta.TakenAt = &taken
	}
	if lat, long, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &long
	}
	if tag, err := x.Get(exif.PixelXDimension); err == nil {
		if w, err := tag.Int(0); err == nil {
			meta.Width = &w
		}
	}
	if tag, err := x.Get(exif.PixelYDimension); err == nil {
		if h, err := tag.Int(0); err == nil {
			meta.Height = &h
		}
	}
	return meta
}
