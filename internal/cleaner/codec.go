package cleaner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
)

// Codec is a stream compression format
type Codec interface {
	Name() string
	// Ext is the file name suffix including the dot
	Ext() string
	NewWriter(w io.Writer, name string, modTime time.Time) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

var codecs = []Codec{gzipCodec{}, zstdCodec{}}

// CodecByName returns the codec called name ("gzip" or "zstd")
func CodecByName(name string) (Codec, error) {
	for _, c := range codecs {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// CodecForPath returns the codec matching the path's extension
func CodecForPath(path string) (Codec, bool) {
	for _, c := range codecs {
		if strings.HasSuffix(path, c.Ext()) {
			return c, true
		}
	}
	return nil, false
}

// Extensions lists the suffixes of every known codec
func Extensions() []string {
	out := make([]string, len(codecs))
	for i, c := range codecs {
		out[i] = c.Ext()
	}
	return out
}

type gzipCodec struct{}

func (gzipCodec) Name() string { return "gzip" }
func (gzipCodec) Ext() string  { return ".gz" }

func (gzipCodec) NewWriter(w io.Writer, name string, modTime time.Time) (io.WriteCloser, error) {
	gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	gz.Header.Name = name
	gz.Header.ModTime = modTime
	return gz, nil
}

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

type zstdCodec struct{}

func (zstdCodec) Name() string { return "zstd" }
func (zstdCodec) Ext() string  { return ".zst" }

func (zstdCodec) NewWriter(w io.Writer, _ string, _ time.Time) (io.WriteCloser, error) {
	return zstd.NewWriter(w,
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
}

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}
