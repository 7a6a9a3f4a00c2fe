// Package gzippedhttp adds transparent gzip support to the HTTP layer:
// responses are compressed when the client accepts gzip, and gzip-encoded
// request bodies are decompressed before reaching the handlers.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// DecompressedReader wraps an io.ReadCloser carrying gzip-compressed data
// and exposes the decompressed stream.
type DecompressedReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

// NewDecompressedReader returns a reader that decompresses the given
// request body.
func NewDecompressedReader(body io.ReadCloser) (*DecompressedReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &DecompressedReader{
		body: body,
		zr:   zr,
	}, nil
}

// Read reads decompressed data from the underlying gzip stream.
func (d DecompressedReader) Read(p []byte) (n int, err error) {
	return d.zr.Read(p)
}

// Close closes both the gzip reader and the underlying body.
func (d *DecompressedReader) Close() error {
	if err := d.body.Close(); err != nil {
		return err
	}
	return d.zr.Close()
}

// CompressedResponseWriter wraps http.ResponseWriter and gzips the response
// body using a pooled writer.
type CompressedResponseWriter struct {
	w  http.ResponseWriter
	zw *gzip.Writer
}

// NewCompressedResponseWriter returns a writer that compresses everything
// written to it into the provided http.ResponseWriter. The Content-Encoding
// header is set immediately since every body, error responses included,
// goes through the gzip stream.
func NewCompressedResponseWriter(w http.ResponseWriter) *CompressedResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)
	w.Header().Set("Content-Encoding", "gzip")
	return &CompressedResponseWriter{
		w:  w,
		zw: zw,
	}
}

// Header returns the headers of the wrapped response.
func (c *CompressedResponseWriter) Header() http.Header {
	return c.w.Header()
}

// WriteHeader writes the status code.
func (c *CompressedResponseWriter) WriteHeader(statusCode int) {
	c.w.WriteHeader(statusCode)
}

// Write writes gzip-compressed data to the response body.
func (c *CompressedResponseWriter) Write(p []byte) (int, error) {
	return c.zw.Write(p)
}

// Close flushes the gzip stream and returns the writer to the pool.
func (c *CompressedResponseWriter) Close() error {
	if err := c.zw.Close(); err != nil {
		return err
	}
	gzipWriterPool.Put(c.zw)
	return nil
}

// GzipResponse compresses the response when the request's Accept-Encoding
// header allows gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		finalResponse := response

		clientAcceptsGzip := strings.Contains(request.Header.Get("Accept-Encoding"), "gzip")
		if clientAcceptsGzip {
			compressedResponse := NewCompressedResponseWriter(response)
			finalResponse = compressedResponse
			defer compressedResponse.Close()
		}

		h.ServeHTTP(finalResponse, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with a decompressed
// reader before the request reaches the next handler.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		clientSendsGzippedData := strings.Contains(request.Header.Get("Content-Encoding"), "gzip")
		if clientSendsGzippedData {
			decompressedBody, err := NewDecompressedReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusBadRequest)
				return
			}
			request.Body = decompressedBody
			defer decompressedBody.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
