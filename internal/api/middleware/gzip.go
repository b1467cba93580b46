package middleware

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

var gzipPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(nil, gzip.DefaultCompression)
		return w
	},
}

type gzipWriter struct {
	gin.ResponseWriter
	gz *gzip.Writer
}

// Write starts compression lazily so empty bodies stay empty
func (w *gzipWriter) Write(data []byte) (int, error) {
	if w.gz == nil {
		h := w.Header()
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		h.Del("Content-Length")
		w.gz = gzipPool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
	}
	return w.gz.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush pushes buffered compressed bytes to the client
func (w *gzipWriter) Flush() {
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *gzipWriter) close() {
	if w.gz == nil {
		return
	}
	_ = w.gz.Close()
	gzipPool.Put(w.gz)
	w.gz = nil
}

// Gzip compresses responses for clients that accept it. WebSocket upgrades
// and paths with a listed prefix pass through untouched.
func Gzip(skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !acceptsGzip(c) || skipped(c.Request.URL.Path, skipPrefixes) {
			c.Next()
			return
		}

		w := &gzipWriter{ResponseWriter: c.Writer}
		c.Writer = w
		defer func() {
			w.close()
			c.Writer = w.ResponseWriter
		}()
		c.Next()
	}
}

func acceptsGzip(c *gin.Context) bool {
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return false
	}
	return strings.Contains(c.GetHeader("Accept-Encoding"), "gzip")
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
