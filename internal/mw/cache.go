package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type snapshot struct {
	status int
	header http.Header
	body   []byte
}

// captureWriter tees the response body so it can be stored after the handler runs.
type captureWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// searchKey is the path plus the query with its parameters sorted, so
// reordered filters share an entry.
func searchKey(r *http.Request) string {
	q := r.URL.Query().Encode()
	if q == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q
}

// Cache serves repeated GET searches from memory for ttl. Only 2xx responses
// are stored. A request with "Cache-Control: no-cache" skips the lookup but
// still refreshes the entry. Handlers that change spots or bookings flush
// the store.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := searchKey(c.Request)
		bypass := strings.Contains(c.GetHeader("Cache-Control"), "no-cache")
		if v, ok := store.Get(key); ok && !bypass {
			snap := v.(snapshot)
			for k, vals := range snap.header {
				c.Writer.Header()[k] = vals
			}
			c.Header("X-Cache", "HIT")
			c.Writer.WriteHeader(snap.status)
			_, _ = c.Writer.Write(snap.body)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")
		cw := captureWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = cw
		c.Next()

		if status := cw.Status(); status >= 200 && status < 300 {
			header := cw.Header().Clone()
			header.Del("X-Cache")
			store.Set(key, snapshot{status: status, header: header, body: cw.buf.Bytes()}, ttl)
		}
	}
}
