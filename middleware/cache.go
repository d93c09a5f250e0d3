package middleware

import (
	"bytes"
	"net/http"

	"restaurant-ordering-api/cache"

	"github.com/gin-gonic/gin"
)

const CacheHeader = "X-Cache"

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheResponse serves successful GET responses from store, keyed by the
// full request URL. Writes elsewhere do not invalidate entries; they expire
// with the store's TTL.
func CacheResponse(store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		key := c.Request.URL.RequestURI()
		if body, ok := store.Get(c.Request.Context(), key); ok {
			c.Header(CacheHeader, "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Header(CacheHeader, "MISS")
		c.Next()

		if rec.Status() == http.StatusOK && rec.body.Len() > 0 {
			store.Set(c.Request.Context(), key, bytes.Clone(rec.body.Bytes()))
		}
	}
}
