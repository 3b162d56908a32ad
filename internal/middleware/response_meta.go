package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

// ResponseMeta is the envelope meta block of read-model responses.
type ResponseMeta struct {
	RequestID        string `json:"requestId,omitempty"`
	CacheHit         *bool  `json:"cacheHit,omitempty"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`

	started time.Time
}

// TrackResponseMeta opens the meta block for the request. Mount it after requestid.Middleware.
func TrackResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &ResponseMeta{RequestID: requestid.Value(c), started: time.Now()})
		c.Next()
	}
}

// MarkCacheResult records whether the payload was served from the analytics cache.
func MarkCacheResult(c *gin.Context, hit bool) {
	metaFor(c).CacheHit = &hit
}

// ResponseMetaFor returns the request's meta block with the elapsed time filled in.
func ResponseMetaFor(c *gin.Context) *ResponseMeta {
	meta := metaFor(c)
	if !meta.started.IsZero() {
		meta.ProcessingTimeMs = time.Since(meta.started).Milliseconds()
	}
	return meta
}

func metaFor(c *gin.Context) *ResponseMeta {
	if v, ok := c.Get(responseMetaKey); ok {
		if meta, ok := v.(*ResponseMeta); ok {
			return meta
		}
	}
	meta := &ResponseMeta{RequestID: requestid.Value(c), started: time.Now()}
	c.Set(responseMetaKey, meta)
	return meta
}
