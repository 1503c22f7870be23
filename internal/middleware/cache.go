package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/dsr-service/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// genTTL bounds how long an idle user's generation counter lives.  It is
// far longer than any request, so an in-flight read never sees the counter
// expire and come back with its old value.
const genTTL = 24 * time.Hour

// storeIfCurrent writes the entry only while the user's generation is the
// one observed before the handler ran.
var storeIfCurrent = redis.NewScript(`
local gen = redis.call("GET", KEYS[1])
if (gen or "") ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// ResponseCache stores successful reads of the report endpoints in Redis.
// Keys are namespaced by the authenticated user, and any successful write
// through Invalidate drops that user's entries so a read never trails the
// user's own write.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *zap.Logger
}

func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log.Named("cache")}
}

func (rc *ResponseCache) enabled() bool { return rc.cfg.Enabled && rc.rdb != nil }

// userPrefix is the key namespace of one user's cached responses.
func (rc *ResponseCache) userPrefix(uid string) string {
	return rc.cfg.Prefix + ":u:" + uid + ":"
}

// genKey counts the user's invalidations.  It sits outside userPrefix so a
// purge leaves it alone.
func (rc *ResponseCache) genKey(uid string) string {
	return rc.cfg.Prefix + ":gen:" + uid
}

func (rc *ResponseCache) keyFor(c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s%x", rc.userPrefix(userKeyPart(c)), sum[:])
}

// Middleware serves cached responses for the configured methods and
// stores 200 responses on a miss.  It must run after JWTAuth.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	maxBody := int64(rc.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			if _, ok := UserIDFrom(c.Request().Context()); !ok {
				return next(c)
			}

			ctx := c.Request().Context()
			key := rc.keyFor(c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			} else if !errors.Is(err, redis.Nil) {
				rc.log.Warn("cache read failed", zap.Error(err))
			}

			// a write that lands while the handler runs bumps the generation
			genKey := rc.genKey(userKeyPart(c))
			gen, err := rc.rdb.Get(ctx, genKey).Result()
			cacheable := err == nil || errors.Is(err, redis.Nil)
			if !cacheable {
				rc.log.Warn("cache generation read failed", zap.Error(err))
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			// a truncated body must never be replayed
			if !cacheable || cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			stored, err := storeIfCurrent.Run(context.WithoutCancel(ctx), rc.rdb,
				[]string{genKey, key}, gen, payload, rc.cfg.TTL.Milliseconds()).Int()
			if err != nil {
				rc.log.Warn("cache write failed", zap.Error(err))
			} else if stored == 0 {
				rc.log.Debug("cache write skipped: invalidated during read")
			}
			return nil
		}
	}
}

// Invalidate drops the caller's cached responses after a successful (2xx)
// write.  It must run after JWTAuth.
func (rc *ResponseCache) Invalidate() echo.MiddlewareFunc {
	if !rc.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				return err
			}
			if status := c.Response().Status; status < 200 || status >= 300 {
				return nil
			}
			if _, ok := UserIDFrom(c.Request().Context()); !ok {
				return nil
			}
			ctx := context.WithoutCancel(c.Request().Context())
			uid := userKeyPart(c)
			if derr := rc.bump(ctx, uid); derr != nil {
				rc.log.Warn("cache generation bump failed", zap.Error(derr))
			}
			if n, derr := rc.purge(ctx, uid); derr != nil {
				rc.log.Warn("cache invalidation failed", zap.Error(derr))
			} else if n > 0 {
				rc.log.Debug("cache invalidated", zap.Int("keys", n))
			}
			return nil
		}
	}
}

func (rc *ResponseCache) bump(ctx context.Context, uid string) error {
	pipe := rc.rdb.TxPipeline()
	pipe.Incr(ctx, rc.genKey(uid))
	pipe.Expire(ctx, rc.genKey(uid), genTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (rc *ResponseCache) purge(ctx context.Context, uid string) (int, error) {
	var (
		cursor uint64
		total  int
	)
	match := rc.userPrefix(uid) + "*"
	for {
		keys, next, err := rc.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return total, err
		}
		if len(keys) > 0 {
			if err := rc.rdb.Del(ctx, keys...).Err(); err != nil {
				return total, err
			}
			total += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
