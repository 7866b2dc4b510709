package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/observability"
	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyKeyMinLen = 20
	idempotencyKeyMaxLen = 300
)

type IdempotencyConfig struct {
	DefaultTenant string
	SkipPaths     []string
}

// captureWriter tees the response body so a completed request can be stored
// for replay. gin keeps streaming to the client as usual.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays stored responses for repeated mutating requests that
// carry an Idempotency-Key header. The first execution is stored after the
// handler finished, so the business transaction is never gated on the store;
// a reused key with a different request is rejected, never re-executed.
func Idempotency(repo repository.IdempotencyRepository, cfg IdempotencyConfig, log *logrus.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	if cfg.DefaultTenant == "" {
		cfg.DefaultTenant = "public"
	}
	return func(c *gin.Context) {
		switch c.Request.Method {
		case nethttp.MethodPost, nethttp.MethodPut, nethttp.MethodPatch, nethttp.MethodDelete:
		default:
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPaths {
			if prefix != "" && strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if key == "" {
			c.Next()
			return
		}
		if len(key) < idempotencyKeyMinLen || len(key) > idempotencyKeyMaxLen {
			response.RespondError(c, nethttp.StatusBadRequest, "idempotency key must be between 20 and 300 characters")
			c.Abort()
			return
		}

		tenant := strings.TrimSpace(c.GetHeader("X-Tenant-Slug"))
		if tenant == "" {
			tenant = cfg.DefaultTenant
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.RespondError(c, nethttp.StatusBadRequest, "invalid request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		method := c.Request.Method
		path := c.Request.URL.Path
		hash := fingerprint(method, path, tenant, body)

		rec, err := repo.Find(c.Request.Context(), tenant, method, path, key)
		if err == nil {
			if rec.RequestHash != hash {
				if metrics != nil {
					metrics.IdempotencyConflicts.Inc()
				}
				response.RespondError(c, nethttp.StatusConflict, "idempotency key was already used with a different request")
				c.Abort()
				return
			}
			if metrics != nil {
				metrics.IdempotencyReplays.Inc()
			}
			contentType := rec.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Header("X-Idempotency-Replayed", "true")
			c.Data(rec.StatusCode, contentType, rec.ResponseBody)
			c.Abort()
			return
		}
		if !errors.Is(err, repository.ErrNotFound) {
			// Without the lookup we cannot tell a retry from a first attempt,
			// so running the handler could execute the mutation twice.
			log.WithError(err).Error("idempotency lookup failed")
			response.RespondError(c, nethttp.StatusInternalServerError, "idempotency lookup failed")
			c.Abort()
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= 500 {
			return
		}

		// Best effort: the response already reached the client, so a store
		// failure only costs replay protection for this key.
		storeErr := repo.Create(c.Request.Context(), &entity.IdempotencyRecord{
			TenantSlug:     tenant,
			Method:         method,
			Path:           path,
			IdempotencyKey: key,
			RequestHash:    hash,
			StatusCode:     status,
			ContentType:    writer.Header().Get("Content-Type"),
			ResponseBody:   bytes.Clone(writer.body.Bytes()),
		})
		if storeErr != nil {
			log.WithError(storeErr).WithFields(logrus.Fields{
				"tenant_slug": tenant,
				"method":      method,
				"path":        path,
			}).Warn("idempotency record store failed")
		}
	}
}

// fingerprint hashes the request identity. The joints keep distinct field
// splits from colliding on concatenation.
func fingerprint(method, path, tenant string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte("|"))
	h.Write([]byte(path))
	h.Write([]byte("|"))
	h.Write([]byte(tenant))
	h.Write([]byte("|"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
