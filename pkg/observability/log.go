package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level, and failures at
// warn level. It implements DocumentHooks, CacheHooks and HTTPHooks.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

// Install registers h for every hook kind.
func (h *LogHooks) Install() {
	SetDocumentHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnIngestStart(_ context.Context, name string) {
	h.logger.Debug("ingest started", "file", name)
}

func (h *LogHooks) OnIngestComplete(_ context.Context, name string, pages int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("ingest failed", "file", name, "error", err)
		return
	}
	h.logger.Debug("ingested", "file", name, "pages", pages, "duration", d)
}

func (h *LogHooks) OnTransformStart(_ context.Context, op string, pages int) {
	h.logger.Debug("transform started", "op", op, "pages", pages)
}

func (h *LogHooks) OnTransformComplete(_ context.Context, op string, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("transform failed", "op", op, "error", err)
		return
	}
	h.logger.Debug("transformed", "op", op, "duration", d)
}

func (h *LogHooks) OnSave(_ context.Context, path string, version int, err error) {
	if err != nil {
		h.logger.Warn("save failed", "path", path, "error", err)
		return
	}
	h.logger.Info("saved", "path", path, "version", version)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	if status >= 500 {
		h.logger.Warn("request failed", "method", method, "path", path, "status", status)
		return
	}
	h.logger.Debug("request", "method", method, "path", path, "status", status, "duration", d)
}

var (
	_ DocumentHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
