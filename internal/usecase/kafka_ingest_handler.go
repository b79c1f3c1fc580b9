package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"ratewatch/internal/domain/models"
	pkgkafka "ratewatch/pkg/kafka"
	applogger "ratewatch/pkg/logger"
	"ratewatch/pkg/util"
)

// KafkaIngestHandler turns ingestion-request messages into Run calls on
// the same orchestrator the timer and the HTTP command use.
type KafkaIngestHandler struct {
	topic  string
	ingest *IngestUseCase
	l      *applogger.Logger
}

func NewKafkaIngestHandler(topic string, ingest *IngestUseCase, l *applogger.Logger) *KafkaIngestHandler {
	return &KafkaIngestHandler{topic: topic, ingest: ingest, l: l}
}

func (h *KafkaIngestHandler) Topic() string { return h.topic }

// incoming message schema: {pairs, invalidate_cache, requested_at}
func (h *KafkaIngestHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Pairs           []string `json:"pairs"`
		InvalidateCache *bool    `json:"invalidate_cache"`
		RequestedAt     string   `json:"requested_at"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decode ingest message: %w", err)
	}

	params := models.IngestParams{InvalidateCache: true}
	if m.InvalidateCache != nil {
		params.InvalidateCache = *m.InvalidateCache
	}
	for _, raw := range m.Pairs {
		pair, ok := models.ParsePair(raw)
		if !ok {
			return fmt.Errorf("unsupported pair in ingest message: %q", raw)
		}
		params.Pairs = append(params.Pairs, pair)
	}
	if m.RequestedAt != "" {
		if t, ok := util.ParseTime(m.RequestedAt); ok {
			params.RequestedAt = t
		}
	}

	summary := h.ingest.Run(ctx, params)
	if len(summary.Failed) > 0 {
		h.l.Warn("message-triggered ingestion had failures",
			applogger.Int("failed", len(summary.Failed)),
		)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaIngestHandler)(nil)
