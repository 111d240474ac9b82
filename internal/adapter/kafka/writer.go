package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/config"
	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces one message per assessment to a Kafka topic.
// It implements pipeline.SnapshotLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured assessment topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadSnapshot serializes and publishes every assessment in the snapshot in
// a single WriteMessages call. Messages are keyed by equipment ID so each
// asset's history stays on one partition. An assessment that cannot be
// serialized is logged and skipped.
func (w *Writer) LoadSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || len(snap.Assessments) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(snap.Assessments))
	for i := range snap.Assessments {
		msg, err := serializeToMessage(snap, snap.Assessments[i])
		if err != nil {
			w.logger.Warn("skipping assessment", "snapshot_id", snap.ID, "equipment_id", snap.Assessments[i].ID, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write assessments: %w", err)
	}
	w.logger.Debug("snapshot published", "snapshot_id", snap.ID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// assessmentMessage is the published value: one assessment plus the
// snapshot it belongs to.
type assessmentMessage struct {
	SnapshotID string                 `json:"snapshot_id"`
	Weather    *domain.WeatherContext `json:"weather,omitempty"`
	domain.Assessment
}

// serializeToMessage marshals an Assessment into a Kafka message.
func serializeToMessage(snap *domain.Snapshot, a domain.Assessment) (kafkago.Message, error) {
	data, err := json.Marshal(assessmentMessage{
		SnapshotID: snap.ID,
		Weather:    snap.Weather,
		Assessment: a,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment %s: %w", a.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(a.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(a.RiskLevel)},
			{Key: "snapshot_id", Value: []byte(snap.ID)},
			{Key: "assessed_at", Value: []byte(a.AssessedAt.Format(time.RFC3339))},
		},
	}, nil
}
