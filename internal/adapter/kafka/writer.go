// Package kafka publishes anomaly alerts so downstream consumers can react
// to unusual weather without polling the report API.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-insights/internal/domain"
)

// Writer produces anomaly alerts to a Kafka topic.
// It implements pipeline.AlertPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the alert topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAlerts serializes and publishes the flagged days of one report in a
// single WriteMessages call.
func (w *Writer) PublishAlerts(ctx context.Context, reportID string, anomalies []domain.AnomalyResult) error {
	if len(anomalies) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(anomalies))
	for i := range anomalies {
		msg, err := serializeToMessage(reportID, anomalies[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return &domain.ExternalServiceError{Service: "kafka", Err: err}
	}
	w.logger.Debug("published anomaly alerts", "report_id", reportID, "count", len(anomalies))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// alertPayload is the wire format of one anomaly alert.
type alertPayload struct {
	ReportID string             `json:"report_id"`
	Date     string             `json:"date"`
	Score    float64            `json:"score"`
	Features []domain.FieldName `json:"features"`
}

// serializeToMessage marshals one flagged day into a Kafka message keyed by
// date so re-published alerts for the same day compact together.
func serializeToMessage(reportID string, a domain.AnomalyResult) (kafkago.Message, error) {
	date := a.Date.Format(domain.DateLayout)
	data, err := json.Marshal(alertPayload{
		ReportID: reportID,
		Date:     date,
		Score:    a.Score,
		Features: a.Features,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize anomaly alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_id", Value: []byte(reportID)},
			{Key: "published_at", Value: []byte(domain.Now().Format(time.RFC3339))},
		},
	}, nil
}
