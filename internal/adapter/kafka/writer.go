// Package kafka publishes imputed observation rows to a downstream topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/station-data-impute/internal/config"
	"github.com/couchcryptid/station-data-impute/internal/domain"
)

// Writer produces imputed rows to a Kafka topic.
// It implements pipeline.ResultPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and produces all rows in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, rows []domain.ResultRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// rowPayload is the wire form of one imputed row. Features are keyed by
// column name; cells still missing after imputation are omitted, since JSON
// has no encoding for NaN.
type rowPayload struct {
	StationID string             `json:"station_id"`
	DataTime  string             `json:"data_time"`
	Longitude *float64           `json:"longitude,omitempty"`
	Latitude  *float64           `json:"latitude,omitempty"`
	Altitude  *float64           `json:"altitude,omitempty"`
	Features  map[string]float64 `json:"features"`
}

// serializeToMessage marshals a result row into a Kafka message keyed by
// station ID so each station's rows stay in one partition.
func serializeToMessage(row domain.ResultRow) (kafkago.Message, error) {
	payload := rowPayload{
		StationID: row.StationID,
		DataTime:  row.DataTime,
		Longitude: presentOrNil(row.Longitude),
		Latitude:  presentOrNil(row.Latitude),
		Altitude:  presentOrNil(row.Altitude),
		Features:  make(map[string]float64, len(row.Values)),
	}
	for i, col := range domain.FeatureColumns() {
		if i < len(row.Values) && !domain.IsMissing(row.Values[i]) {
			payload.Features[col] = row.Values[i]
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize imputed row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(row.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "data_time", Value: []byte(row.DataTime)},
		},
	}, nil
}

func presentOrNil(v float64) *float64 {
	if domain.IsMissing(v) {
		return nil
	}
	return &v
}
