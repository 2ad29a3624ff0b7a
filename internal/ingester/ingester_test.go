package ingester

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestParseMessage(t *testing.T) {
	validTime := time.Date(2024, 2, 14, 10, 30, 0, 0, time.UTC).Format(time.RFC3339Nano)

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{
			name:  "valid tick",
			value: `{"symbol":"NIFTY","price":21505.5,"open":21480,"high":21520,"low":21450,"volume":125000,"time":"` + validTime + `"}`,
		},
		{
			name:    "malformed json",
			value:   `{"symbol":`,
			wantErr: true,
		},
		{
			name:    "missing symbol",
			value:   `{"price":21505.5,"time":"` + validTime + `"}`,
			wantErr: true,
		},
		{
			name:    "zero price",
			value:   `{"symbol":"NIFTY","price":0,"time":"` + validTime + `"}`,
			wantErr: true,
		},
		{
			name:    "negative price",
			value:   `{"symbol":"NIFTY","price":-1,"time":"` + validTime + `"}`,
			wantErr: true,
		},
		{
			name:    "bad time",
			value:   `{"symbol":"NIFTY","price":21505.5,"time":"yesterday"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := parseMessage(kafka.Message{Value: []byte(tt.value)})
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got record %+v", record)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if record.Symbol != "NIFTY" || record.Price != 21505.5 {
				t.Errorf("Unexpected record: %+v", record)
			}
		})
	}
}
