package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tinoosan/ftsd/internal/data"
)

// HTTPControlSender posts delivery reports to a signaling gateway that owns
// the actual out-of-band message (e.g. a SIP MESSAGE). The gateway address is
// fixed at construction.
type HTTPControlSender struct {
	base   *url.URL
	client *http.Client
	log    *slog.Logger
}

var _ ControlSender = (*HTTPControlSender)(nil)

// NewHTTPControlSender builds a sender targeting the given gateway URL.
func NewHTTPControlSender(rawURL string, client *http.Client, log *slog.Logger) (*HTTPControlSender, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("control gateway url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPControlSender{base: u, client: client, log: log}, nil
}

type controlMessage struct {
	RemoteInstanceID string              `json:"remoteInstanceId"`
	Report           data.DeliveryReport `json:"report"`
}

// SendImmediate delivers the report to the gateway in a single request; any
// non-2xx answer is a dispatch failure.
func (s *HTTPControlSender) SendImmediate(ctx context.Context, remoteInstanceID string, r data.DeliveryReport) error {
	body, _ := json.Marshal(controlMessage{RemoteInstanceID: remoteInstanceID, Report: r})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("control gateway http %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// NopControlSender logs and drops reports. Used when no signaling gateway is
// configured, so the rest of the pipeline still exercises end to end.
type NopControlSender struct {
	log *slog.Logger
}

var _ ControlSender = (*NopControlSender)(nil)

func NewNopControlSender(log *slog.Logger) *NopControlSender {
	if log == nil {
		log = slog.Default()
	}
	return &NopControlSender{log: log}
}

func (s *NopControlSender) SendImmediate(_ context.Context, remoteInstanceID string, r data.DeliveryReport) error {
	s.log.Info("control sender not configured, dropping report",
		"msg_id", r.MessageID, "status", r.Status, "remote_instance", remoteInstanceID)
	return nil
}
