package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects for the document pipeline.
const (
	SubjectTextExtracted     = "legalintel.document.text_extracted"
	SubjectMetadataExtracted = "legalintel.document.metadata_extracted"
	SubjectExtractionFailed  = "legalintel.document.extraction_failed"
	SubjectServiceRegistered = "legalintel.service.registered"

	// SubjectAll matches every subject above.
	SubjectAll = "legalintel.>"
)

// MetadataExtracted is published after a document's metadata has been stored.
type MetadataExtracted struct {
	DocumentID           string    `json:"document_id"`
	AgreementType        *string   `json:"agreement_type"`
	Jurisdiction         *string   `json:"jurisdiction"`
	ExtractionConfidence float64   `json:"extraction_confidence"`
	ExtractedAt          time.Time `json:"extracted_at"`
}

// ExtractionFailed is published when a document could not be processed.
type ExtractionFailed struct {
	DocumentID string `json:"document_id"`
	Stage      string `json:"stage"` // fetch | persist
	Error      string `json:"error"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("legalintel"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// Subscribe delivers every message on subject to handler, one at a time.
func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// QueueSubscribe is Subscribe with load balancing across every instance in
// the same queue group.
func (c *Client) QueueSubscribe(subject, queue string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("queue subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject, "queue", queue)
	return nil
}

// Flush blocks until the server has processed everything published so far.
func (c *Client) Flush() error {
	return c.conn.Flush()
}

// Connected reports whether the connection is currently up. It is false
// while reconnecting.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
