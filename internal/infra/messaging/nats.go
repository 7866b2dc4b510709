package messaging

import (
	"context"
	"errors"

	"github.com/bookline/ballast/internal/config"
	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/nats-io/nats.go"
)

// Headers carried on every published event. The Nats-Msg-Id header doubles as
// the broker-side dedup key, so republishing after a crashed dispatch pass is
// harmless.
const (
	HeaderEventID      = "Ballast-Event-Id"
	HeaderTopic        = "Ballast-Topic"
	HeaderTenantID     = "Ballast-Tenant-Id"
	HeaderPartitionKey = "Ballast-Partition-Key"
)

type NATSClient struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	cfg  config.NATS
}

func NewNATS(ctx context.Context, cfg config.NATS) (*NATSClient, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	if cfg.Stream == "" || cfg.SubjectPrefix == "" {
		return nil, errors.New("nats: stream and subject_prefix are required")
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("ballast"))
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ensureStream(ctx, js, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	return &NATSClient{conn: conn, js: js, cfg: cfg}, nil
}

func (c *NATSClient) Close() {
	if c == nil || c.conn == nil {
		return
	}
	c.conn.Close()
}

func (c *NATSClient) JetStream() nats.JetStreamContext {
	if c == nil {
		return nil
	}
	return c.js
}

// Subject maps an outbox topic onto the stream's subject space.
func (c *NATSClient) Subject(topic string) string {
	return c.cfg.SubjectPrefix + "." + topic
}

// PublishEvent sends one outbox row to JetStream with the event id as the
// broker dedup key.
func (c *NATSClient) PublishEvent(ctx context.Context, event entity.OutboxEvent) error {
	if c == nil {
		return errors.New("nats: client is not configured")
	}
	if c.js == nil {
		return errors.New("nats: jetstream not initialized")
	}

	msg := nats.NewMsg(c.Subject(event.Topic))
	msg.Data = []byte(event.Payload)
	msg.Header.Set(nats.MsgIdHdr, event.ID.String())
	msg.Header.Set(HeaderEventID, event.ID.String())
	msg.Header.Set(HeaderTopic, event.Topic)
	if event.TenantID != nil {
		msg.Header.Set(HeaderTenantID, event.TenantID.String())
	}
	if event.PartitionKey != "" {
		msg.Header.Set(HeaderPartitionKey, event.PartitionKey)
	}

	_, err := c.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

func (c *NATSClient) Publish(ctx context.Context, subject string, payload []byte, msgID string) error {
	if c == nil {
		return nil
	}
	if c.js == nil {
		return errors.New("nats: jetstream not initialized")
	}
	msg := nats.NewMsg(subject)
	msg.Data = payload
	if msgID != "" {
		msg.Header.Set(nats.MsgIdHdr, msgID)
	}
	_, err := c.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

func ensureStream(ctx context.Context, js nats.JetStreamContext, cfg config.NATS) error {
	subjects := []string{cfg.SubjectPrefix + ".>"}
	if cfg.DLQSubject != "" {
		subjects = append(subjects, cfg.DLQSubject)
	}

	info, err := js.StreamInfo(cfg.Stream, nats.Context(ctx))
	if err == nil {
		changed := false
		if !sameSubjects(info.Config.Subjects, subjects) {
			info.Config.Subjects = subjects
			changed = true
		}
		if cfg.StreamMaxMsgs > 0 && info.Config.MaxMsgs != cfg.StreamMaxMsgs {
			info.Config.MaxMsgs = cfg.StreamMaxMsgs
			changed = true
		}
		if changed {
			_, err = js.UpdateStream(&info.Config, nats.Context(ctx))
		}
		return err
	}

	if errors.Is(err, nats.ErrStreamNotFound) {
		streamCfg := &nats.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  subjects,
			Storage:   nats.FileStorage,
			Retention: nats.LimitsPolicy,
		}
		if cfg.StreamMaxMsgs > 0 {
			streamCfg.MaxMsgs = cfg.StreamMaxMsgs
		}
		_, err = js.AddStream(streamCfg, nats.Context(ctx))
		return err
	}
	return err
}

func sameSubjects(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		if seen[s] == 0 {
			return false
		}
		seen[s]--
	}
	for _, v := range seen {
		if v != 0 {
			return false
		}
	}
	return true
}
