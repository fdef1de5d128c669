package notify

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/log"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

// MQTTConfig configures the MQTT notification transport.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TopicRoot string
	UserID    string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16
	// ConnectTimeout for each connection attempt. Default is 5s.
	ConnectTimeout time.Duration
}

func (c *MQTTConfig) setDefaults() {
	if c.KeepAlive == 0 {
		c.KeepAlive = 60
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.TopicRoot == "" {
		c.TopicRoot = "commute"
	}
}

func (c *MQTTConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	if _, err := url.Parse(c.BrokerURL); err != nil {
		return fmt.Errorf("broker url: %w", err)
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	if c.UserID == "" {
		return errors.New("user id is required")
	}
	return nil
}

// NotificationTopic is the topic a user's alerts are published on.
func NotificationTopic(root, userID string) string {
	return strings.TrimSuffix(root, "/") + "/" + userID + "/notifications"
}

// MQTTTransport publishes notifications as JSON with QoS 1.
type MQTTTransport struct {
	cfg   MQTTConfig
	topic string
	cm    *autopaho.ConnectionManager
}

// NewMQTTTransport starts a managed connection to the broker. It does not
// wait for the first connection; publishes block until one is up or ctx
// ends.
func NewMQTTTransport(ctx context.Context, cfg MQTTConfig) (*MQTTTransport, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	brokerURL, _ := url.Parse(cfg.BrokerURL)

	logger := log.WithName("mqtt")

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     cfg.KeepAlive,
		CleanStartOnInitialConnection: true,
		ReconnectBackoff:              autopaho.NewConstantBackoff(3 * time.Second),
		ConnectTimeout:                cfg.ConnectTimeout,
		ConnectUsername:               cfg.Username,
		ConnectPassword:               []byte(cfg.Password),
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			logger.Info("mqtt connection up", "broker", cfg.BrokerURL)
		},
		OnConnectError: func(err error) {
			logger.Error(err, "mqtt connection failed, retrying")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
			OnClientError: func(err error) {
				logger.Error(err, "mqtt client error")
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					logger.Warn("mqtt server requested disconnect", "reason", d.Properties.ReasonString)
					return
				}
				logger.Warn("mqtt server requested disconnect", "reason_code", d.ReasonCode)
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return &MQTTTransport{
		cfg:   cfg,
		topic: NotificationTopic(cfg.TopicRoot, cfg.UserID),
		cm:    cm,
	}, nil
}

func (t *MQTTTransport) Send(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("mqtt encode notification: %w", err)
	}

	if err := t.cm.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("mqtt await connection: %w", err)
	}

	if _, err := t.cm.Publish(ctx, &paho.Publish{
		Topic:   t.topic,
		QoS:     1,
		Payload: payload,
	}); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", t.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (t *MQTTTransport) Close(ctx context.Context) error {
	if err := t.cm.Disconnect(ctx); err != nil {
		return fmt.Errorf("mqtt disconnect: %w", err)
	}
	return nil
}
