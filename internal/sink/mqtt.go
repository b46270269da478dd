package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// MQTTSink публикует элементы в MQTT-топик.
//
// Соединение устанавливается лениво при первой доставке и
// переиспользуется; paho сам переподключается при обрыве.
//
// Конфигурация (params):
//
//	{
//	    "broker": "tcp://localhost:1883",  // обязателен
//	    "topic": "conveyor/alerts",        // обязателен
//	    "client_id": "conveyor-alerts",
//	    "qos": 1,
//	    "retained": false
//	}
type MQTTSink struct {
	id       string
	topic    string
	qos      byte
	retained bool
	opts     *mqtt.ClientOptions

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTSink создаёт MQTTSink из декларации.
func NewMQTTSink(def *domain.SinkDef) (*MQTTSink, error) {
	broker := params.String(def.Params, "broker")
	if broker == "" {
		return nil, fmt.Errorf("%w: %s: broker is required", ErrInvalidConfig, def.ID)
	}
	topic := params.String(def.Params, "topic")
	if topic == "" {
		return nil, fmt.Errorf("%w: %s: topic is required", ErrInvalidConfig, def.ID)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(params.StringOr(def.Params, "client_id", "conveyor-"+def.ID))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	return &MQTTSink{
		id:       def.ID,
		topic:    topic,
		qos:      byte(params.Int(def.Params, "qos")),
		retained: params.Bool(def.Params, "retained", false),
		opts:     opts,
	}, nil
}

// ID возвращает идентификатор sink.
func (s *MQTTSink) ID() string {
	return s.id
}

// SupportsBatch сообщает, что батчи не поддерживаются: MQTT
// публикует сообщения по одному.
func (s *MQTTSink) SupportsBatch() bool {
	return false
}

// Send публикует один элемент.
func (s *MQTTSink) Send(ctx context.Context, item *domain.DataItem) error {
	client, err := s.connect()
	if err != nil {
		return err
	}

	body, err := encodeItem(item)
	if err != nil {
		return err
	}

	token := client.Publish(s.topic, s.qos, s.retained, body)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", s.topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendBatch публикует элементы по одному.
func (s *MQTTSink) SendBatch(ctx context.Context, items []*domain.DataItem) error {
	for _, item := range items {
		if err := s.Send(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *MQTTSink) connect() (mqtt.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil && s.client.IsConnected() {
		return s.client, nil
	}

	client := mqtt.NewClient(s.opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("%w: %s: connect timeout", ErrNotConnected, s.id)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect mqtt: %w", err)
	}

	s.client = client
	return client, nil
}

// Close разрывает соединение с брокером.
func (s *MQTTSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	s.client = nil
	return nil
}
