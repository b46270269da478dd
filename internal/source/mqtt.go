package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

const (
	mqttConnectTimeout = 10 * time.Second

	// Сколько ждать отправки исходящих сообщений при disconnect.
	mqttQuiesceMs = 250
)

// MQTTSource — источник, подписывающийся на MQTT topic.
//
// Конфигурация (params):
//
//	{
//	    "broker": "tcp://localhost:1883",
//	    "topic": "sensors/motion",
//	    "qos": 1,                  // default 0
//	    "client_id": "conveyor",   // default "conveyor-<source id>"
//	    "username": "...",         // опционально
//	    "password": "..."          // опционально
//	}
//
// Payload сообщения становится payload элемента. Метаданные:
// source, mqtt_topic.
type MQTTSource struct {
	id       string
	broker   string
	topic    string
	qos      byte
	clientID string
	username string
	password string
	logger   *slog.Logger

	client pahomqtt.Client
}

// NewMQTTSource создаёт MQTTSource из декларации.
func NewMQTTSource(def *domain.SourceDef) (*MQTTSource, error) {
	broker := params.String(def.Params, "broker")
	if broker == "" {
		return nil, fmt.Errorf("%w: %s: broker is required", ErrInvalidConfig, def.ID)
	}
	topic := params.String(def.Params, "topic")
	if topic == "" {
		return nil, fmt.Errorf("%w: %s: topic is required", ErrInvalidConfig, def.ID)
	}

	return &MQTTSource{
		id:       def.ID,
		broker:   broker,
		topic:    topic,
		qos:      byte(params.Int(def.Params, "qos")),
		clientID: params.StringOr(def.Params, "client_id", "conveyor-"+def.ID),
		username: params.String(def.Params, "username"),
		password: params.String(def.Params, "password"),
		logger:   slog.Default().With("source_id", def.ID),
	}, nil
}

// ID возвращает идентификатор источника.
func (s *MQTTSource) ID() string {
	return s.id
}

// Start подключается к брокеру и подписывается на topic.
// Блокирует до отмены ctx.
func (s *MQTTSource) Start(ctx context.Context, out domain.Queue) error {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(s.broker)
	opts.SetClientID(s.clientID)
	opts.SetUsername(s.username)
	opts.SetPassword(s.password)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetAutoReconnect(true)

	s.client = pahomqtt.NewClient(opts)

	token := s.client.Connect()
	token.Wait() // Tokens are futures
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt source %s: connect %s: %w", s.id, s.broker, err)
	}

	handler := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		item := domain.NewDataItem(msg.Payload())
		item.Metadata["source"] = s.id
		item.Metadata["mqtt_topic"] = msg.Topic()

		// Заполненная очередь блокирует callback — paho притормозит
		// приём, backpressure уходит брокеру
		_ = out.Push(ctx, item)
	}

	subToken := s.client.Subscribe(s.topic, s.qos, handler)
	subToken.Wait()
	if err := subToken.Error(); err != nil {
		s.client.Disconnect(mqttQuiesceMs)
		return fmt.Errorf("mqtt source %s: subscribe %s: %w", s.id, s.topic, err)
	}

	s.logger.Info("mqtt source subscribed", "broker", s.broker, "topic", s.topic)

	<-ctx.Done()

	// Unsubscribe до disconnect: после него callbacks не вызываются,
	// Disconnect дожидается активных обработчиков
	s.client.Unsubscribe(s.topic).Wait()
	s.client.Disconnect(mqttQuiesceMs)

	return nil
}

// Stop — best-effort остановка. Основная остановка идёт через ctx.
func (s *MQTTSource) Stop() error {
	return nil
}
