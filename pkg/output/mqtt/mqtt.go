package mqtt

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/config"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/output"
	"github.com/ericogr/mpl3115a2-to-mqtt/pkg/sensor"
)

const (
	// defaults
	DefaultServer     = "tcp://localhost:1883"
	DefaultClientID   = "mpl3115a2-client"
	DefaultStateTopic = "mpl3115a2"
	discoveryTopicFmt = "%s/sensor/%s_%s/config"
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyUnitOfMeasurement   = "unit_of_measurement"
	keyDeviceClass         = "device_class"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	stateClassMeasurement  = "measurement"
)

// quantity describes one field of the state payload for discovery.
type quantity struct {
	key         string
	label       string
	unit        string
	deviceClass string
}

var quantities = []quantity{
	{key: "altitude", label: "Altitude", unit: "m"},
	{key: "temperature_c", label: "Temperature", unit: "°C", deviceClass: "temperature"},
	{key: "temperature_f", label: "Temperature F", unit: "°F", deviceClass: "temperature"},
	{key: "pressure", label: "Pressure", unit: "kPa", deviceClass: "pressure"},
}

type MQTTOutput struct {
	client     mqtt.Client
	stateTopic string
}

func NewMQTT(cfg config.MQTTConfig) (output.Output, error) {
	cfg = withDefaults(cfg)
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return newWithClient(client, cfg), nil
}

// newWithClient publishes Home Assistant discovery payloads when a prefix is
// configured and returns an output bound to client.
func newWithClient(client mqtt.Client, cfg config.MQTTConfig) *MQTTOutput {
	m := &MQTTOutput{client: client, stateTopic: cfg.StateTopic}
	if cfg.DiscoveryPrefix != "" {
		uid := discoveryUniqueID(cfg)
		for _, q := range quantities {
			topic := fmt.Sprintf(discoveryTopicFmt, cfg.DiscoveryPrefix, uid, q.key)
			payload := discoveryPayload(cfg, q, uid)
			if err := publishJSON(client, topic, true, payload); err != nil {
				log.Printf("mqtt: discovery publish error: %v", err)
			}
		}
	}
	return m
}

func (m *MQTTOutput) Publish(r sensor.Reading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.stateTopic, 0, false, b)
	token.Wait()
	return token.Error()
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

func withDefaults(cfg config.MQTTConfig) config.MQTTConfig {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.StateTopic == "" {
		cfg.StateTopic = DefaultStateTopic
	}
	return cfg
}

func discoveryUniqueID(cfg config.MQTTConfig) string {
	if cfg.DiscoveryUniqueID != "" {
		return cfg.DiscoveryUniqueID
	}
	return cfg.ClientID
}

func discoveryPayload(cfg config.MQTTConfig, q quantity, uid string) map[string]interface{} {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("MPL3115A2 %s", cfg.ClientID)
	}
	payload := map[string]interface{}{
		keyName:                fmt.Sprintf("%s %s", name, q.label),
		keyStateTopic:          cfg.StateTopic,
		keyUnitOfMeasurement:   q.unit,
		keyStateClass:          stateClassMeasurement,
		keyValueTemplate:       fmt.Sprintf("{{ value_json.%s }}", q.key),
		keyJSONAttributesTopic: cfg.StateTopic,
		keyUniqueID:            fmt.Sprintf("%s_%s", uid, q.key),
	}
	if q.deviceClass != "" {
		payload[keyDeviceClass] = q.deviceClass
	}
	return payload
}

// helper: marshal and publish JSON payload
func publishJSON(client mqtt.Client, topic string, retained bool, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := client.Publish(topic, 0, retained, b)
	token.Wait()
	return token.Error()
}
