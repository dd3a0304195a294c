// Package mqtt publishes monitor output to an MQTT broker as JSON.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/itohio/adcmon/pkg/config"
	"github.com/itohio/adcmon/pkg/monitor"
)

const (
	DefaultServer   = "tcp://localhost:1883"
	DefaultClientID = "adcmon"
	DefaultTopic    = "adcmon"

	channelTopicFmt = "%s/channel/%d"
	statsTopicFmt   = "%s/channel/%d/stats"
	selfCheckTopic  = "%s/selfcheck"

	disconnectQuiesce = 250 // ms
	publishTimeout    = 5 * time.Second
)

// client is the subset of mqtt.Client the reporter uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Reporter publishes readings per channel, batch statistics per channel and
// a retained self-check verdict.
type Reporter struct {
	client client
	topic  string
}

var _ monitor.Reporter = (*Reporter)(nil)

type readingPayload struct {
	Name      string  `json:"name"`
	Round     uint64  `json:"round"`
	Raw       uint32  `json:"raw"`
	Voltage   float64 `json:"voltage"`
	Timestamp int64   `json:"timestamp"`
}

type statsPayload struct {
	Name         string  `json:"name"`
	Round        uint64  `json:"round"`
	NoData       bool    `json:"no_data,omitempty"`
	Count        int     `json:"count"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Average      float64 `json:"avg"`
	PeakToPeakMV float64 `json:"pp_mv"`
}

type checkPayload struct {
	Channel   int     `json:"channel"`
	Name      string  `json:"name"`
	Raw       uint32  `json:"raw"`
	Voltage   float64 `json:"voltage"`
	Plausible bool    `json:"plausible"`
	Error     string  `json:"error,omitempty"`
}

type selfCheckPayload struct {
	Passed   bool           `json:"passed"`
	Channels []checkPayload `json:"channels"`
}

// New connects to the broker described by cfg.
func New(cfg config.MQTTConfig) (*Reporter, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	return newReporter(c, cfg.Topic), nil
}

func newReporter(c client, topic string) *Reporter {
	topic = strings.TrimSuffix(topic, "/")
	if topic == "" {
		topic = DefaultTopic
	}
	return &Reporter{client: c, topic: topic}
}

// SelfCheck implements monitor.Reporter.
func (r *Reporter) SelfCheck(res monitor.SelfCheckResult) error {
	p := selfCheckPayload{Passed: res.Passed, Channels: make([]checkPayload, 0, len(res.Channels))}
	for _, c := range res.Channels {
		cp := checkPayload{
			Channel:   c.Channel,
			Name:      c.Name,
			Raw:       c.Raw,
			Voltage:   c.Voltage,
			Plausible: c.Plausible,
		}
		if c.Err != nil {
			cp.Error = c.Err.Error()
		}
		p.Channels = append(p.Channels, cp)
	}
	return r.publishJSON(fmt.Sprintf(selfCheckTopic, r.topic), true, p)
}

// Readings implements monitor.Reporter.
func (r *Reporter) Readings(round uint64, readings []monitor.Reading) error {
	for _, rd := range readings {
		p := readingPayload{
			Name:      rd.Name,
			Round:     round,
			Raw:       rd.Raw,
			Voltage:   rd.Voltage,
			Timestamp: rd.Timestamp.UnixMilli(),
		}
		if err := r.publishJSON(fmt.Sprintf(channelTopicFmt, r.topic, rd.Channel), false, p); err != nil {
			return err
		}
	}
	return nil
}

// Statistics implements monitor.Reporter.
func (r *Reporter) Statistics(round uint64, summaries []monitor.Summary) error {
	for _, s := range summaries {
		p := statsPayload{Name: s.Name, Round: round, NoData: s.NoData}
		if !s.NoData {
			p.Count = s.Count
			p.Min = s.Min
			p.Max = s.Max
			p.Average = s.Average
			p.PeakToPeakMV = s.PeakToPeakMillivolts()
		}
		if err := r.publishJSON(fmt.Sprintf(statsTopicFmt, r.topic, s.Channel), false, p); err != nil {
			return err
		}
	}
	return nil
}

// Close disconnects from the broker.
func (r *Reporter) Close() error {
	if r.client != nil {
		r.client.Disconnect(disconnectQuiesce)
	}
	return nil
}

func (r *Reporter) publishJSON(topic string, retained bool, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := r.client.Publish(topic, 0, retained, b)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}
