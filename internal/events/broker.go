package events

import "cabinbook/internal/pkg/logger"

// BrokerConfig selects the external brokers. Empty fields disable a broker.
type BrokerConfig struct {
	AMQPURL      string
	AMQPQueue    string
	KafkaBrokers []string
	KafkaTopic   string
}

// OpenBrokers connects every configured broker. On failure the brokers opened
// so far are closed.
func OpenBrokers(cfg BrokerConfig, log *logger.Logger) (Fanout, error) {
	var out Fanout

	if cfg.AMQPURL != "" {
		p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		log.Info("rabbitmq publisher ready", "queue", cfg.AMQPQueue)
		out = append(out, p)
	}

	if len(cfg.KafkaBrokers) > 0 {
		p, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		log.Info("kafka publisher ready", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
		out = append(out, p)
	}

	return out, nil
}
