package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string `envconfig:"PORT" default:"8000"`
	MongoURI        string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"storefront"`
	RedisAddr       string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	KafkaBrokers    string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaOrderTopic string `envconfig:"KAFKA_ORDER_TOPIC" default:"order-events"`
	JWTSecret       string `envconfig:"JWT_SECRET" required:"true"`
	PostmarkToken   string `envconfig:"POSTMARK_API_TOKEN" default:""`
	EmailSender     string `envconfig:"EMAIL_SENDER" default:""`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
