package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// topicAdmin is the part of *kafka.Conn used to inspect and create topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic creates topicName when its partitions cannot be read after a few attempts
func ensureTopic(conn topicAdmin, topicName string, numPartitions, replicationFactor int, log *slog.Logger) error {
	return ensureTopicWithBackoff(conn, topicName, numPartitions, replicationFactor, topicReadBackoff, log)
}

func ensureTopicWithBackoff(conn topicAdmin, topicName string, numPartitions, replicationFactor int, backoff time.Duration, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < topicReadAttempts; i++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topicName, "partitions", len(partitions))
			return nil
		}
		log.Warn("Failed to read topic partitions, retrying", "topic", topicName, "attempt", i+1, "error", err)
		time.Sleep(backoff)
	}

	cfg := kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if cfg.NumPartitions <= 0 {
		cfg.NumPartitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	log.Info("Creating Kafka topic", "topic", topicName, "partitions", cfg.NumPartitions, "replication_factor", cfg.ReplicationFactor)
	if err := conn.CreateTopics(cfg); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}
	return nil
}
