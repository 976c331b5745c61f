package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/kiwimarket/backend-go/internal/interfaces"
)

// Producer 把知识库变更事件写入Kafka，实现interfaces.EventPublisher
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   interfaces.LoggerInterface
}

// NewSaramaConfig 生产者配置，等待所有副本确认
func NewSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second
	return config
}

// NewProducer 连接brokers并创建生产者
func NewProducer(brokers []string, topic string, logger interfaces.LoggerInterface) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	logger.Info("Kafka生产者初始化成功", "brokers", brokers, "topic", topic)
	return NewProducerWithClient(producer, topic, logger), nil
}

// NewProducerWithClient 使用已有的SyncProducer
func NewProducerWithClient(producer sarama.SyncProducer, topic string, logger interfaces.LoggerInterface) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish 发送事件，按事件类型作为消息key保证同类事件有序
func (p *Producer) Publish(ctx context.Context, event interfaces.KnowledgeEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Type),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("source"), Value: []byte(event.Source)},
		},
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}

	p.logger.Debug("Kafka消息发送成功",
		"partition", partition,
		"offset", offset,
		"type", event.Type,
		"count", event.Count)
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
