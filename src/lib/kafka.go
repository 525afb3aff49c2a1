package lib

import (
	"encoding/json"
	"log"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig() kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         "boxofficeProducer",
		"acks":              "all",
	}
}

func GetKafkaConsumerConfig(groupId string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"group.id":          groupId,
		"auto.offset.reset": "smallest",
	}
}

func KafkaProduceMessage(clientId string, topic string, payload map[string]any) error {
	config := GetKafkaProducerConfig()
	config["client.id"] = clientId
	p, err := kafka.NewProducer(&config)
	if err != nil {
		log.Printf("[kafka] Error creating producer: %s\n", err.Error())
		return err
	}
	defer p.Close()

	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[kafka] Error marshaling payload: %s\n", err.Error())
		return err
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, deliveryChan); err != nil {
		log.Printf("[kafka] Error producing message: %s\n", err.Error())
		return err
	}
	e := <-deliveryChan
	if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
		log.Printf("[kafka] Delivery failed: %s\n", m.TopicPartition.Error.Error())
		return m.TopicPartition.Error
	}
	return nil
}

// KafkaConsume polls a topic and hands each message value to handler.
// Runs until the consumer errors out.
func KafkaConsume(groupId string, topic string, handler func(value string)) {
	log.Printf("[kafka] Initializing consumer for topic %s...\n", topic)
	config := GetKafkaConsumerConfig(groupId)
	config["retry.backoff.ms"] = 100
	consumer, err := kafka.NewConsumer(&config)
	if err != nil {
		log.Printf("[kafka] Error creating consumer: %s\n", err.Error())
		return
	}
	if err := consumer.SubscribeTopics([]string{topic}, nil); err != nil {
		log.Printf("[kafka] Error subscribing to topic %s: %s\n", topic, err.Error())
		return
	}
	go func() {
		log.Printf("[kafka] waiting for messages on %s...\n", topic)
		run := true
		for run {
			ev := consumer.Poll(100)
			switch e := ev.(type) {
			case *kafka.Message:
				handler(string(e.Value))
			case kafka.Error:
				log.Printf("[kafka] consumer error: %v\n", e)
				run = false
			default:
			}
		}
		consumer.Close()
	}()
}
