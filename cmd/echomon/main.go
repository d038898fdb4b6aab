package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/uartecho/pkg/telemetry"
	"github.com/robotalks/uartecho/pkg/telemetry/mqtt"
	"github.com/robotalks/uartecho/pkg/telemetry/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/uartecho/"
)

func init() {
	if val := os.Getenv("UARTECHO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		_, suffix, ok := telemetry.ParseTopic(topic)
		if !ok {
			log.Printf("%s: %d bytes", topic, len(payload))
			return
		}
		switch suffix {
		case telemetry.TopicStats:
			stats, err := msgs.DecodeStats(payload)
			if err != nil {
				log.Printf("%s: bad stats: %v", topic, err)
				return
			}
			log.Printf("%s: %s", topic, stats)
		case telemetry.TopicMeta:
			if len(payload) == 0 {
				log.Printf("%s: gone", topic)
				return
			}
			log.Printf("%s: %s", topic, string(payload))
		default:
			log.Printf("%s: %s", topic, string(payload))
		}
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
