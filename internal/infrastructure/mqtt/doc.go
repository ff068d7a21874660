// Package mqtt publishes control-core events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees and a payload size limit
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
//	moku/events/{type}   one message per event, not retained
//	moku/system/status   retained online/offline status
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) for brokers off the local host
//   - Payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.Event("deploy.completed"), event)
package mqtt
