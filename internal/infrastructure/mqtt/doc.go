// Package mqtt provides the panel's MQTT connectivity.
//
// MQTT is an optional control surface: building controllers publish
// submissions to jappanel/command/{device} and read the outcome from
// jappanel/core/device/{device}/result. Rendered device state is retained
// on jappanel/core/device/{device}/state and the panel's own availability
// on jappanel/system/status (also the Last Will and Testament).
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceCommands(), client.QoS(),
//	    func(topic string, payload []byte) error {
//	        return handleCommand(topic, payload)
//	    })
//
// Use TLS (mqtt.broker.tls) outside a trusted network.
package mqtt
