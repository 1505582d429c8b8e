// Package influxdb records device-call telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. The Client satisfies
// jap.CallObserver, so every request the panel makes to a JAP device becomes
// one point in the device_call measurement:
//
//	device_call,address=192.168.8.16,endpoint=command/channel,method=POST
//	    duration_ms=12.4,status_code=200i,success=true,error_kind="" <ts>
//
// Writes are non-blocking and batched; asynchronous write errors are
// delivered to the callback set with SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	japClient := jap.NewClient(jap.ClientOptions{Config: cfg.JAP, Observer: client})
package influxdb
