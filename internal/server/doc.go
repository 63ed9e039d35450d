// Package server is the WiFi configuration HTTP service.
//
// It serves the endpoints used by the configuration page and the wificfg
// CLI:
//
//	GET  /wifi/wifiscan.cgi     scan status; starts a new scan when idle
//	POST /wifi/settings.cgi     apply settings, always 204 No Content
//	GET  /wifi/field/{token}    one configuration value as text
//	GET  /wifi/fields           every present configuration value as JSON
//	GET  /wifi/ws               websocket feed of scan results
//	GET  /healthz               liveness
//
// # Event loop
//
// Every handler runs its radio work as one step on the server's event loop,
// and scan completions from the radio are posted to the same loop. Steps never
// interleave, so a settings submission never observes a scan half applied.
//
// # Usage Example
//
//	dev, _ := radio.NewSim(radio.DefaultProfile())
//	dev.Start()
//
//	srv := server.New(&server.Config{Host: "0.0.0.0", Port: 8080}, dev)
//
//	// Start blocks until SIGINT, SIGTERM, ctx cancellation or a listener error
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Shutdown stops accepting requests, closes websocket feeds, cancels a
// pending radio restart and stops the event loop.
package server
