// Package config provides configuration loading for deskroute.
//
// The configuration lives in deskroute.json (or deskroute.yaml) at the
// project root and is read with viper. Every key can be overridden from
// the environment with the DESKROUTE_ prefix, dots becoming underscores:
// DESKROUTE_SERVER_PORT=9000 overrides server.port.
//
// # Configuration File Structure
//
//	{
//	  "server": {"host": "0.0.0.0", "port": 8000},
//	  "router": {"mode": "path", "settleDelay": "100ms"},
//	  "boot": {"source": "s3://desk-config/boot.yaml", "s3Region": "eu-west-1"},
//	  "metrics": {"enabled": true, "namespace": "deskroute"},
//	  "tracing": {"enabled": true, "tracerName": "deskroute"},
//	  "log": {"level": "info", "format": "json"}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
