package config

import (
	"flag"
	"io"
)

// FromArgs builds the node configuration: defaults, then the JSON file named
// by -config, then every flag given explicitly in args.
func FromArgs(name string, args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}

	// defaults shown in -help; only explicitly set flags are applied
	d := Default()
	var (
		configPath    = fs.String("config", "", "Path to JSON config file")
		port          = fs.Int("port", d.Port, "HTTP API port")
		databasePath  = fs.String("db", d.DatabasePath, "Path to the message database")
		keyPath       = fs.String("key", d.KeyPath, "Path to the node private key")
		keyPassphrase = fs.String("passphrase", "", "Passphrase of an encrypted private key")
		nodeID        = fs.String("node-id", d.NodeID, "Node id reported by the API")
		logLevel      = fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
		enableCORS    = fs.Bool("cors", d.EnableCORS, "Send CORS headers")
		rateLimit     = fs.Int("rate-limit", d.RateLimit, "API requests per minute per IP, 0 disables")
		readTimeout   = fs.Duration("read-timeout", d.ReadTimeout, "HTTP read timeout")
		writeTimeout  = fs.Duration("write-timeout", d.WriteTimeout, "HTTP write timeout")
		purgeAfter    = fs.Duration("purge-after", d.PurgeAfter, "Drop delivered and abandoned messages older than this, 0 keeps them")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := Load(*configPath)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "db":
			cfg.DatabasePath = *databasePath
		case "key":
			cfg.KeyPath = *keyPath
		case "passphrase":
			cfg.KeyPassphrase = *keyPassphrase
		case "node-id":
			cfg.NodeID = *nodeID
		case "log-level":
			cfg.LogLevel = *logLevel
		case "cors":
			cfg.EnableCORS = *enableCORS
		case "rate-limit":
			cfg.RateLimit = *rateLimit
		case "read-timeout":
			cfg.ReadTimeout = *readTimeout
		case "write-timeout":
			cfg.WriteTimeout = *writeTimeout
		case "purge-after":
			cfg.PurgeAfter = *purgeAfter
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
