package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/config"
)

const envPrefix = "RELAY_"

// setting is one value that can come from a flag or RELAY_<env>.
type setting struct {
	flag  string
	env   string
	usage string
	apply func(cfg *config.Config, v string) error
}

var settings = []setting{
	{"addr", "GATEWAY_ADDR", "HTTP listen address (e.g., :8080)", func(cfg *config.Config, v string) error {
		cfg.Gateway.ListenAddr = v
		return nil
	}},
	{"log-level", "LOG_LEVEL", "debug, info, warn or error", func(cfg *config.Config, v string) error {
		cfg.Logging.Level = v
		return nil
	}},
	{"log-format", "LOG_FORMAT", "console or json", func(cfg *config.Config, v string) error {
		cfg.Logging.Format = v
		return nil
	}},
	{"node", "NODE_ENABLED", "run the libp2p node (true/false)", func(cfg *config.Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		cfg.Node.Enabled = b
		return nil
	}},
	{"listen", "LISTEN_ADDRS", "comma-separated libp2p listen multiaddrs", func(cfg *config.Config, v string) error {
		cfg.Node.ListenAddresses = splitList(v)
		return nil
	}},
	{"bootstrap-peers", "BOOTSTRAP_PEERS", "comma-separated bootstrap peer multiaddrs", func(cfg *config.Config, v string) error {
		cfg.Node.BootstrapPeers = splitList(v)
		return nil
	}},
	{"data-dir", "DATA_DIR", "directory holding the node identity", func(cfg *config.Config, v string) error {
		cfg.Node.DataDir = v
		return nil
	}},
	{"namespace", "NAMESPACE", "gossip topic namespace", func(cfg *config.Config, v string) error {
		cfg.Node.Namespace = v
		return nil
	}},
	{"filter-backend", "FILTER_BACKEND", "hint store: memory or olric", func(cfg *config.Config, v string) error {
		cfg.Filter.Backend = v
		return nil
	}},
	{"olric-servers", "OLRIC_SERVERS", "comma-separated Olric server addresses", func(cfg *config.Config, v string) error {
		cfg.Filter.OlricServers = splitList(v)
		return nil
	}},
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadConfig resolves the relay configuration.
// Priority: flags > env > config file > defaults.
func loadConfig(args []string, lookupEnv func(string) (string, bool)) (*config.Config, string, error) {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	configFlag := fs.String("config", "", "path to the YAML config file (default ~/.relay/"+config.DefaultFileName+")")
	values := make(map[string]*string, len(settings))
	for _, s := range settings {
		values[s.flag] = fs.String(s.flag, "", s.usage+" [env "+envPrefix+s.env+"]")
	}
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	path, explicit := *configFlag, *configFlag != ""
	if !explicit {
		if v, ok := lookupEnv(envPrefix + "CONFIG"); ok && strings.TrimSpace(v) != "" {
			path, explicit = v, true
		}
	}
	if !explicit {
		p, err := config.DefaultPath(config.DefaultFileName)
		if err == nil {
			path = p
		}
	}

	cfg := config.DefaultConfig()
	if path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, "", err
		}
		path = expanded
		loaded, err := config.Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case !explicit && errors.Is(err, os.ErrNotExist):
			path = ""
		default:
			return nil, "", err
		}
	}

	for _, s := range settings {
		v, ok := lookupEnv(envPrefix + s.env)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := s.apply(cfg, v); err != nil {
			return nil, "", fmt.Errorf("%s%s: %w", envPrefix, s.env, err)
		}
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		for _, s := range settings {
			if s.flag != f.Name || flagErr != nil {
				continue
			}
			if err := s.apply(cfg, *values[s.flag]); err != nil {
				flagErr = fmt.Errorf("-%s: %w", s.flag, err)
			}
		}
	})
	if flagErr != nil {
		return nil, "", flagErr
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return nil, "", fmt.Errorf("invalid configuration (%d errors):\n  %s", len(errs), strings.Join(msgs, "\n  "))
	}
	return cfg, path, nil
}
