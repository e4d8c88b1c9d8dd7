package rpcengine

import "time"

// ServerConfig configures the gRPC listener.
type ServerConfig struct {
	Address string `yaml:"address" env:"AWADB_RPC_ADDRESS"`
}

// ClientConfig configures the connection to a remote engine.
type ClientConfig struct {
	Target string `yaml:"target" env:"AWADB_RPC_TARGET"`

	// CallTimeout bounds every call that has no deadline of its own.
	CallTimeout time.Duration `yaml:"call_timeout" env:"AWADB_RPC_CALL_TIMEOUT"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{Address: ":50051"}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{Target: "localhost:50051", CallTimeout: 30 * time.Second}
}
