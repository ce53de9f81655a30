package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// GRPCOptions are for creating a loopback gRPC listener.
type GRPCOptions struct {
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	BindPort    int    `json:"bind-port" mapstructure:"bind-port"`
	MaxMsgSize  int    `json:"max-msg-size" mapstructure:"max-msg-size"`
}

// NewGRPCOptions is for creating a grpc listener with default values.
func NewGRPCOptions() *GRPCOptions {
	return &GRPCOptions{
		BindAddress: "127.0.0.1",
		BindPort:    11751,
		MaxMsgSize:  4 << 20,
	}
}

// Validate verifies flags passed to GRPCOptions.
func (o *GRPCOptions) Validate() []error {
	var errs []error

	if o.BindPort < 0 || o.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("grpc bind port %d out of range [0, 65535]", o.BindPort))
	}

	if o.MaxMsgSize <= 0 {
		errs = append(errs, fmt.Errorf("grpc max message size %d must be positive", o.MaxMsgSize))
	}

	return errs
}

// AddFlags adds flags related to the gRPC listener to the specified FlagSet.
func (o *GRPCOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BindAddress, "grpc.bind-address", o.BindAddress, "IP address the gRPC listener binds to.")
	fs.IntVar(&o.BindPort, "grpc.bind-port", o.BindPort, "Port the gRPC listener binds to.")
	fs.IntVar(&o.MaxMsgSize, "grpc.max-msg-size", o.MaxMsgSize, "gRPC max message size in bytes.")
}
