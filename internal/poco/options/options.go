package options

import (
	genericoptions "github.com/libreassistant/poco/internal/pkg/options"
	"github.com/libreassistant/poco/pkg/utils/cliflag"
	"github.com/libreassistant/poco/pkg/utils/json"
)

// Options aggregates every flag section of the pocod daemon.
type Options struct {
	GenericServerRunOptions *genericoptions.ServerRunOptions `json:"serving"  mapstructure:"serving"`
	GRPCOptions             *genericoptions.GRPCOptions      `json:"grpc"     mapstructure:"grpc"`
	PluginsOptions          *genericoptions.PluginsOptions   `json:"plugins"  mapstructure:"plugins"`
	LMOptions               *genericoptions.LMOptions        `json:"lm"       mapstructure:"lm"`
	DispatchOptions         *genericoptions.DispatchOptions  `json:"dispatch" mapstructure:"dispatch"`
	UsageOptions            *genericoptions.UsageOptions     `json:"usage"    mapstructure:"usage"`
	HistoryOptions          *genericoptions.HistoryOptions   `json:"history"  mapstructure:"history"`
	LogOptions              *genericoptions.LogOptions       `json:"log"      mapstructure:"log"`
}

// NewOptions creates Options with the built-in defaults.
func NewOptions() *Options {
	return &Options{
		GenericServerRunOptions: genericoptions.NewServerRunOptions(),
		GRPCOptions:             genericoptions.NewGRPCOptions(),
		PluginsOptions:          genericoptions.NewPluginsOptions(),
		LMOptions:               genericoptions.NewLMOptions(),
		DispatchOptions:         genericoptions.NewDispatchOptions(),
		UsageOptions:            genericoptions.NewUsageOptions(),
		HistoryOptions:          genericoptions.NewHistoryOptions(),
		LogOptions:              genericoptions.NewLogOptions(),
	}
}

// Flags returns the flag sections of the daemon.
func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.GenericServerRunOptions.AddFlags(fss.FlagSet("serving"))
	o.GRPCOptions.AddFlags(fss.FlagSet("grpc"))
	o.PluginsOptions.AddFlags(fss.FlagSet("plugins"))
	o.LMOptions.AddFlags(fss.FlagSet("lm"))
	o.DispatchOptions.AddFlags(fss.FlagSet("dispatch"))
	o.UsageOptions.AddFlags(fss.FlagSet("usage"))
	o.HistoryOptions.AddFlags(fss.FlagSet("history"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))

	return fss
}

// Validate checks every option section.
func (o *Options) Validate() []error {
	var errs []error

	errs = append(errs, o.GenericServerRunOptions.Validate()...)
	errs = append(errs, o.GRPCOptions.Validate()...)
	errs = append(errs, o.PluginsOptions.Validate()...)
	errs = append(errs, o.LMOptions.Validate()...)
	errs = append(errs, o.DispatchOptions.Validate()...)
	errs = append(errs, o.UsageOptions.Validate()...)
	errs = append(errs, o.HistoryOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)

	return errs
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)

	return string(data)
}

// Complete set default Options.
func (o *Options) Complete() error {
	return nil
}
