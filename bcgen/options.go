package bcgen

import "github.com/rs/zerolog"

// Option describes a function used to configure a ModuleGenerator.
type Option func(*config)

type config struct {
	optimize           bool
	logger             zerolog.Logger
	cjsModuleOffset    uint32
	stripFunctionNames bool
	stripDebugInfo     bool
}

func newConfig(opts []Option) *config {
	cfg := &config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithOptimization enables literal buffer deduplication and substring
// sharing when packing the string table. Output is equivalent either way;
// only size and layout change.
func WithOptimization(enabled bool) Option {
	return func(cfg *config) {
		cfg.optimize = enabled
	}
}

// WithLogger sets the logger used to report relaxation and generation
// summaries at debug level. The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithCJSModuleOffset sets the ordinal of the first statically resolved
// CommonJS module in this module. Used when a bundle is split across
// several modules.
func WithCJSModuleOffset(offset uint32) Option {
	return func(cfg *config) {
		cfg.cjsModuleOffset = offset
	}
}

// WithStripFunctionNames replaces every function name with a fixed
// placeholder.
func WithStripFunctionNames(strip bool) Option {
	return func(cfg *config) {
		cfg.stripFunctionNames = strip
	}
}

// WithStripDebugInfo drops debug source locations and variable names from
// generated functions.
func WithStripDebugInfo(strip bool) Option {
	return func(cfg *config) {
		cfg.stripDebugInfo = strip
	}
}
