package checker

import "go.uber.org/zap"

// Config holds options for Check.
// The zero Config checks sequentially without tracing.
type Config struct {
	// Parallelism is the maximum number of declarations
	// checked concurrently. Values less than 1 mean 1.
	Parallelism int

	// TraceDepth is the maximum depth of the checker trace.
	// 0 disables tracing, and -1 traces to any depth.
	TraceDepth int

	// Logger receives the trace at debug level.
	// If nil, trace output is discarded.
	Logger *zap.Logger

	// TrimErrorPathPrefix is removed from file paths in trace output.
	TrimErrorPathPrefix string
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) parallelism() int {
	if c.Parallelism < 1 {
		return 1
	}
	return c.Parallelism
}
