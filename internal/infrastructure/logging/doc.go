// Package logging wraps uber/zap for the grading server and its CLIs.
//
// Logger embeds *zap.Logger, so every zap method is available directly.
// Construction:
//   - New(cfg): level, development mode and output paths from Config
//   - NewDefault: JSON at info level to stdout
//   - NewDevelopment: colored console at debug level with stack traces
//   - Nop: discards everything, for tests
//
// NewDefault and NewDevelopment fall back to Nop if zap cannot build
// the configured sinks. Named and With return child loggers.
//
// Field helpers keep key names consistent across packages: RunID,
// SessionID, Framework, Pattern, Status and Duration. IsProduction and
// IsDevelopment read the ENV variable.
//
// Example:
//
//	log := logging.NewDefault().Named("grading")
//	log.Info("run reported", logging.RunID(run.RunID), logging.Status(string(run.Status)))
package logging
