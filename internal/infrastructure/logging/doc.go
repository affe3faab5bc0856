// Package logging wraps uber/zap for the policy engine.
//
// Production builds write one JSON object per line; development builds use
// the colored console encoder with debug enabled. The minimum level is held
// in a zap.AtomicLevel, so SetLevel takes effect without rebuilding loggers.
// Output goes to the configured paths (stdout by default); rotation is left
// to the process supervisor.
//
// Subsystems log through Component, which names the child logger and adds a
// "component" field. Flush syncs on shutdown and ignores the sync errors
// terminals and pipes return.
//
//	logger, err := logging.New(logging.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer logger.Flush()
//	logger.Component("monitor").Info("Sweep complete", zap.Int("scanned", n))
package logging
