// Package logging provides structured logging on uber/zap.
//
// Production mode writes JSON to stdout; development mode writes colored
// console lines at debug level. A configured log file always receives JSON
// and is rotated by size with lumberjack.
//
// Components take a named child logger and per-app work is tagged with the
// app id:
//
//	logger, err := logging.New(logging.FromSettings("info", false, logFile))
//	log := logger.Component("transfer").WithApp("fivem-launcher")
//	log.Info("Transfer started", zap.String("url", url))
package logging
