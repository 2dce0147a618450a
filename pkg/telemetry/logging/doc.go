// Package logging builds the structured loggers used across reloadr.
//
// Loggers are plain *slog.Logger values so library code can accept any
// logger. Loggers created here add the reload fields carried by a context
// (reload_id, symbol, file, mode) to every record logged with that context.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "console"})
//	if err != nil {
//	    return err
//	}
//
//	ctx := logging.WithSymbol(ctx, "Handler")
//	logger.InfoContext(ctx, "Watching definition", "mode", "fs")
//
// # Formats
//
//   - json: one JSON object per line
//   - text: logfmt style key=value pairs
//   - console: key=value pairs with a short wall clock time
package logging
