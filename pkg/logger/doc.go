// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The package standardises structured logging across the credit service by
// exposing a single factory, New, that creates a *slog.Logger configured by
// a set of Option functions. These options allow you to:
//
//   - Select an output format (text or json)
//   - Set the minimum log level
//   - Supply default slog.Attr values applied to every record
//   - Register ContextExtractor callbacks that inject attributes pulled from
//     a context value (for example a webhook event id) on every record.
//
// # Architecture
//
// New picks the concrete slog.Handler implementation, slog.NewTextHandler or
// slog.NewJSONHandler, based on the configured Format, then wraps it with
// LogHandlerDecorator which runs the registered ContextExtractor callbacks
// before delegating to the underlying handler.
//
// Helper constructors such as Error, TenantID, and Operation live in attr.go
// and return commonly used slog.Attr instances to keep attribute naming
// consistent across the codebase.
//
// # Usage
//
//	import "github.com/dmitrymomot/creditkit/pkg/logger"
//
//	func main() {
//	    log := logger.New(
//	        logger.WithProduction("creditd"),
//	        logger.WithContextValue("event_id", ctxKeyEventID),
//	    )
//	    logger.SetAsDefault(log)
//
//	    log.InfoContext(ctx, "credits consumed",
//	        logger.TenantID(tenantID),
//	        logger.Amount(cost),
//	    )
//	}
//
// # Error Handling
//
// Helper functions Error and Errors produce attributes only when the supplied
// error value is non-nil allowing calls like:
//
//	log.Info("operation finished", logger.Error(err))
//
// without an additional nil check.
package logger
