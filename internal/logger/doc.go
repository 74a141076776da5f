// Package logger provides component-scoped leveled logging for the service.
//
// Each package obtains a ComponentLogger via WithComponent and logs with
// optional structured fields:
//
//	log := logger.WithComponent(logger.ComponentResolve)
//	log.Info("format chosen", map[string]any{"itag": 22})
//
// Output destination, level, and format (text or JSON) are configured once at
// startup through SetGlobalLogger. File rotation is the caller's concern;
// the server entrypoint hands the logger a rotating writer.
package logger
