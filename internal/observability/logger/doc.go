// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada run puede tener su propio logger "scoped" con campos
//     adicionales (run_id, server, etc.) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Levels: debug, info, warn, error (configurable via --log-level / LOG_LEVEL).
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("APP_ENV"),   // "dev" o "prod"
//	    Level: os.Getenv("LOG_LEVEL"), // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En el sequencer (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("step done", logger.Server(name), logger.StepName(step))
//
// Sin contexto (fallback a singleton):
//
//	logger.L().Info("mailmaint started")
package logger
