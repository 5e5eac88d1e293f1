// Package telemetry provides collection.Observer implementations that
// export collection activity as Prometheus metrics, OpenTelemetry spans and
// slog records.
//
// Observers are attached to a root collection and inherited by every view
// derived from it:
//
//	obs := telemetry.Multi(
//	    telemetry.NewMetrics(telemetry.WithRegistry(reg)),
//	    telemetry.NewLogger(logger),
//	)
//	todos := collection.New(items, collection.WithName("todos"), collection.WithObserver(obs))
package telemetry
