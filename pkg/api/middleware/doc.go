// Package middleware provides HTTP middleware for the topology editor API.
//
// Every middleware has the form func(http.Handler) http.Handler, so the
// constructors plug straight into chi:
//
//	r := chi.NewRouter()
//	r.Use(middleware.RequestID())
//	r.Use(middleware.Logging(logger))
//	r.Use(middleware.PanicRecovery(logger))
//	r.Use(middleware.Metrics(registry))
//	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	r.Use(middleware.BodySizeLimit(middleware.DefaultMaxBodyBytes))
package middleware
