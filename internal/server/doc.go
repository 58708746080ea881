// Package server exposes the edge-map pipeline over HTTP.
//
// # Routes
//
//   - POST /api/edges: the request body is an encoded image (PNG, JPEG or
//     GIF); the response is a JPEG edge map
//   - GET|POST /api/hello: greeting, personalised by a name query parameter
//     or a JSON body of the form {"name": "..."}
//   - GET /healthz: liveness plus the active backend
//   - GET /metrics: Prometheus exposition
//
// # Edge responses
//
// A successful edge request answers 200 with
//
//	Content-Type: image/jpeg
//	Content-Disposition: attachment; filename="image.jpg"
//	X-Edge-Pixels, X-Image-Width, X-Image-Height
//
// Failures answer with a JSON body:
//
//	{"code": "invalid_image", "message": "Failed to decode image"}
//
// Codes are empty_body and invalid_image (400), invalid_thresholds (400),
// body_too_large (413), processing_error (500) and request_aborted (503).
//
// # Middleware
//
// Every response carries Access-Control-Allow-Origin: * and an X-Request-Id,
// taken from the request when the client sent one. Handlers find a zap
// logger tagged with the request ID via logger.FromContext. Matched routes
// are counted and timed in the Metrics registry.
//
// # Usage
//
//	metrics := server.NewMetrics()
//	p := pipeline.New(backend, pipeline.WithObserver(metrics))
//	srv := server.New(cfg, p, log, metrics)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal("server error", zap.Error(err))
//	}
package server
