// Package middleware provides common HTTP middleware for the query service.
//
// This package includes:
//   - Recovery: Panic recovery with JSON error response
//   - RequestID: Adds unique request ID to each request
//   - Logger: Request logging middleware
//   - CORS: Cross-Origin Resource Sharing support
//   - Timeout: Request deadline propagation
//   - Auth: JWT bearer token authentication
//
// All middleware are plain gin handlers and chain through gin itself:
//
//	engine := gin.New()
//	engine.Use(
//	    middleware.Recovery(),
//	    middleware.RequestID(),
//	    middleware.Logger(),
//	    middleware.CORS(),
//	)
//
// Configure individual middleware with the *WithConfig variants:
//
//	engine.Use(middleware.RecoveryWithConfig(middleware.RecoveryConfig{
//	    EnableStackTrace: true,
//	}))
//
// Protected route groups attach Auth explicitly:
//
//	index := engine.Group("/v1/index")
//	index.Use(middleware.Auth(
//	    middleware.AuthWithKey(key),
//	    middleware.AuthWithMethod("HS256"),
//	))
package middleware
