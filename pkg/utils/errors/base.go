package errors

import "net/http"

// Shared errors every service can return (service code 00).
var (
	// OK indicates success.
	OK = Register(New(MakeCode(ServiceCommon, CategorySuccess, 0), http.StatusOK, "OK", "成功"))

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(New(MakeCode(ServiceCommon, CategoryRequest, 0), http.StatusBadRequest, "Bad request", "请求格式错误"))

	// ErrInvalidParam indicates invalid request parameters.
	ErrInvalidParam = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusBadRequest, "Invalid parameters", "参数无效"))

	// ErrUnauthorized indicates missing or invalid authentication.
	ErrUnauthorized = Register(New(MakeCode(ServiceCommon, CategoryAuth, 0), http.StatusUnauthorized, "Unauthorized", "未授权"))

	// ErrTokenInvalid indicates an invalid auth token.
	ErrTokenInvalid = Register(New(MakeCode(ServiceCommon, CategoryAuth, 1), http.StatusUnauthorized, "Invalid token", "令牌无效"))

	// ErrTokenExpired indicates an expired auth token.
	ErrTokenExpired = Register(New(MakeCode(ServiceCommon, CategoryAuth, 2), http.StatusUnauthorized, "Token expired", "令牌已过期"))

	// ErrNotFound indicates the resource was not found.
	ErrNotFound = Register(New(MakeCode(ServiceCommon, CategoryResource, 0), http.StatusNotFound, "Resource not found", "资源不存在"))

	// ErrInternal indicates an internal server error.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0), http.StatusInternalServerError, "Internal server error", "服务器内部错误"))

	// ErrPanic indicates a recovered service panic.
	ErrPanic = Register(New(MakeCode(ServiceCommon, CategoryInternal, 2), http.StatusInternalServerError, "Service panic", "服务崩溃"))

	// ErrCache indicates a cache operation failure.
	ErrCache = Register(New(MakeCode(ServiceCommon, CategoryCache, 0), http.StatusInternalServerError, "Cache error", "缓存错误"))

	// ErrNetwork indicates an upstream network failure.
	ErrNetwork = Register(New(MakeCode(ServiceCommon, CategoryNetwork, 0), http.StatusBadGateway, "Network error", "网络错误"))

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = Register(New(MakeCode(ServiceCommon, CategoryTimeout, 0), http.StatusGatewayTimeout, "Operation timeout", "操作超时"))
)
