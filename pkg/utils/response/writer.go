package response

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/regqa/pkg/utils/errors"
)

// Writer writes pooled responses to a gin context. Responses are
// acquired, serialized, and released inside each call, so handlers
// never touch the pool directly.
type Writer struct {
	ctx       *gin.Context
	requestID string
	lang      string
	timestamp bool
}

// NewWriter creates a response writer bound to the given context.
func NewWriter(ctx *gin.Context) *Writer {
	return &Writer{ctx: ctx}
}

// WithRequestID attaches a request ID to every response written.
func (w *Writer) WithRequestID(requestID string) *Writer {
	w.requestID = requestID
	return w
}

// WithLang selects the language for error messages. The empty string
// keeps the English default.
func (w *Writer) WithLang(lang string) *Writer {
	w.lang = lang
	return w
}

// WithTimestamp enables the response timestamp (Unix milliseconds).
func (w *Writer) WithTimestamp() *Writer {
	w.timestamp = true
	return w
}

// OK writes a success response with data.
func (w *Writer) OK(data interface{}) {
	w.write(Success(data))
}

// Fail writes an error response in the negotiated language. Errors
// that are not *errors.Errno are wrapped as ErrInternal.
func (w *Writer) Fail(err error) {
	w.write(ErrWithLang(errors.FromError(err), w.lang))
}

func (w *Writer) write(resp *Response) {
	defer Release(resp)
	if w.requestID != "" {
		resp.RequestID = w.requestID
	}
	if w.timestamp {
		resp.Timestamp = time.Now().UnixMilli()
	}
	// gin serializes the body inside JSON, so releasing afterwards is safe.
	w.ctx.JSON(resp.HTTPStatus(), resp)
}

// NegotiateLang picks the response language from an Accept-Language
// header. The first tag wins: Chinese variants (zh, zh-CN, zh-Hans)
// map to "zh", everything else keeps the English default.
func NegotiateLang(acceptLanguage string) string {
	lang := strings.TrimSpace(acceptLanguage)
	if i := strings.IndexAny(lang, ",;"); i >= 0 {
		lang = lang[:i]
	}
	if strings.HasPrefix(strings.ToLower(lang), "zh") {
		return "zh"
	}
	return ""
}
