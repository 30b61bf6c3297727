package response_test

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/regqa/pkg/utils/errors"
	"github.com/kart-io/regqa/pkg/utils/response"
)

// Example_handler shows the writer flow used by HTTP handlers. The
// writer pools, serializes, and releases envelopes internally.
func Example_handler() {
	// In real code the context comes from the gin router.
	var c *gin.Context

	w := response.NewWriter(c).
		WithRequestID("req-01HXQ2").
		WithLang(response.NegotiateLang("zh-CN,zh;q=0.9")).
		WithTimestamp()

	w.OK(map[string]interface{}{
		"question_norm": "山东省海上风电项目核准需要哪些材料？",
		"refused":       false,
	})

	w.Fail(errors.ErrQueryTimeout)
}

// Example_manualPooling shows direct pool usage for code outside the
// handler path. Always pair Acquire with Release.
func Example_manualPooling() {
	resp := response.Acquire()
	defer response.Release(resp)

	resp.Code = 0
	resp.Message = "success"
	resp.Data = map[string]int{"chunks_indexed": 42}

	fmt.Printf("code=%d message=%s\n", resp.Code, resp.Message)
	// Output: code=0 message=success
}

func Example_helpers() {
	ok := response.Success("三十日内完成备案")
	defer response.Release(ok)
	fmt.Println("success:", ok.IsSuccess())

	bad := response.Err(errors.ErrQueryValidation)
	defer response.Release(bad)
	fmt.Println("code:", bad.Code)

	// Output:
	// success: true
	// code: 2001001
}

// Example_localizedErrors shows Accept-Language driven error messages.
func Example_localizedErrors() {
	en := response.Err(errors.ErrQueryTimeout)
	defer response.Release(en)
	fmt.Println("EN:", en.Message)

	lang := response.NegotiateLang("zh-CN,zh;q=0.9,en;q=0.8")
	zh := response.ErrWithLang(errors.ErrQueryTimeout, lang)
	defer response.Release(zh)
	fmt.Println("ZH:", zh.Message)

	// Output:
	// EN: Query timeout
	// ZH: 查询超时
}
