package gemini_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kart-io/regqa/pkg/llm"
	_ "github.com/kart-io/regqa/pkg/llm/gemini"
)

// 演示如何使用基本配置创建 Gemini 供应商。
func ExampleNewProvider_basic() {
	provider, err := llm.NewProvider("gemini", map[string]any{
		"api_key": "your-api-key",
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Gemini 供应商名称:", provider.Name())
	// Output: Gemini 供应商名称: gemini
}

// 演示如何指定模型与生成参数。
func ExampleNewProvider_withModels() {
	provider, err := llm.NewProvider("gemini", map[string]any{
		"api_key":     "your-api-key",
		"embed_model": "text-embedding-004",
		"chat_model":  "gemini-1.5-pro",
		"temperature": 0.3,
		"max_tokens":  2048,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Gemini 供应商名称:", provider.Name())
	// Output: Gemini 供应商名称: gemini
}

// 演示如何使用 Embed 方法生成文本向量嵌入。
func ExampleProvider_Embed() {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Println("跳过示例：需要设置 GEMINI_API_KEY 环境变量")
		return
	}

	provider, err := llm.NewProvider("gemini", map[string]any{
		"api_key": os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	texts := []string{
		"广东省电网并网验收管理办法",
		"山东省风电项目用地预审规定",
	}

	embeddings, err := provider.Embed(ctx, texts)
	if err != nil {
		log.Fatal(err)
	}

	for i, emb := range embeddings {
		fmt.Printf("文本 %d 的向量维度: %d\n", i+1, len(emb))
	}
}

// 演示如何使用 Chat 方法进行多轮对话。
func ExampleProvider_Chat() {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Println("跳过示例：需要设置 GEMINI_API_KEY 环境变量")
		return
	}

	provider, err := llm.NewProvider("gemini", map[string]any{
		"api_key": os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "你是能源政策领域的助手"},
		{Role: llm.RoleUser, Content: "光伏项目并网需要哪些验收材料？"},
	}

	response, err := provider.Chat(ctx, messages)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Response:", response)
}
