package deepseek_test

import (
	"context"
	"fmt"
	"log"

	"github.com/kart-io/regqa/pkg/llm"
	_ "github.com/kart-io/regqa/pkg/llm/deepseek"
)

// 演示如何创建 DeepSeek 供应商并进行对话。
func ExampleNewProvider() {
	provider, err := llm.NewChatProvider("deepseek", map[string]any{
		"api_key": "your-api-key-here",
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	response, err := provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: "煤电项目环评批复的有效期是多久？"},
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Response:", response)
}

// 演示如何用低 temperature 配置做候选段落打分。
func ExampleNewProvider_scoring() {
	provider, err := llm.NewChatProvider("deepseek", map[string]any{
		"api_key":     "your-api-key-here",
		"temperature": 0.1, // 打分输出需要尽量稳定
		"max_tokens":  200,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	prompt := "请为以下候选段落与问题的相关性打分（1-10），只返回 JSON 数组。"
	response, err := provider.Generate(ctx, prompt, "你是检索结果重排助手")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Scores:", response)
}
