// Binary llmtest smoke-tests the configured LLM providers with a short
// Portuguese conversation. Run it locally before pointing a business at
// a new provider or model.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/atendezap/atendezap/internal/llm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := llm.Request{
		System: []string{
			"Você é o assistente virtual de uma barbearia. Responda em português, de forma breve e simpática.",
		},
		Messages: []llm.ChatMessage{
			{Role: llm.RoleUser, Content: "Oi, vocês fazem barba?"},
			{Role: llm.RoleAssistant, Content: "Fazemos sim! A barba completa custa R$ 25,50 e leva uns 20 minutos. Quer agendar?"},
			{Role: llm.RoleUser, Content: "Quero, quais horários têm amanhã de manhã?"},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		model := envOr("OPENAI_MODEL", "gpt-4o-mini")
		fmt.Printf("[openai] model=%s\n", model)
		client, err := llm.NewOpenAIClient(key, model)
		if err != nil {
			fmt.Printf("[openai] client error: %v\n", err)
		} else {
			run(ctx, "openai", client, req)
		}
	} else {
		fmt.Println("[openai] skipped, OPENAI_API_KEY not set")
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		model := envOr("GEMINI_MODEL", "gemini-2.5-flash")
		fmt.Printf("[gemini] model=%s\n", model)
		client, err := llm.NewGeminiClient(ctx, key, model)
		if err != nil {
			fmt.Printf("[gemini] client error: %v\n", err)
		} else {
			run(ctx, "gemini", client, req)
		}
	} else {
		fmt.Println("[gemini] skipped, GEMINI_API_KEY not set")
	}
}

func run(ctx context.Context, name string, client llm.Client, req llm.Request) {
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		fmt.Printf("[%s] error after %v: %v\n", name, elapsed, err)
		return
	}
	fmt.Printf("[%s] ok in %v (stop=%s)\n%s\n\n", name, elapsed, resp.StopReason, resp.Text)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
