// Seeds a business knowledge base from a JSON file, straight into
// Postgres. Used to bootstrap RAG content for a new business:
//
//	go run scripts/seed-knowledge.go knowledge.json
//
// The file format:
//
//	{
//	  "business_id": "4fa2...",
//	  "documents": [
//	    {"title": "Formas de pagamento", "content": "Aceitamos pix, ..."}
//	  ]
//	}
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/atendezap/atendezap/internal/rag"
)

type knowledgeFile struct {
	BusinessID uuid.UUID `json:"business_id"`
	Documents  []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"documents"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: go run scripts/seed-knowledge.go <knowledge-file.json>")
		os.Exit(1)
	}

	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read file: %v\n", err)
		os.Exit(1)
	}
	var kf knowledgeFile
	if err := json.Unmarshal(data, &kf); err != nil {
		fmt.Fprintf(os.Stderr, "parse json: %v\n", err)
		os.Exit(1)
	}
	if kf.BusinessID == uuid.Nil {
		fmt.Fprintln(os.Stderr, "business_id is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := rag.NewRepository(pool)
	for _, doc := range kf.Documents {
		id, err := repo.Add(ctx, kf.BusinessID, doc.Title, doc.Content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert %q: %v\n", doc.Title, err)
			os.Exit(1)
		}
		fmt.Printf("added %s (%s)\n", doc.Title, id)
	}
	fmt.Printf("seeded %d documents for business %s\n", len(kf.Documents), kf.BusinessID)
}
