package core

import (
	"context"
	"fmt"
	"strings"

	"docchat/internal/index"
	"docchat/internal/llm"
)

const answerInstruction = "You are a helpful assistant answering questions about an uploaded document. " +
	"Answer using only the provided document excerpts. " +
	"If the answer is not found in the excerpts, clearly state that the document does not contain the information. " +
	"Do not make up information."

// AnswerEngine answers questions grounded in passages retrieved from a loaded
// index. The model's raw output is returned verbatim.
type AnswerEngine struct {
	index     *index.Index
	embedder  llm.Embedder
	generator llm.Generator
	topK      int
}

func NewAnswerEngine(idx *index.Index, embedder llm.Embedder, generator llm.Generator, topK int) (*AnswerEngine, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, index.ErrEmpty
	}
	if topK <= 0 {
		topK = 4
	}
	return &AnswerEngine{
		index:     idx,
		embedder:  embedder,
		generator: generator,
		topK:      topK,
	}, nil
}

// Answer embeds the question, retrieves the top-k most similar passages and
// asks the language model for a grounded answer.
func (e *AnswerEngine) Answer(ctx context.Context, question string) (string, error) {
	queryEmbedding, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := e.index.Search(queryEmbedding, e.topK)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve passages: %w", err)
	}

	answer, err := e.generator.Generate(ctx, buildPrompt(results, question))
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, nil
}

func buildPrompt(results []index.Result, question string) string {
	var contextBuilder strings.Builder
	for _, r := range results {
		contextBuilder.WriteString(r.Content)
		contextBuilder.WriteString("\n\n")
	}

	return fmt.Sprintf("%s\n\n--- CONTEXT START ---\n%s--- CONTEXT END ---\n\nQuestion: %s",
		answerInstruction, contextBuilder.String(), question)
}
