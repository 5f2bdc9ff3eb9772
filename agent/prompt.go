package agent

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to search before answering and to cite sources.
const SystemPrompt = `You are an intelligent assistant with access to a knowledge base through search functions.

When a user asks a question:
1. Use the search_documents function to find relevant information
2. Analyze the search results carefully
3. If you need more specific information, use search_documents again with more targeted queries
4. You can also use get_document_details to get more context about specific documents
5. Once you have sufficient information, provide a comprehensive answer
6. Always cite the sources of your information using the document IDs or sources

Guidelines:
- Be thorough but efficient in your searches
- Don't make unnecessary function calls
- Use descriptive and specific search queries
- Combine information from multiple sources when relevant
- Provide clear citations for your sources`

// noAnswer replaces an empty final reply.
const noAnswer = "No answer generated"

// buildFallbackPrompt numbers the passages as "Context N:" blocks ahead of the question.
func buildFallbackPrompt(question string, passages []string) string {
	if len(passages) == 0 {
		return fmt.Sprintf("Question: %s\n\nAnswer:", question)
	}

	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = fmt.Sprintf("Context %d: %s", i+1, p)
	}

	return fmt.Sprintf(
		"Based on the following context, answer the question.\n\n%s\n\nQuestion: %s\n\nAnswer:",
		strings.Join(blocks, "\n\n"), question,
	)
}
