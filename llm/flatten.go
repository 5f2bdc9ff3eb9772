package llm

import (
	"context"
	"strings"
)

// FlattenConversation renders a conversation as a single prompt for providers
// without native tool calling. Function results are dropped.
func FlattenConversation(conversation []ChatMessage) string {
	parts := make([]string, 0, len(conversation))
	for _, msg := range conversation {
		switch msg.Role {
		case RoleSystem:
			parts = append(parts, "System: "+msg.Content)
		case RoleUser:
			parts = append(parts, "User: "+msg.Content)
		case RoleAssistant:
			parts = append(parts, "Assistant: "+msg.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// chatByFlattening is the default ChatWithTools: tool definitions are ignored and
// the reply never carries a tool call.
func chatByFlattening(ctx context.Context, gen func(context.Context, string, GenerateOptions) (string, error), conversation []ChatMessage, opts ChatOptions) (ChatReply, error) {
	content, err := gen(ctx, FlattenConversation(conversation), GenerateOptions{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return ChatReply{}, err
	}
	return ChatReply{Content: content}, nil
}
