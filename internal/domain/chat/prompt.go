package chat

import "strings"

// DefaultSystemPrompt sets the assistant's scope and tone.
const DefaultSystemPrompt = `You are an AI customer support agent for a small e-commerce store. Help customers with questions about products, orders, shipping, returns, refunds and store policies.

You can explain store processes, answer from the FAQ knowledge base and help with order tracking questions. You cannot process orders, refunds or payments, access customer accounts or change orders; direct those requests to the support team.

Be friendly, concise and professional. If a question is unrelated to the store, politely say you can only help with store, product, order, shipping and return questions. If you do not know something, say so instead of guessing.`

const (
	greetingReply = "Hi there! 👋 I'm here to help you with questions about our store, products, orders, shipping, returns, and more. What can I help you with today?"
	apologyReply  = "I apologize, but I'm experiencing technical difficulties right now. Please try again in a moment, or contact our support team directly."
	fallbackReply = "I apologize, but I couldn't generate a response. Please try again."
)

func buildPrompt(systemPrompt, faqContext string, history []Message, question string) []LLMMessage {
	system := systemPrompt
	if strings.TrimSpace(faqContext) != "" {
		system += "\n\nRelevant FAQ knowledge:\n" + faqContext +
			"\n\nUse this information to answer accurately. If it does not cover the question, give general guidance and be clear about the limitation."
	}
	messages := make([]LLMMessage, 0, len(history)+2)
	messages = append(messages, LLMMessage{Role: "system", Content: system})
	for _, msg := range history {
		role := "user"
		if msg.Sender == SenderAI {
			role = "assistant"
		}
		messages = append(messages, LLMMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, LLMMessage{Role: "user", Content: question})
	return messages
}
