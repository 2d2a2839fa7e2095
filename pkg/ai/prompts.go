package ai

import "fmt"

const ExtractSystemPrompt = `
# Task Context
You are an expert literary analyst. You will be given a chunk of text from a book.

# Detailed Task Description & Rules
- Extract the key characters (entities) and the relationships between them.
- Focus on major characters and significant interactions.
- Use the name a character is most commonly called in the text.
- Entity type is usually "Person"; use "Location", "Organization" or another short noun when that fits better.
- Relationship type is a short label such as "friend", "enemy", "family" or "colleague".
- Descriptions are one or two sentences and only use information found in the text.
- Only add relationships whose source and target both appear in the text.

# Immediate Task Description or Request
Return the result in structured JSON format.
`

const extractUserPrompt = "Text: %s\n\nExtract entities and relationships:"

// ExtractPrompt builds the user message for one chunk.
func ExtractPrompt(chunk string) string {
	return fmt.Sprintf(extractUserPrompt, chunk)
}

const answerPrompt = `Answer the question based ONLY on the following context:
%s

Question: %s
`

// AnswerPrompt builds the retrieval-grounded question prompt.
func AnswerPrompt(context, question string) string {
	return fmt.Sprintf(answerPrompt, context, question)
}
