package prompt

import "fmt"

// InsightPrompt frames topic for modern theological voices.
func InsightPrompt(topic string) string {
	return fmt.Sprintf(`Considering the perspectives of prominent Christian theologians and voices from the 19th, 20th, and 21st centuries (such as C.S. Lewis, Karl Barth, Dietrich Bonhoeffer, Tim Keller, John Stott, etc.), please provide a comprehensive and well-reasoned response to the following topic. 

When possible, cite specific sources or references to support your points. Topic: "%s"

Please format your response in a clear, structured manner with theological insights and practical applications.`, topic)
}

func SummaryPrompt(text, reference string) string {
	return fmt.Sprintf("Please provide a concise summary of the following biblical passage: %s. Do not add any conversational fluff before or after the summary. Just provide the summary.\n\n%s", reference, text)
}

func ChapterCommentaryPrompt(text, reference string, perspective Perspective) string {
	return fmt.Sprintf("%s\n\nHere is the full chapter of %s for context:\n\n%s", perspective.Instruction(), reference, text)
}

func SelectionCommentaryPrompt(excerpt, reference string, perspective Perspective) string {
	return fmt.Sprintf("%s\n\nHere is the selected text from %s:\n\n\"%s\"", perspective.Instruction(), reference, excerpt)
}

func ChatPrompt(reference, text, message string) string {
	return fmt.Sprintf("The user is currently studying %s. The full text of the chapter is provided here for your context:\n\n%s\n\nUser question: %s", reference, text, message)
}
