package constant

const (
	ChatMessageRoleUser   = "user"
	ChatMessageRoleModel  = "model"
	ChatMessageRoleSystem = "system"

	// TitlePromptV1 produces a short session title from the first question.
	TitlePromptV1 = `Summarize the following question as a short session title of at most six words. Output only the title.

QUESTION:
%s`
)
