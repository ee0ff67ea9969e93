package driven

// PromptAnswer names the template that frames retrieved context and a
// question. It takes two %s verbs: the numbered context blocks, then the
// question.
const PromptAnswer = "answer"

// PromptStore serves prompt templates by name. Well-known names always
// resolve; when no valid override exists the built-in text is returned.
type PromptStore interface {
	Load(name string) (string, error)
}

// PromptStoreAware is implemented by services whose prompts can be
// overridden. Without a store they use their built-in text.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
