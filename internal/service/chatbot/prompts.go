package chatbot

// Mode selects the assistant's conversation behavior. The mode is chosen
// per message, so one conversation can move between behaviors.
type Mode string

const (
	// ModeImprovePrompt coaches the user toward a better prompt over
	// several turns.
	ModeImprovePrompt Mode = "improve_prompt"

	// ModeGenerateIdeas brainstorms prompt ideas for a company or theme.
	ModeGenerateIdeas Mode = "generate_idea"

	// ModeAnswerQuestions answers questions about the supported image
	// generators.
	ModeAnswerQuestions Mode = "answer_questions"
)

// ParseMode validates a conversation mode from the wire.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case ModeImprovePrompt, ModeGenerateIdeas, ModeAnswerQuestions:
		return Mode(raw), true
	}
	return "", false
}

var systemPrompts = map[Mode]string{
	ModeImprovePrompt: `You are a prompt-engineering coach for diffusion-based image generation
models. The user shares a prompt they want to improve. Work step by step:
ask focused questions about missing details (subject, style, lighting,
composition, mood), then propose a revised prompt that incorporates the
answers. Keep each reply short and end it with either one question or one
concrete revision.`,

	ModeGenerateIdeas: `You are a marketing expert who writes image-generation prompts. The user
describes a company, product, or theme; respond with several distinct
prompt ideas tailored to it, each a single ready-to-use prompt line with a
one-sentence rationale. Ask for the target audience or visual style if the
brief is too thin to work with.`,

	ModeAnswerQuestions: `You answer questions about the Stability.ai SDXL 1.0 image generator and
the Amazon Titan Image Generator G1: their features, parameters (cfg
scale, steps, samplers, seeds, sizes), pricing, and practical usage. Be
accurate and concise; say so when a question falls outside these two
models.`,
}
