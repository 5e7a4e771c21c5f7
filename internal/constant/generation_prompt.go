package constant

// Generation prompts. Every prompt opens with a "Task:" line naming what it
// asks for; model output expected as JSON is decoded and validated by the caller.
const (
	NoteEnrichmentDecisionPromptV1 = `Task: NOTE_ENRICHMENT_DECISION
You are preparing study notes from a lecture transcript.

%s

Decide whether this excerpt starts a new topic that deserves its own header.
Answer "Yes" when the excerpt introduces a distinct concept, "No" when it only
continues the previous explanation.

Excerpt:
"""
%s
"""

Respond with JSON only: {"needs_title": "Yes"} or {"needs_title": "No"}`

	NoteTitlePromptV1 = `Task: NOTE_TITLE
Write a short header (max 8 words) for the study note built from the excerpt below.

%s

If a picture would genuinely help a student understand it, also propose an
image search query of at most 6 words. Otherwise leave image_query empty.

Excerpt:
"""
%s
"""

Respond with JSON only: {"title": "...", "image_query": "..."}`

	NoteParagraphPromptV1 = `Task: NOTE_PARAGRAPH
Turn the excerpt into one well structured study note paragraph in Markdown.

%s
Section header: %s

Study plan so far:
%s

Rules:
- Only use facts from the excerpt
- Use bold for key terms, bullet lists when the excerpt enumerates
- Do not repeat the header
- No preamble, output the Markdown only

Excerpt:
"""
%s
"""`

	FlashcardGenerationPromptV1 = `Task: FLASHCARD_GENERATION
Create at least 5 flashcards from the excerpt below.

%s

Study plan:
%s

Do NOT repeat any of these existing card fronts:
%s

Each card: "front" (question), "back" (answer), "difficulty" (easy|medium|hard),
"status" ("new"), optional "tags" (array of short strings).

Excerpt:
"""
%s
"""

Respond with JSON only: {"flashcards": [{"front": "...", "back": "...", "difficulty": "easy", "status": "new", "tags": []}]}`

	FlashcardImageDecisionPromptV1 = `Task: FLASHCARD_IMAGE_DECISION
You may call one tool: image_search(query). Call it only when a picture makes
this flashcard clearly easier to remember. Queries have at most 6 words.

Front: %s
Back: %s

Respond with JSON only: {"tool": "image_search", "query": "..."} or {"tool": "none"}`

	QuizPlanPromptV1 = `Task: QUIZ_PLAN
Plan one quiz question for the excerpt below.

%s

Choose the question format that best tests understanding:
short_answer, multiple_choice or true_false.
%s

Excerpt:
"""
%s
"""

Respond with JSON only: {"quiz_type": "...", "plan": "what the question should test"}`

	QuizShortAnswerPromptV1 = `Task: QUIZ_SHORT_ANSWER
Write one short answer question.

%s
Question plan: %s

Excerpt:
"""
%s
"""

Respond with JSON only: {"question": "...", "answer": "...", "explanation": "..."}`

	QuizMultipleChoicePromptV1 = `Task: QUIZ_MULTIPLE_CHOICE
Write one multiple choice question with exactly 4 options and one correct answer.

%s
Question plan: %s

Excerpt:
"""
%s
"""

Respond with JSON only: {"question": "...", "options": ["...", "...", "...", "..."], "answer_index": 0, "explanation": "..."}`

	QuizTrueFalsePromptV1 = `Task: QUIZ_TRUE_FALSE
Write one true or false statement.

%s
Question plan: %s

Excerpt:
"""
%s
"""

Respond with JSON only: {"question": "...", "answer_bool": true, "explanation": "..."}`
)
