package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/healthrec/internal/domain"
)

const refineMaxTokens = 300

const questionsTemplate = `Based on the following user query and recommendation about health and community services:
User Query: %q
Recommendation: %q

Generate a list of 2-3 additional questions that would help gather more specific information from the user to enhance the recommendation process. The questions should be aimed at clarifying the user's needs, preferences, or circumstances.

Format the output as a JSON array of strings, with each question as a separate item. Respond with the JSON array only, no surrounding text.`

const improveTemplate = `Query: %q
Recommendation: %q
Additional information from the user:
%s
Based on the query, recommendation, and additional information provided, create an improved and more detailed query to help in providing better recommendations for health and community services. Focus on the specific needs, preferences, and circumstances revealed in the user's answers. Ensure the improved query is comprehensive and tailored to the user's situation.
Improved query:`

// GenerateQuestions asks the model for clarifying questions about a query
// and its current recommendation. The model must answer with a JSON array
// of strings; anything else is a refinement failure.
func (s *Service) GenerateQuestions(ctx context.Context, query, recommendation string) ([]string, error) {
	prompt := fmt.Sprintf(questionsTemplate, query, recommendation)

	answer, err := s.chat.Complete(ctx,
		[]domain.ChatMessage{domain.UserMessage(prompt)}, refineMaxTokens, 0)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w: %w", domain.ErrRefinementFailed, err)
	}

	questions, err := parseQuestions(answer)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w: %w", domain.ErrRefinementFailed, err)
	}
	return questions, nil
}

// ImproveQuery rewrites the query using the user's answers to the
// clarifying questions. Questions with blank answers are skipped.
func (s *Service) ImproveQuery(ctx context.Context, query string, questions, answers []string, recommendation string) (string, error) {
	pairs := make([]string, 0, len(questions))
	for i, q := range questions {
		if i >= len(answers) || strings.TrimSpace(answers[i]) == "" {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", q, answers[i]))
	}

	prompt := fmt.Sprintf(improveTemplate, query, recommendation, strings.Join(pairs, "\n"))

	improved, err := s.chat.Complete(ctx,
		[]domain.ChatMessage{domain.UserMessage(prompt)}, refineMaxTokens, 0)
	if err != nil {
		return "", fmt.Errorf("improve query: %w: %w", domain.ErrRefinementFailed, err)
	}
	return strings.TrimSpace(improved), nil
}

// parseQuestions strictly decodes a JSON array of strings, tolerating a
// fenced code block around it.
func parseQuestions(answer string) ([]string, error) {
	cleaned := strings.TrimSpace(answer)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("response is not a JSON array of strings: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("response contains no questions")
	}
	return questions, nil
}
