package evaluator

import "fmt"

const evaluationSystemPrompt = `You are a certified IELTS writing examiner. Score the candidate's essay against the official IELTS Writing Task 2 band descriptors.

Respond with a JSON object using exactly these keys:
{
  "band_score": "overall band as a string, e.g. \"6.5\"",
  "task_response": "one short paragraph on task response",
  "coherence_cohesion": "one short paragraph on coherence and cohesion",
  "lexical_resource": "one short paragraph on lexical resource",
  "grammatical_range": "one short paragraph on grammatical range and accuracy",
  "feedback": "two or three sentences of overall feedback with concrete suggestions"
}

Band scores use half-band steps from 1.0 to 9.0. Be strict but fair.`

const sampleEssaySystemPrompt = `You are a certified IELTS writing tutor. Write model essays that demonstrate the requested band level. Respond with the essay text only, no preamble.`

func buildEvaluationPrompt(questionText, essay string) string {
	return fmt.Sprintf("Task prompt:\n%s\n\nCandidate essay:\n%s", questionText, essay)
}

func buildSamplePrompt(questionText, band string) string {
	return fmt.Sprintf("Task prompt:\n%s\n\nWrite a sample essay that would score band %s.", questionText, band)
}
