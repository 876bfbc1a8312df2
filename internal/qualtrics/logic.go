package qualtrics

import "fmt"

// The platform expresses conditions as nested "boolean expression" trees
// keyed by stringified indices. The two shapes below are the only ones the
// tool needs: "choice j of question Q was selected" (quota counting) and
// "quota Q has not been met" (choice visibility).

// ChoiceSelectedLogic builds the condition that a given selectable choice of
// a question was picked by the respondent.
func ChoiceSelectedLogic(questionID string, choice int) map[string]any {
	locator := fmt.Sprintf("q://%s/SelectableChoice/%d", questionID, choice)
	return map[string]any{
		"0": map[string]any{
			"0": map[string]any{
				"LogicType":             "Question",
				"QuestionID":            questionID,
				"QuestionIsInLoop":      "no",
				"ChoiceLocator":         locator,
				"Operator":              "Selected",
				"QuestionIDFromLocator": questionID,
				"LeftOperand":           locator,
				"Type":                  "Expression",
				"Description":           fmt.Sprintf("choice %d of %s selected", choice, questionID),
			},
			"Type": "If",
		},
		"Type":   "BooleanExpression",
		"inPage": false,
	}
}

// QuotaNotMetLogic builds the condition that a quota still has room,
// attachable to a choice as display logic.
func QuotaNotMetLogic(quotaID string) map[string]any {
	return map[string]any{
		"0": map[string]any{
			"0": map[string]any{
				"LogicType":   "Quota",
				"QuotaID":     quotaID,
				"QuotaType":   "Simple",
				"Operator":    "QuotaNotMet",
				"LeftOperand": fmt.Sprintf("qo://%s/QuotaCount", quotaID),
				"Type":        "Expression",
				"Description": fmt.Sprintf("quota %s not met", quotaID),
			},
			"Type": "If",
		},
		"Type":   "BooleanExpression",
		"inPage": false,
	}
}
