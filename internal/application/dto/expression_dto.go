package dto

// EvaluateExpressionRequest body para POST /api/expressions/evaluate.
type EvaluateExpressionRequest struct {
	Expression string `json:"expression" example:"3x60+12"`
}

// EvaluateExpressionResponse resultado de una expresión válida.
type EvaluateExpressionResponse struct {
	Expression string `json:"expression"`
	Result     int64  `json:"result"`
}
