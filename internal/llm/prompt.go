package llm

import "strings"

// BuildSystemPrompt composes the system message for credit-report parsing:
// the label-to-field mapping, sentinel conventions, and strict JSON-only
// output rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an expert financial data parser that extracts loan information from Russian credit reports.",
		"The input text is a flattened table: field labels appear in the text followed by their values at consistent positional offsets.",
		"Field mapping (Russian label -> JSON field):",
		`"Полное наименование" -> bank_name;`,
		`"Дата сделки" -> deal_date;`,
		`"Тип сделки" -> deal_type;`,
		`"Вид займа (кредита)" -> loan_type;`,
		`"Использование платежной карты" -> card_usage;`,
		`"Сумма и валюта" -> loan_amount;`,
		`"Дата прекращения по условиям" -> termination_date;`,
		`"Дата фактического прекращения" -> actual_termination_date.`,
		"Dates use DD-MM-YYYY.",
		`Keep the combined amount format exactly as printed, e.g. "50000,00 RUB".`,
		`Keep sentinel values as printed: report "31-12-9999" and "Н/Д" verbatim, do not interpret them.`,
		`For booleans map "Да" to true and "Нет" to false.`,
		"Preserve original formatting for bank names (keep Russian characters).",
		"If a field cannot be determined, use null.",
		"Return ONLY valid JSON that matches the provided JSON Schema. No prose, no markdown.",
	}
	return strings.Join(parts, " ")
}
