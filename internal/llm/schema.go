package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildLoanJSONSchema returns the loan field map schema (draft 2020-12
// subset) as a generic map. It is sent to the model as an output constraint
// and used locally to reject malformed responses. Every field is nullable:
// presence rules (bank_name required, amount/currency pairing) are business
// rules the normalizer owns, not shape rules.
func BuildLoanJSONSchema() map[string]any {
	nullable := func(kinds ...string) map[string]any {
		return map[string]any{"type": append(kinds, "null")}
	}
	props := map[string]any{
		FieldBankName:  nullable("string"),
		FieldDealDate:  nullable("string"),
		FieldDealType:  nullable("string"),
		FieldLoanType:  nullable("string"),
		FieldCardUsage: nullable("boolean"),
		// Combined "50000,00 RUB" string or a bare number.
		FieldLoanAmount:            nullable("string", "number"),
		FieldLoanCurrency:          nullable("string"),
		FieldTerminationDate:       nullable("string"),
		FieldActualTerminationDate: nullable("string"),
		FieldLoanStatus:            nullable("string"),
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
