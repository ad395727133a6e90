package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildLoanJSONSchema()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name: "full record",
			payload: `{
				"bank_name": "Акционерное общество Банк",
				"deal_date": "18-05-2024",
				"deal_type": "Иной заем",
				"loan_type": "Потребительский кредит",
				"card_usage": false,
				"loan_amount": "50000,00 RUB",
				"loan_currency": null,
				"termination_date": "31-12-9999",
				"actual_termination_date": "Н/Д",
				"loan_status": null
			}`,
		},
		{
			name:    "numeric amount",
			payload: `{"bank_name": "Банк", "loan_amount": 120000.5, "loan_currency": "RUB"}`,
		},
		{
			name:    "sparse record with nulls",
			payload: `{"bank_name": null, "deal_date": null}`,
		},
		{
			name:    "empty object",
			payload: `{}`,
		},
		{
			name:    "card_usage as string",
			payload: `{"bank_name": "Банк", "card_usage": "yes"}`,
			wantErr: true,
		},
		{
			name:    "amount as boolean",
			payload: `{"bank_name": "Банк", "loan_amount": true}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			payload: `{"bank_name": "Банк", "unexpected": 1}`,
			wantErr: true,
		},
		{
			name:    "array instead of object",
			payload: `[{"bank_name": "Банк"}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(schema, []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateJSONAgainstSchemaRejectsInvalidJSON(t *testing.T) {
	err := ValidateJSONAgainstSchema(BuildLoanJSONSchema(), []byte(`{"bank_name": `))
	require.Error(t, err)
}
