package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"contractor-erp/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

type AgentService interface {
	InterpretAction(ctx context.Context, naturalLanguage, openInvoices, stockItems string) (*core.ActionProposal, error)
}

type Agent struct {
	client *openai.Client
}

func NewAgent(apiKey string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client}
}

// InterpretAction turns a natural language instruction into a typed ledger
// action proposal, or a clarification request when the input is ambiguous.
// The proposal is normalized and validated before it is returned; execution
// requires separate user confirmation.
func (a *Agent) InterpretAction(ctx context.Context, naturalLanguage, openInvoices, stockItems string) (*core.ActionProposal, error) {
	prompt := fmt.Sprintf(`You are an assistant for an engineering contracting company.
Your goal is to interpret an instruction in natural language and propose exactly one ledger action.
Rules:
1. Supported actions: record_payment (against an open invoice), record_stock_movement (in, out, or adjustment of a stock item).
2. Use ONLY invoice numbers and item codes from the lists below.
3. Amounts and quantities must be exact decimal strings (e.g. "1500.00").
4. A payment must never exceed the invoice's outstanding balance shown below.
5. An out movement must never exceed the item's on-hand quantity shown below.
6. If the instruction is ambiguous or references unknown records, respond with action "clarification" and a question.
7. Provide a confidence score (0.0-1.0) and explain your reasoning.

Open invoices:
%s

Stock items:
%s

Instruction: %s`, openInvoices, stockItems, naturalLanguage)

	schemaStruct := generateSchema()
	schemaJSON, err := json.Marshal(schemaStruct)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "ledger_action_proposal",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A proposed payment or stock movement, or a clarification request"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var proposal core.ActionProposal
	if err := json.Unmarshal([]byte(content), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	proposal.Normalize()
	if err := proposal.Validate(); err != nil {
		return nil, fmt.Errorf("proposal validation failed: %w", err)
	}

	return &proposal, nil
}

func generateSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v core.ActionProposal
	return reflector.Reflect(v)
}
