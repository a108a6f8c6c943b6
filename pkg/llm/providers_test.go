package llm

import (
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	genai "github.com/google/generative-ai-go/genai"
)

func TestAnthropicMessagesRoleCollapse(t *testing.T) {
	msgs := anthropicMessages([]Message{
		{Role: RoleSystem, Content: "context"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleModel, Content: "earlier answer"},
		{Role: RoleAssistant, Content: "another answer"},
	})
	if len(msgs) != 4 {
		t.Fatalf("len = %d", len(msgs))
	}
	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,      // system collapses to user
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant, // model aliases assistant
		anthropic.MessageParamRoleAssistant,
	}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, want)
		}
	}
}

func TestGeminiHistoryRoles(t *testing.T) {
	history := geminiHistory([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleModel, Content: "more"},
		{Role: RoleSystem, Content: "note"},
	})
	wantRoles := []string{"user", "model", "model", "user"}
	for i, want := range wantRoles {
		if history[i].Role != want {
			t.Errorf("history %d role = %q, want %q", i, history[i].Role, want)
		}
	}
	if text, ok := history[0].Parts[0].(genai.Text); !ok || string(text) != "hi" {
		t.Errorf("part = %v", history[0].Parts[0])
	}
}

func TestGeminiSchemaConversion(t *testing.T) {
	schema := geminiSchema(ObjectSchema(map[string]Property{
		"datasetId": {Type: "string", Description: "Dataset ID"},
		"limit":     {Type: "number"},
		"deep":      {Type: "object"},
		"mode":      {Type: "string", Enum: []string{"a", "b"}},
	}, "datasetId"))

	if schema.Type != genai.TypeObject {
		t.Errorf("Type = %v", schema.Type)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "datasetId" {
		t.Errorf("Required = %v", schema.Required)
	}
	if got := schema.Properties["datasetId"].Type; got != genai.TypeString {
		t.Errorf("datasetId type = %v", got)
	}
	if got := schema.Properties["limit"].Type; got != genai.TypeNumber {
		t.Errorf("limit type = %v", got)
	}
	if got := schema.Properties["deep"].Type; got != genai.TypeObject {
		t.Errorf("deep type = %v", got)
	}
	if got := schema.Properties["mode"].Enum; len(got) != 2 {
		t.Errorf("mode enum = %v", got)
	}
	if got := schema.Properties["datasetId"].Description; got != "Dataset ID" {
		t.Errorf("description = %q", got)
	}
}

func TestGeminiTypeFallback(t *testing.T) {
	if got := geminiType("mystery"); got != genai.TypeUnspecified {
		t.Errorf("unknown type = %v", got)
	}
}
