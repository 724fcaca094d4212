package prompt

import (
	"context"
	"fmt"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/models"
)

const systemTemplate = "{system_prompt}\n\n" +
	"Company analysis context:\n{company_context}\n\n" +
	"Comparison dataset context:\n{dataset_context}\n\n" +
	"Current market information:\n{search_context}\n\n" +
	"Investment analysis instructions:\n{analysis_instructions}"

// Input is everything one turn's prompt is built from.
type Input struct {
	Company  *models.Company
	Match    *models.DatasetRecord
	Snapshot *dataset.Snapshot
	Search   SearchResult
	History  []*schema.Message
	Message  string
}

// Builder assembles the layered prompt: system block, prior turns, then the
// current user message.
type Builder struct {
	persona    string
	provenance Provenance
	tmpl       einoprompt.ChatTemplate
}

func NewBuilder(persona string, prov Provenance) *Builder {
	if persona == "" {
		persona = Persona
	}
	return &Builder{
		persona:    persona,
		provenance: prov,
		tmpl: einoprompt.FromMessages(schema.FString,
			schema.SystemMessage(systemTemplate),
			schema.MessagesPlaceholder("messages", true),
			schema.UserMessage("{current_message}"),
		),
	}
}

// Variables returns the template variables for in.
func (b *Builder) Variables(in Input) map[string]any {
	size := in.Snapshot.Len()
	history := in.History
	if history == nil {
		history = []*schema.Message{}
	}
	return map[string]any{
		"system_prompt":         b.persona,
		"company_context":       CompanyContext(in.Company, in.Match, size),
		"dataset_context":       BenchmarkContext(in.Snapshot, b.provenance),
		"search_context":        SearchContext(in.Company, in.Search),
		"analysis_instructions": AnalysisInstructions(in.Company, size),
		"messages":              history,
		"current_message":       in.Message,
	}
}

func (b *Builder) Build(ctx context.Context, in Input) ([]*schema.Message, error) {
	msgs, err := b.tmpl.Format(ctx, b.Variables(in))
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return msgs, nil
}
