package services

import (
	"fmt"
	"strings"

	"github.com/arcana-labs/arcana-backend/internal/platform/openai"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

const readerSystemPrompt = "You are an experienced tarot reader. You speak with warmth and precision, " +
	"ground every statement in the cards actually drawn, and never invent cards that are not in the spread."

func describeCards(cards []types.DrawnCard) string {
	var b strings.Builder
	for i, c := range cards {
		orientation := "upright"
		if c.IsReversed {
			orientation = "reversed"
		}
		if c.Position != nil {
			fmt.Fprintf(&b, "%d. %s (%s) in position %q: %s\n", i+1, c.Name, orientation, c.Position.Name, c.Position.Description)
		} else {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, c.Name, orientation)
		}
	}
	return b.String()
}

func analysisMessages(cards []types.DrawnCard, spread *types.Spread, query string) []openai.Message {
	var b strings.Builder
	b.WriteString("Analyze the structure of this tarot spread. Focus on relationships between positions, ")
	b.WriteString("elemental balance, and the overall arc. Do not interpret individual cards yet.\n\n")
	if spread != nil {
		fmt.Fprintf(&b, "Spread: %s. %s\n\n", spread.Name, spread.Description)
	}
	b.WriteString("Cards:\n")
	b.WriteString(describeCards(cards))
	if strings.TrimSpace(query) != "" {
		fmt.Fprintf(&b, "\nThe querent asked: %q\n", query)
	}
	return []openai.Message{
		{Role: "system", Content: readerSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func interpretationMessages(cards []types.DrawnCard, spread *types.Spread, analysis, query string) []openai.Message {
	var b strings.Builder
	b.WriteString("Interpret each card in its position, card by card, using the spread analysis below.\n\n")
	if spread != nil {
		fmt.Fprintf(&b, "Spread: %s\n\n", spread.Name)
	}
	b.WriteString("Cards:\n")
	b.WriteString(describeCards(cards))
	fmt.Fprintf(&b, "\nSpread analysis:\n%s\n", analysis)
	if strings.TrimSpace(query) != "" {
		fmt.Fprintf(&b, "\nThe querent asked: %q\n", query)
	}
	return []openai.Message{
		{Role: "system", Content: readerSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func responseMessages(cards []types.DrawnCard, interpretation, query string) []openai.Message {
	var b strings.Builder
	b.WriteString("Weave the card interpretations below into a single flowing reading addressed directly ")
	b.WriteString("to the querent. Close with one piece of practical guidance.\n\n")
	b.WriteString("Cards:\n")
	b.WriteString(describeCards(cards))
	fmt.Fprintf(&b, "\nInterpretations:\n%s\n", interpretation)
	if strings.TrimSpace(query) != "" {
		fmt.Fprintf(&b, "\nThe querent asked: %q\n", query)
	}
	return []openai.Message{
		{Role: "system", Content: readerSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// groundedChatMessages frames the conversation with the session's completed
// reading so follow-up answers stay anchored to the cards actually drawn.
func groundedChatMessages(cards []types.DrawnCard, interpretation, response string, history []openai.Message) []openai.Message {
	var b strings.Builder
	b.WriteString("You already gave the querent the reading below. Answer their follow-up questions in the ")
	b.WriteString("context of that reading.\n\n")
	b.WriteString("Cards:\n")
	b.WriteString(describeCards(cards))
	if interpretation != "" {
		fmt.Fprintf(&b, "\nInterpretations:\n%s\n", interpretation)
	}
	if response != "" {
		fmt.Fprintf(&b, "\nReading given:\n%s\n", response)
	}
	out := make([]openai.Message, 0, len(history)+2)
	out = append(out,
		openai.Message{Role: "system", Content: readerSystemPrompt},
		openai.Message{Role: "assistant", Content: b.String()},
	)
	return append(out, history...)
}

// plainChatMessages is the ordinary conversational path for sessions without
// a completed reading.
func plainChatMessages(history []openai.Message) []openai.Message {
	out := make([]openai.Message, 0, len(history)+1)
	out = append(out, openai.Message{Role: "system", Content: readerSystemPrompt})
	return append(out, history...)
}
