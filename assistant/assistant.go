// Package assistant proxies visitor questions to the Gemini text model.
//
// Every call is an independent round trip: only the current prompt and the
// fixed system instruction are sent, never earlier turns.
package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"excursion/models"
)

// Fixed replies shown in the chat widget.
const (
	NotConfiguredReply = "Désolé, la clé API n'est pas configurée. Je ne peux pas répondre pour le moment."
	EmptyReply         = "Je n'ai pas pu générer de réponse. Veuillez réessayer."
	FailureReply       = "Une erreur est survenue lors de la communication avec l'assistant. Veuillez vérifier votre connexion."
)

// SystemInstruction is the persona and rules sent with every prompt.
const SystemInstruction = `Tu es un guide touristique expert et chaleureux du Sénégal, travaillant pour "Senegal Excursion".
Ton but est d'aider les touristes à planifier leurs visites et suggérer des excursions.

Règles:
1. Sois toujours poli, accueillant et enthousiaste.
2. Mets en avant les services de chauffeur privé.
3. Les destinations phares sont : Dakar/Gorée, Sine-Saloum, Fathala, Réserve de Bandia, Mbour, Village.
4. Si on te demande des prix, invite l'utilisateur à contacter le chauffeur via WhatsApp pour un devis.
5. Tes réponses doivent être concises (max 3 paragraphes).`

// Generator produces text for a single prompt.
type Generator interface {
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// Proxy answers chat prompts. A nil generator means no API key is configured.
type Proxy struct {
	generator Generator
	logger    *zap.Logger
}

func NewProxy(generator Generator, logger *zap.Logger) *Proxy {
	return &Proxy{generator: generator, logger: logger}
}

// Ask returns the assistant reply or one of the fixed fallback strings.
func (p *Proxy) Ask(ctx context.Context, prompt string) string {
	text, _ := p.answer(ctx, prompt)
	return text
}

// Reply wraps Ask as a model chat message.
func (p *Proxy) Reply(ctx context.Context, prompt string) models.ChatMessage {
	text, failed := p.answer(ctx, prompt)
	return models.ChatMessage{Role: models.ChatRoleModel, Text: text, IsError: failed}
}

func (p *Proxy) answer(ctx context.Context, prompt string) (string, bool) {
	const op = "assistant.Ask"
	if p.generator == nil {
		return NotConfiguredReply, true
	}

	text, err := p.generator.Generate(ctx, SystemInstruction, prompt)
	if err != nil {
		p.logger.Error("gemini request failed", zap.String("op", op), zap.Error(err))
		return FailureReply, true
	}
	if strings.TrimSpace(text) == "" {
		return EmptyReply, false
	}
	return text, false
}
