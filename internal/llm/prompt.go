// Package llm wraps the generative model: free-text answers for brokers,
// constrained field extraction for the quote flow, the system prompt, and
// parsing of the control markers the model may append to a reply.
package llm

import (
	"strings"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/intent"
	"github.com/tbourn/go-broker-assistant/internal/knowledge"
)

// FallbackMessage is sent when the model fails or returns nothing.
const FallbackMessage = "Desculpe, ocorreu um problema ao processar sua mensagem. Por favor, tente novamente em alguns instantes."

// UnknownAnswer is the exact sentence the model must use when it lacks the
// information.
const UnknownAnswer = "Não tenho essa informação no momento. Posso transferir para um especialista da assessoria. Deseja que eu faça isso?"

// Prompt is everything needed for one answer.
type Prompt struct {
	ContactName string
	Intent      intent.Intent
	// Product is empty for general questions.
	Product knowledge.Product
	Facts   []string
	// History is chronological and excludes UserText.
	History  []domain.Message
	UserText string
}

func intentContext(in intent.Intent) string {
	switch in {
	case intent.Quote:
		return "O corretor está interessado em fazer uma cotação. Colete as informações necessárias com objetividade."
	case intent.Handoff:
		return "O corretor quer falar com um humano. Confirme que você vai transferir a conversa."
	case intent.Greeting:
		return "O corretor está iniciando uma conversa. Responda de forma acolhedora e pergunte como pode ajudar."
	default:
		return "Responda à pergunta do corretor com base nos fatos abaixo e no seu conhecimento sobre seguros."
	}
}

// SystemPrompt renders the system message. The routing label is turned into
// an instruction and never shown verbatim.
func SystemPrompt(p Prompt) string {
	var b strings.Builder
	b.WriteString("Você é a Issy, assistente virtual da assessoria de seguros. Você ajuda corretores de seguros a responder dúvidas sobre produtos, coberturas e aceitação.\n\n")
	b.WriteString("Corretor atual: " + p.ContactName + "\n")
	b.WriteString(intentContext(p.Intent) + "\n")

	if p.Product != "" {
		if s, ok := knowledge.Catalog[p.Product]; ok {
			b.WriteString("\nProduto em foco: " + s.Name + "\n")
		}
	}
	if len(p.Facts) > 0 {
		b.WriteString("\nFatos da assessoria (use somente estes para detalhes de cobertura, exclusão e aceitação):\n")
		for _, f := range p.Facts {
			b.WriteString("- " + f + "\n")
		}
	}

	b.WriteString(`
Regras de comportamento:
- Responda SEMPRE em português brasileiro, tom profissional e conciso
- NUNCA invente valores de R$, coberturas específicas ou regras de aceitação; itens marcados [ASSESSORIA] devem ser confirmados com a assessoria
- Se não souber responder, diga exatamente: "` + UnknownAnswer + `"
- Se o corretor pedir para falar com um humano ou aceitar a transferência, inclua [TRANSFER] no final da resposta
- Foque em: produtos de seguro (saúde, auto, vida, residencial, empresarial), coberturas, exclusões, aceitação
- Recuse educadamente qualquer assunto não relacionado a seguros
- Nunca responda como se fosse um humano; você é a Issy, assistente virtual`)
	return b.String()
}
