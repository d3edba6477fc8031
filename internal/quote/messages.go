package quote

import (
	"fmt"
	"strings"
)

var cityList = "• " + strings.Join(Cities, "\n• ")

var stepPrompts = map[Step]string{
	StepLives: "🏥 *Cotacao de Plano de Saude*\n\nOla! Vou te ajudar a montar uma cotacao rapidinho. 😊\n\n" +
		"Primeiro, *quantas vidas* (pessoas) serao incluidas no plano?\n\n_(Ex: 1, 3, 10)_",
	StepAgeRange: "Perfeito! Agora me diz a *faixa etaria* dos beneficiarios.\n\n_(Ex: 20-30, 35-45, 50-60)_",
	StepCity:     "Otimo! Qual a *cidade* para a cotacao?\n\nCidades disponiveis:\n" + cityList,
	StepPlanType: "Entendido! Qual o *tipo de acomodacao* desejado?\n\n1️⃣ *Enfermaria*\n2️⃣ *Apartamento*\n\n_(Responda com 1, 2 ou o nome)_",
}

// retryMessages escalate: polite re-ask, stricter format hint, offer a human.
var retryMessages = map[Step][3]string{
	StepLives: {
		"Hmm, nao entendi bem. Quantas pessoas serao incluidas no plano? _(Ex: 2)_",
		"Me diz somente o numero de vidas, por exemplo: *4*",
		"Nao consegui identificar o numero de vidas. Quer pular essa pergunta e falar com um consultor?",
	},
	StepAgeRange: {
		"Nao entendi a faixa etaria. Qual a faixa de idade dos beneficiarios? _(Ex: 25-35)_",
		"Me diz somente a faixa etaria no formato *XX-YY*, por exemplo: *30-40*",
		"Tive dificuldade em identificar a faixa etaria. Quer pular e falar com um consultor?",
	},
	StepCity: {
		"Essa cidade nao esta disponivel para cotacao. As opcoes sao:\n" + cityList,
		"Por favor, escolha uma das cidades listadas acima. Qual delas e mais proxima?",
		"Nao consegui identificar a cidade. Quer pular e falar com um consultor?",
	},
	StepPlanType: {
		"Nao entendi o tipo de acomodacao. Responda *1* para Enfermaria ou *2* para Apartamento.",
		"Escolha somente *1* (Enfermaria) ou *2* (Apartamento).",
		"Nao consegui identificar o tipo de plano. Quer pular e falar com um consultor?",
	},
	StepConfirm: {
		"Nao entendi sua resposta. Responda *sim* para confirmar ou *nao* para corrigir os dados.",
		"Por favor, responda somente *sim* ou *nao*.",
		"Tive dificuldade em interpretar sua resposta. Quer falar com um consultor?",
	},
}

const genericRetry = "Nao entendi. Pode repetir?"

// Prompt returns the question asked when step becomes current. Confirm and
// done are built from the state and have no static prompt.
func Prompt(step Step) string { return stepPrompts[step] }

// RetryMessage returns the text for the attempt-th consecutive failure at
// step. Attempts past the third reuse the last tier.
func RetryMessage(step Step, attempt int) string {
	tiers, ok := retryMessages[step]
	if !ok {
		return genericRetry
	}
	i := attempt
	if i > len(tiers) {
		i = len(tiers)
	}
	if i < 1 {
		i = 1
	}
	return tiers[i-1]
}

func planLabel(p PlanType) string {
	if p == PlanApartamento {
		return "Apartamento"
	}
	return "Enfermaria"
}

// ConfirmationMessage summarizes the collected fields. s must have all four.
func ConfirmationMessage(s State) string {
	return "Vou confirmar os dados da cotacao:\n\n" +
		fmt.Sprintf("*Vidas:* %d\n", deref(s.Lives)) +
		fmt.Sprintf("*Faixa etaria:* %s anos\n", derefS(s.AgeRange)) +
		fmt.Sprintf("*Cidade:* %s\n", derefS(s.City)) +
		fmt.Sprintf("*Acomodacao:* %s\n\n", planLabel(derefP(s.PlanType))) +
		"Esta tudo correto? Responda *sim* para gerar a cotacao ou *nao* para corrigir."
}

// QuoteMessage renders the priced quote for a completed state.
func QuoteMessage(s State) string {
	lives, ageRange, city, plan := deref(s.Lives), derefS(s.AgeRange), derefS(s.City), derefP(s.PlanType)
	total := MonthlyTotal(lives, ageRange, plan)

	var cov strings.Builder
	for i, c := range HealthPlan.Coverages {
		if i > 0 {
			cov.WriteByte('\n')
		}
		cov.WriteString("- " + c)
	}

	return fmt.Sprintf("🏥 *Plano de Saude - Cotacao*\n\n"+
		"*Operadora:* %s\n*Plano:* %s\n*Acomodacao:* %s\n\n"+
		"✅ *Coberturas incluidas:*\n%s\n\n"+
		"⏳ *Carencias:*\n- 30 dias: urgencias e emergencias\n- 180 dias: cirurgias eletivas\n- 300 dias: partos\n\n"+
		"💰 *Valor estimado:* R$ %d/mes\n"+
		"_(%d vida(s) | faixa %s anos | %s | %s)_\n\n"+
		"---\nQuer cotar outro plano? Ou prefere falar com um consultor?",
		HealthPlan.Operator, HealthPlan.Name, planLabel(plan),
		cov.String(),
		total,
		lives, ageRange, city, planLabel(plan))
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefS(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefP(p *PlanType) PlanType {
	if p == nil {
		return PlanEnfermaria
	}
	return *p
}
