// Package knowledge holds the curated insurance facts Issy is allowed to
// state, keyword-based product detection, and a small retrieval index that
// picks the facts most relevant to a broker's question.
//
// Values marked [ASSESSORIA] are placeholders the brokerage must confirm;
// prices are never part of the catalog.
package knowledge

import (
	"strings"

	"github.com/tbourn/go-broker-assistant/internal/utils"
)

// Product is an insurance line.
type Product string

const (
	Saude       Product = "saude"
	Auto        Product = "auto"
	Vida        Product = "vida"
	Residencial Product = "residencial"
	Empresarial Product = "empresarial"
)

// Sheet is the fact sheet for one product.
type Sheet struct {
	Name        string
	Description string
	Coverages   []string
	Exclusions  []string
	Acceptance  []string
	Notes       []string
}

// Lines returns every fact of the sheet prefixed with its section, one per
// entry. The description comes first.
func (s Sheet) Lines() []string {
	out := make([]string, 0, 1+len(s.Coverages)+len(s.Exclusions)+len(s.Acceptance)+len(s.Notes))
	out = append(out, s.Name+": "+s.Description)
	for _, c := range s.Coverages {
		out = append(out, s.Name+" - cobertura: "+c)
	}
	for _, c := range s.Exclusions {
		out = append(out, s.Name+" - exclusao: "+c)
	}
	for _, c := range s.Acceptance {
		out = append(out, s.Name+" - aceitacao: "+c)
	}
	for _, c := range s.Notes {
		out = append(out, s.Name+" - observacao: "+c)
	}
	return out
}

// Catalog is the built-in fact base.
var Catalog = map[Product]Sheet{
	Saude: {
		Name:        "Plano de Saúde",
		Description: "Cobertura para despesas médicas, hospitalares e ambulatoriais, incluindo internações, cirurgias e consultas conforme o plano contratado.",
		Coverages: []string{
			"Consultas com clínicos gerais e especialistas",
			"Internação hospitalar em enfermaria ou apartamento, conforme o plano",
			"Cirurgias eletivas e de emergência previstas no rol da ANS",
			"Exames laboratoriais e de imagem como raio-X, tomografia e ressonância",
			"Pronto-socorro e urgências médicas",
			"Tratamentos de quimioterapia e radioterapia",
		},
		Exclusions: []string{
			"Tratamentos estéticos e cirurgias plásticas não reparadoras",
			"Medicamentos de uso contínuo fora da internação",
			"Procedimentos experimentais ou não reconhecidos pelo CFM",
			"Internação em clínicas de repouso, com cobertura psiquiátrica limitada por plano",
		},
		Acceptance: []string{
			"Exige declaração de saúde e pode exigir exames admissionais, dependendo da seguradora",
			"Doenças preexistentes declaradas podem ter cobertura parcial temporária ou carência estendida [ASSESSORIA: regras por seguradora]",
			"Faixa etária e número de dependentes impactam o preço [ASSESSORIA: tabela atualizada]",
		},
		Notes: []string{
			"Mensalidades e carências variam por seguradora e rede credenciada; consulte a tabela atualizada com a assessoria",
			"A ANS regula os planos individuais e familiares; planos coletivos empresariais seguem regras próprias",
		},
	},
	Auto: {
		Name:        "Seguro Auto",
		Description: "Proteção para veículos contra colisão, roubo, incêndio e responsabilidade civil a terceiros, para carros de passeio, utilitários e frotas.",
		Coverages: []string{
			"Colisão com outros veículos ou objetos fixos (cobertura compreensiva)",
			"Roubo e furto total ou parcial do veículo",
			"Incêndio acidental ou criminoso",
			"Responsabilidade civil facultativa (RCF) para danos materiais e corporais a terceiros",
			"Assistência 24h com guincho, pane seca, chaveiro e troca de pneu",
			"Carro reserva em caso de sinistro, conforme a apólice",
		},
		Exclusions: []string{
			"Condução por motorista sem CNH válida ou compatível com o veículo",
			"Danos em competições ou rachas",
			"Desgaste natural e falhas mecânicas sem relação com sinistro",
			"Sinistros sob efeito de álcool ou substâncias ilícitas",
		},
		Acceptance: []string{
			"Perfil do condutor principal (idade, CEP, uso do veículo) impacta diretamente o preço",
			"Rastreador ou bloqueador ativo pode dar desconto no prêmio [ASSESSORIA: desconto por seguradora]",
			"Histórico de sinistros do proprietário é consultado [ASSESSORIA: impacto por seguradora]",
		},
		Notes: []string{
			"Prêmio e franquia variam por modelo, ano, perfil do condutor e coberturas; consulte a tabela atualizada",
			"Frotas acima de certo tamanho podem ter apólice coletiva com condições diferenciadas [ASSESSORIA: critérios por seguradora]",
		},
	},
	Vida: {
		Name:        "Seguro de Vida",
		Description: "Proteção financeira para os beneficiários em caso de morte do segurado, com coberturas adicionais possíveis para invalidez, doenças graves e auxílio funeral.",
		Coverages: []string{
			"Morte por qualquer causa, natural ou acidental",
			"Morte acidental com capital adicional, conforme a apólice",
			"Invalidez permanente total ou parcial por acidente",
			"Doenças graves como câncer, infarto e AVC, conforme a lista da apólice",
			"Auxílio funeral para o segurado e familiares diretos",
		},
		Exclusions: []string{
			"Suicídio nos primeiros 2 anos de vigência",
			"Morte decorrente de guerra declarada ou terrorismo, salvo cobertura específica",
			"Invalidez preexistente não declarada",
			"Doenças preexistentes não declaradas na contratação",
		},
		Acceptance: []string{
			"Declaração pessoal de saúde (DPS) é obrigatória; capitais altos podem exigir exames [ASSESSORIA: limites por seguradora]",
			"Idade e estado de saúde impactam a aceitação e o prêmio [ASSESSORIA: faixas etárias por seguradora]",
		},
		Notes: []string{
			"Capital segurado e prêmio variam por seguradora, idade e coberturas; consulte a tabela atualizada",
			"O beneficiário é indicado na proposta e pode ser alterado depois por aditivo",
		},
	},
	Residencial: {
		Name:        "Seguro Residencial",
		Description: "Proteção para casas e apartamentos, próprios ou alugados, contra danos à estrutura, roubo de conteúdo e responsabilidade civil.",
		Coverages: []string{
			"Incêndio, explosão e queda de raio na estrutura",
			"Roubo e furto qualificado de bens e eletrodomésticos",
			"Danos elétricos por variação de tensão",
			"Quebra de vidros, espelhos e mármores",
			"Responsabilidade civil a terceiros, como vazamentos para vizinhos",
			"Assistência 24h com encanador, eletricista e chaveiro",
		},
		Exclusions: []string{
			"Danos causados por obras ou reformas feitas pelo segurado",
			"Infiltrações graduais e umidade preexistente",
			"Furto simples sem arrombamento, conforme a apólice",
			"Guerra, motins ou fenômenos naturais não previstos na apólice",
		},
		Acceptance: []string{
			"Valores do imóvel e do conteúdo devem ser declarados corretamente para evitar subseguro",
			"Imóveis desocupados por mais de 60 dias seguidos podem ter restrições [ASSESSORIA: prazo por seguradora]",
		},
		Notes: []string{
			"Prêmio varia com localização, tipo de construção, valor do imóvel e coberturas; consulte a tabela atualizada",
			"Inquilinos podem segurar o conteúdo mesmo sem serem proprietários",
		},
	},
	Empresarial: {
		Name:        "Seguro Empresarial",
		Description: "Proteção para estabelecimentos comerciais de qualquer porte, cobrindo patrimônio, responsabilidade civil e interrupção de negócios.",
		Coverages: []string{
			"Incêndio, explosão e queda de raio nas instalações",
			"Roubo e furto qualificado de equipamentos, estoque e mobiliário",
			"Danos elétricos em equipamentos de informática e industriais",
			"Responsabilidade civil por danos a clientes ou terceiros",
			"Lucros cessantes por interrupção temporária após sinistro",
			"Vidros, letreiros e fachadas",
		},
		Exclusions: []string{
			"Greves, tumultos ou manifestações, salvo cobertura específica",
			"Mercadorias perecíveis em câmaras frias fora da cobertura padrão",
			"Danos por negligência comprovada nos processos",
			"Sinistros fora do endereço declarado na apólice",
		},
		Acceptance: []string{
			"CNPJ ativo e descrição da atividade são obrigatórios",
			"Atividades de alto risco como postos de combustível exigem vistoria prévia [ASSESSORIA: critérios por seguradora]",
			"Faturamento anual pode limitar a cobertura de lucros cessantes [ASSESSORIA: limites por seguradora]",
		},
		Notes: []string{
			"Prêmio e coberturas variam por atividade, localização, faturamento e riscos; consulte a tabela atualizada com a assessoria",
			"Empresas com várias unidades podem contratar apólice global com desconto [ASSESSORIA: condições por seguradora]",
		},
	},
}

// detection order matters: "plano de saude empresarial" is saude, and
// "seguro de vida empresarial" is empresarial.
var detectors = []struct {
	product  Product
	keywords []string
}{
	{Saude, []string{"saude", "plano de saude", "medico", "hospitalar"}},
	{Empresarial, []string{"empresarial", "empresa", "negocio", "comercial", "cnpj"}},
	{Auto, []string{"auto", "automovel", "carro", "veiculo", "frota"}},
	{Vida, []string{"vida", "morte", "funeral", "seguro de vida"}},
	{Residencial, []string{"residencial", "casa", "apartamento", "imovel", "residencia"}},
}

// DetectProduct returns the first product whose keywords appear in text.
// Matching is case- and accent-insensitive. ok is false for general
// questions.
func DetectProduct(text string) (Product, bool) {
	folded := utils.Fold(text)
	for _, d := range detectors {
		for _, k := range d.keywords {
			if strings.Contains(folded, k) {
				return d.product, true
			}
		}
	}
	return "", false
}

// Products lists the catalog in detection order.
func Products() []Product {
	out := make([]Product, len(detectors))
	for i, d := range detectors {
		out[i] = d.product
	}
	return out
}
