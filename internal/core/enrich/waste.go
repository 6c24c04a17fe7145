package enrich

import (
	"regexp"
	"strings"

	"recipe-extractor/internal/core/units"
)

// wasteFamily 一組關鍵字與對應的廢棄率；whole 需要名稱含 "intero/intera"，shell 需要含 "guscio"
type wasteFamily struct {
	name     string
	pct      string
	keywords []string
	whole    bool
	shell    bool
}

var (
	fishKeywords = []string{
		"pesce", "orata", "branzino", "spigola", "salmone", "tonno", "merluzz", "sogliola", "nasello",
		"trota", "baccala", "sgombro", "sardina", "alici", "acciug", "cefalo", "rombo",
	}
	nutKeywords = []string{"mandorl", "nocciol", "noci", "pistacch", "arachid", "anacard", "pinoli"}

	// wasteFamilies 依序比對，第一個命中的家族決定廢棄率
	wasteFamilies = []wasteFamily{
		{name: "cleaned", pct: "5", keywords: []string{
			"al netto", "gia pulito", "pulito", "sbucciato", "pelato", "filetto", "filetti", "disossato",
			"senza pelle", "senza lische",
		}},
		{name: "pantry", pct: "0", keywords: []string{
			"surgelat", "pronto", "precotto", "conserva", "in scatola", "in barattolo", "passata", "pelati",
			"purea", "polpa di pomodoro", "concentrato di pomodoro", "latte", "burro", "panna", "yogurt",
			"formagg", "ricotta", "mascarpone", "mozzarella", "parmig", "grana", "pecorino", "gorgonzola",
			"uovo", "uova", "olio", "acqua", "sale", "zucchero", "farina", "cacao", "cioccolato", "lievito",
			"vanillina", "riso", "pasta", "pane", "miele", "aceto", "vino", "birra", "spezie", "pepe", "brodo",
			"amido", "fecola", "semola", "gelatina", "caffe", "the", "te", "prosciutto", "speck", "salame",
			"pancetta", "bresaola", "wurstel",
		}},
		{name: "cuts", pct: "5", keywords: []string{
			"trancio", "carpaccio", "petto", "fesa", "lombata", "macinat", "bistecc", "scalopp", "hamburger",
		}},
		{name: "whole_poultry", pct: "25", keywords: []string{
			"pollo intero", "gallina intera", "tacchino intero", "coniglio intero", "anatra intera", "faraona",
			"carcassa", "ali", "coscia", "sovracoscia", "costine", "costole",
		}},
		{name: "whole_fish", pct: "40", keywords: fishKeywords, whole: true},
		{name: "shellfish", pct: "55", keywords: []string{
			"gamber", "scampi", "crostace", "cozza", "cozze", "vongol", "mollusch", "ostrica", "capesant",
			"canestrel", "aragost", "astice",
		}},
		{name: "cephalopods", pct: "25", keywords: []string{"calamar", "seppia", "totano"}},
		{name: "octopus", pct: "15", keywords: []string{"polpo"}},
		{name: "fish", pct: "35", keywords: fishKeywords},
		{name: "meat", pct: "8", keywords: []string{
			"carne", "manzo", "vitello", "maiale", "pollo", "tacchino", "agnello", "bovin", "suin", "coniglio",
			"cervo", "salsicc",
		}},
		{name: "tubers", pct: "5", keywords: []string{"tubero", "patata", "patate", "batata", "topinambur", "manioca"}},
		{name: "artichoke", pct: "40", keywords: []string{"carciof", "asparag", "cardo"}},
		{name: "brassica", pct: "30", keywords: []string{"cavolfior", "broccol", "cavol", "verza", "cappucc", "zucca"}},
		{name: "fennel", pct: "25", keywords: []string{"finocch", "porro", "sedan", "rapa"}},
		{name: "leaves", pct: "20", keywords: []string{
			"insalata", "lattuga", "spinac", "bietol", "rucola", "basilico", "prezzemolo", "rosmarino", "salvia",
			"timo", "menta", "coriandolo", "erba cipollina", "erbette",
		}},
		{name: "vegetables", pct: "12", keywords: []string{
			"carot", "cipoll", "aglio", "zucchin", "melanzan", "peperon", "pomodor", "cetriol", "ravanell",
		}},
		{name: "mushrooms", pct: "5", keywords: []string{"fung"}},
		{name: "pineapple", pct: "45", keywords: []string{"ananas"}},
		{name: "citrus_melon", pct: "35", keywords: []string{
			"banana", "agrum", "arancia", "limone", "mandarino", "pompelmo", "melone", "anguria", "avocado",
			"mango", "papaya",
		}},
		{name: "kiwi", pct: "20", keywords: []string{"kiwi"}},
		{name: "orchard", pct: "15", keywords: []string{"mela", "pera", "pesca", "albicocc", "susin", "prugn", "cilieg", "fico"}},
		{name: "berries", pct: "5", keywords: []string{"uva", "mirtill", "lampon", "fragol", "frutti di bosco"}},
		{name: "nuts_in_shell", pct: "45", keywords: nutKeywords, shell: true},
		{name: "nuts", pct: "5", keywords: nutKeywords},
	}

	wasteNameCleaner = regexp.MustCompile(`[^a-z0-9\s]`)
)

// DefaultWastePct 沒有命中任何家族時的廢棄率
const DefaultWastePct = "5"

// EstimateWaste 依食材名稱估計廢棄率（百分比字串）；名稱為空時回傳空字串
func EstimateWaste(name string) string {
	s := normalizeWasteName(name)
	if s == "" {
		return ""
	}
	words := strings.Fields(s)
	for _, fam := range wasteFamilies {
		if fam.whole && !strings.Contains(s, "intero") && !strings.Contains(s, "intera") {
			continue
		}
		if fam.shell && !strings.Contains(s, "guscio") {
			continue
		}
		if hasKeyword(s, words, fam.keywords) {
			return fam.pct
		}
	}
	return DefaultWastePct
}

func normalizeWasteName(name string) string {
	s := wasteNameCleaner.ReplaceAllString(units.Fold(name), " ")
	return strings.Join(strings.Fields(s), " ")
}

// hasKeyword 多字關鍵字做子字串比對；單字關鍵字比對字首，三個字母以下需完整相符
func hasKeyword(s string, words, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(s, kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == kw || (len(kw) > 3 && strings.HasPrefix(w, kw)) {
				return true
			}
		}
	}
	return false
}
