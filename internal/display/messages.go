package display

type messages struct {
	empty          string
	noTreatments   string
	results        string
	variation      string
	success        string
	total          string
	conversion     string
	significant    string
	notSignificant string
	confident      string
	notConfident   string
}

var catalog = map[string]messages{
	"eng": {
		empty:          "The test has no variations yet.",
		noTreatments:   "The test has no treatments to compare.",
		results:        "Results",
		variation:      "Variation",
		success:        "Success",
		total:          "Total",
		conversion:     "Conversion",
		significant:    "treatment is better at level %g",
		notSignificant: "no significant difference at level %g",
		confident:      "treatment is better with probability %s",
		notConfident:   "not enough evidence, probability treatment is better %s",
	},
	"rus": {
		empty:          "В тесте пока нет вариантов.",
		noTreatments:   "В тесте нет вариантов для сравнения.",
		results:        "Результаты",
		variation:      "Вариант",
		success:        "Успехи",
		total:          "Всего",
		conversion:     "Конверсия",
		significant:    "тестовый вариант лучше на уровне %g",
		notSignificant: "значимой разницы на уровне %g нет",
		confident:      "тестовый вариант лучше с вероятностью %s",
		notConfident:   "недостаточно данных, вероятность превосходства %s",
	},
}

// messagesFor falls back to english for unknown languages
func messagesFor(lang string) messages {
	if m, ok := catalog[lang]; ok {
		return m
	}
	return catalog["eng"]
}
