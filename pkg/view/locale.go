package view

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

// Locale holds every user-facing string the views produce.
type Locale struct {
	Tag            language.Tag
	Today          string
	Tomorrow       string
	Months         [12]string
	Categories     map[model.Category]string
	Priorities     map[model.Priority]string
	EmptyPending   string
	EmptyCompleted string
	SearchPrompt   string
	NoResults      string
	Celebrations   []string
	DeletePrompt   string
	ClearPrompt    string
	// Headings is keyed by view name.
	Headings map[string]string
	// Statuses is keyed by sync status.
	Statuses map[string]string

	// dayFirst renders "2 de jan." instead of "Jan 2".
	dayFirst bool
}

var English = Locale{
	Tag:      language.English,
	Today:    "Today",
	Tomorrow: "Tomorrow",
	Months:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	Categories: map[model.Category]string{
		model.CategoryWork:     "Work",
		model.CategoryPersonal: "Personal",
		model.CategoryStudy:    "Study",
		model.CategoryHealth:   "Health",
		model.CategoryShopping: "Shopping",
		model.CategoryOther:    "Other",
	},
	Priorities: map[model.Priority]string{
		model.PriorityHigh:   "High",
		model.PriorityMedium: "Medium",
		model.PriorityLow:    "Low",
	},
	EmptyPending:   "No pending tasks. Add a new one!",
	EmptyCompleted: "No completed tasks yet.",
	SearchPrompt:   "Type something to search your tasks.",
	NoResults:      "No results found.",
	Celebrations: []string{
		"Task completed! 🎉",
		"Congrats! One more down! ✨",
		"Excellent work! 🌟",
		"Mission accomplished! 🚀",
		"You're on a roll! 💪",
	},
	DeletePrompt: "Are you sure you want to delete this task?",
	ClearPrompt:  "Are you sure you want to delete all completed tasks?",
	Headings: map[string]string{
		"home":      "Overview",
		"tasks":     "Pending tasks",
		"completed": "Completed tasks",
		"search":    "Search",
	},
	Statuses: map[string]string{
		"connecting":          "Connecting...",
		"synced":              "Synced",
		"offline":             "Offline (using local data)",
		"error-saved-locally": "Save failed (saved locally)",
	},
}

var Portuguese = Locale{
	Tag:      language.BrazilianPortuguese,
	Today:    "Hoje",
	Tomorrow: "Amanhã",
	Months:   [12]string{"jan.", "fev.", "mar.", "abr.", "mai.", "jun.", "jul.", "ago.", "set.", "out.", "nov.", "dez."},
	Categories: map[model.Category]string{
		model.CategoryWork:     "Trabalho",
		model.CategoryPersonal: "Pessoal",
		model.CategoryStudy:    "Estudos",
		model.CategoryHealth:   "Saúde",
		model.CategoryShopping: "Compras",
		model.CategoryOther:    "Outros",
	},
	Priorities: map[model.Priority]string{
		model.PriorityHigh:   "Alta",
		model.PriorityMedium: "Média",
		model.PriorityLow:    "Baixa",
	},
	EmptyPending:   "Nenhuma tarefa pendente. Adicione uma nova tarefa!",
	EmptyCompleted: "Nenhuma tarefa concluída ainda.",
	SearchPrompt:   "Digite algo para pesquisar suas tarefas.",
	NoResults:      "Nenhum resultado encontrado.",
	Celebrations: []string{
		"Tarefa concluída! 🎉",
		"Parabéns! Mais uma conquista! ✨",
		"Excelente trabalho! 🌟",
		"Missão cumprida! 🚀",
		"Você está arrasando! 💪",
	},
	DeletePrompt: "Tem certeza que deseja excluir esta tarefa?",
	ClearPrompt:  "Tem certeza que deseja excluir todas as tarefas concluídas?",
	Headings: map[string]string{
		"home":      "Início",
		"tasks":     "Tarefas pendentes",
		"completed": "Tarefas concluídas",
		"search":    "Pesquisar",
	},
	Statuses: map[string]string{
		"connecting":          "Conectando...",
		"synced":              "Sincronizado",
		"offline":             "Offline (usando dados locais)",
		"error-saved-locally": "Erro ao salvar (salvo localmente)",
	},
	dayFirst: true,
}

var supported = []Locale{English, Portuguese}

var matcher = language.NewMatcher([]language.Tag{English.Tag, Portuguese.Tag})

// LocaleFor picks the closest supported locale for a BCP 47 tag such as
// "pt-BR" or "en_US". Unknown or empty tags get English.
func LocaleFor(tag string) Locale {
	t, err := language.Parse(tag)
	if err != nil {
		return English
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return English
	}
	return supported[idx]
}

// CategoryLabel falls back to the personal label like the rest of the app
// falls back to the personal category.
func (l Locale) CategoryLabel(c model.Category) string {
	if s, ok := l.Categories[c]; ok {
		return s
	}
	return l.Categories[model.CategoryPersonal]
}

func (l Locale) PriorityLabel(p model.Priority) string {
	if s, ok := l.Priorities[p]; ok {
		return s
	}
	return l.Priorities[model.PriorityMedium]
}

// ShortDate renders a localized month/day without the year.
func (l Locale) ShortDate(d model.Date) string {
	month := l.Months[d.Month-1]
	if l.dayFirst {
		return fmt.Sprintf("%d de %s", d.Day, month)
	}
	return fmt.Sprintf("%s %d", month, d.Day)
}
