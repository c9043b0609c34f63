package viewmodel

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"
)

var frenchMonths = [...]string{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."}

// NewEngine loads the html templates under dir and registers the helpers they use.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("fcfa", FormatFCFA)
	engine.AddFunc("dateFR", FormatDate)
	engine.AddFunc("add", func(a, b int) int { return a + b })
	engine.AddFunc("deref", func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	})
	return engine
}

// FormatFCFA renders 20000 as "20 000 FCFA".
func FormatFCFA(amount int) string {
	if amount == 0 {
		return "Gratuit"
	}
	s := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String() + " FCFA"
}

// FormatDate renders a day like "5 mars 2024"; nil and zero times render empty.
func FormatDate(v any) string {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return ""
		}
		t = *x
	default:
		return ""
	}
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}
