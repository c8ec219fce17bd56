package service

import (
	"testing"

	"wacrm-bridge/internal/helper"
	"wacrm-bridge/internal/model"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(model.DefaultPhraseConfig())

	tests := []struct {
		name  string
		body  string
		want  model.InteractionType
		match bool
	}{
		{"purchase", "Muchas gracias por tu pago", model.InteractionPurchase, true},
		{"purchase shouted with quotes", `“MUCHAS  GRACIAS por tu PAGO” ¡te esperamos!`, model.InteractionPurchase, true},
		{"second purchase phrase", "Hola! Quiero darte las gracias por tu compra y tu confianza.", model.InteractionPurchase, true},
		{"proposal without accents", "Este modelo es muy demandado ¿Tienes ya toda la informacion hasta aqui para tomar la decision?", model.InteractionProposal, true},
		{"nothing", "Te escribo mañana", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Classify(helper.Normalize(tt.body))
			if ok != tt.match || got != tt.want {
				t.Errorf("Classify(%q) = %q, %v; want %q, %v", tt.body, got, ok, tt.want, tt.match)
			}
		})
	}
}

func TestClassifyPriority(t *testing.T) {
	c := NewClassifier(model.DefaultPhraseConfig())

	// both categories present: purchase is evaluated first
	body := "Este modelo es muy demandado ¿Tienes ya toda la información hasta aquí para tomar la decisión? Muchas gracias por tu pago"
	got, ok := c.Classify(helper.Normalize(body))
	if !ok || got != model.InteractionPurchase {
		t.Errorf("Expected COMPRA to win, got %q (ok=%v)", got, ok)
	}
}

func TestClassifyGraciasPorTuPago(t *testing.T) {
	cfg := model.PhraseConfig{
		Categories: []model.PhraseCategory{
			{Type: model.InteractionPurchase, Phrases: []string{"Gracias por tu pago"}},
			{Type: model.InteractionProposal, Phrases: []string{"gracias"}},
		},
	}
	c := NewClassifier(cfg)

	for _, body := range []string{"GRACIAS POR TU PAGO", "“gracias por tu pago”", "muchas  Gracias por tu pago"} {
		if got, _ := c.Classify(helper.Normalize(body)); got != model.InteractionPurchase {
			t.Errorf("Classify(%q) = %q, want COMPRA", body, got)
		}
	}
}

func TestIsGreeting(t *testing.T) {
	c := NewClassifier(model.DefaultPhraseConfig())

	for _, body := range []string{"Hola buenas", "BUEN DÍA", "quiero empezar", "Buenas tardes señor"} {
		if !c.IsGreeting(body) {
			t.Errorf("Expected %q to be a greeting", body)
		}
	}
	for _, body := range []string{"gracias", "", "buen dia"} {
		// "buen dia" lacks the accent of "buen día" and is not normalized
		if c.IsGreeting(body) {
			t.Errorf("Expected %q not to be a greeting", body)
		}
	}
}

func TestMatches(t *testing.T) {
	if Matches("hola", nil) {
		t.Error("Expected no match against empty phrase set")
	}
	if !Matches("ya realizamos el pago", []string{"x", "pago"}) {
		t.Error("Expected substring match")
	}
}
