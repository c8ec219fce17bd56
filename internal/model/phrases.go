package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PhraseCategory lists the trigger phrases for one interaction type.
// Categories are evaluated in file order; the first match wins.
type PhraseCategory struct {
	Type    InteractionType `yaml:"type"`
	Phrases []string        `yaml:"phrases"`
}

type PhraseConfig struct {
	Greetings  []string         `yaml:"greetings"`
	Categories []PhraseCategory `yaml:"categories"`
}

func DefaultPhraseConfig() PhraseConfig {
	return PhraseConfig{
		Greetings: []string{"hola", "buenas", "iniciar", "empezar", "buen día", "buenas tardes"},
		Categories: []PhraseCategory{
			{
				Type: InteractionPurchase,
				Phrases: []string{
					"Muchas gracias por tu pago",
					"Quiero darte las gracias por tu compra y tu confianza",
				},
			},
			{
				Type: InteractionProposal,
				Phrases: []string{
					"Este modelo es muy demandado ¿Tienes ya toda la información hasta aquí para tomar la decisión?",
				},
			},
		},
	}
}

// LoadPhraseConfig reads a YAML phrase file. An empty path yields the
// defaults, and so does any section the file leaves out.
func LoadPhraseConfig(path string) (PhraseConfig, error) {
	cfg := DefaultPhraseConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PhraseConfig{}, fmt.Errorf("read phrases file: %w", err)
	}

	var fileCfg PhraseConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return PhraseConfig{}, fmt.Errorf("parse phrases file: %w", err)
	}

	if len(fileCfg.Greetings) > 0 {
		cfg.Greetings = fileCfg.Greetings
	}
	if len(fileCfg.Categories) > 0 {
		for i, c := range fileCfg.Categories {
			if c.Type == "" {
				return PhraseConfig{}, fmt.Errorf("phrases file: category %d has no type", i)
			}
			if len(c.Phrases) == 0 {
				return PhraseConfig{}, fmt.Errorf("phrases file: category %s has no phrases", c.Type)
			}
		}
		cfg.Categories = fileCfg.Categories
	}

	return cfg, nil
}
