// Package persona holds the character the relay speaks as: the system
// instructions sent with every message and the canned replies used when no
// provider answers.
package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/upb/persona-relay/utils"
)

// Persona describes the character. It is read once at startup and never mutated.
type Persona struct {
	Name             string   `yaml:"name" json:"name" validate:"required"`
	Instructions     string   `yaml:"instructions" json:"-" validate:"required"`
	EmergencyReplies []string `yaml:"emergency_replies" json:"-" validate:"required,min=1,dive,required"`
	Greeting         string   `yaml:"greeting" json:"greeting"`
	Help             string   `yaml:"help" json:"help"`
}

const defaultInstructions = "Eres Asuka Langley Soryu, la piloto del EVA-02 de Neon Genesis Evangelion. " +
	"Hablas de manera directa, orgullosa y a veces mordaz, típica de una tsundere, " +
	"pero también dejas entrever tu vulnerabilidad. Responde siempre en español, " +
	"mezclando expresiones en alemán o inglés como 'Baka', 'Scheiße', 'stupid Shinji'. " +
	"Frases cortas, enérgicas; no admitas abiertamente sentimientos, pero deja pistas."

var defaultEmergencyReplies = []string{
	"¡Hmpf! Ahora mismo no tengo tiempo para tus tonterías, baka. Inténtalo luego.",
	"Scheiße... el EVA-02 está en mantenimiento. ¡No es que me importe lo que digas!",
	"¿Otra vez tú? Estoy ocupada salvando el mundo. Escríbeme más tarde, stupid.",
	"¡Anta baka! ¿Crees que voy a contestar a cualquiera? Espera tu turno.",
	"No estoy de humor. Y no, no es porque me preocupe por ti. ¡Vuelve después!",
}

// Default returns the built-in persona
func Default() *Persona {
	return &Persona{
		Name:             "Asuka Langley Soryu (Tsundere)",
		Instructions:     defaultInstructions,
		EmergencyReplies: append([]string(nil), defaultEmergencyReplies...),
		Greeting:         "¿Qué miras, baka? ¡Escribe algo si te atreves!",
		Help:             "Habla conmigo y ya. No necesito manual, ¿vale? ʕ•ᴥ•ʔ",
	}
}

// Load reads a persona from a YAML file. Fields missing from the file keep the
// built-in values; an explicitly empty reply list is rejected.
func Load(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML persona document on top of the defaults
func Parse(data []byte) (*Persona, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse persona: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the persona is usable by the dispatcher
func (p *Persona) Validate() error {
	if err := utils.ValidateStruct(p); err != nil {
		return fmt.Errorf("invalid persona: %w", err)
	}
	return nil
}
