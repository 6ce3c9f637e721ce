package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()

	require.NoError(t, p.Validate())
	assert.Contains(t, p.Instructions, "Asuka Langley Soryu")
	assert.NotEmpty(t, p.EmergencyReplies)
	assert.Equal(t, "¿Qué miras, baka? ¡Escribe algo si te atreves!", p.Greeting)

	// callers must not be able to mutate the built-in list
	p.EmergencyReplies[0] = "changed"
	assert.NotEqual(t, "changed", Default().EmergencyReplies[0])
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		check   func(*testing.T, *Persona)
	}{
		{
			name: "partial document keeps defaults",
			doc:  "name: Rei\ngreeting: Hola.\n",
			check: func(t *testing.T, p *Persona) {
				assert.Equal(t, "Rei", p.Name)
				assert.Equal(t, "Hola.", p.Greeting)
				assert.Equal(t, Default().Instructions, p.Instructions)
				assert.Equal(t, Default().EmergencyReplies, p.EmergencyReplies)
			},
		},
		{
			name: "full document",
			doc: `
name: Misato
instructions: Eres Misato Katsuragi.
emergency_replies:
  - "¡Más tarde!"
  - "Ahora no."
help: Pregunta lo que quieras.
`,
			check: func(t *testing.T, p *Persona) {
				assert.Equal(t, "Eres Misato Katsuragi.", p.Instructions)
				assert.Equal(t, []string{"¡Más tarde!", "Ahora no."}, p.EmergencyReplies)
				assert.Equal(t, "Pregunta lo que quieras.", p.Help)
			},
		},
		{
			name:    "empty reply set is rejected",
			doc:     "emergency_replies: []\n",
			wantErr: true,
		},
		{
			name:    "blank reply is rejected",
			doc:     "emergency_replies:\n  - ok\n  - \"\"\n",
			wantErr: true,
		},
		{
			name:    "blank instructions are rejected",
			doc:     "instructions: \"\"\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			doc:     "name: [unclosed",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.doc))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Asuka\n"), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asuka", p.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
