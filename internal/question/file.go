package question

import (
	"encoding/json"
	"fmt"
	"os"
)

// bankFile accepts both the legacy Spanish layout
//
//	{"preguntas": [{"id", "habilidad", "pregunta", "opciones", "respuesta_correcta"}]}
//
// and the English layout
//
//	{"questions": [{"id", "skill", "prompt", "options", "answer"}]}.
type bankFile struct {
	Preguntas []legacyQuestion `json:"preguntas"`
	Questions []bankQuestion   `json:"questions"`
}

type legacyQuestion struct {
	ID                int      `json:"id"`
	Habilidad         string   `json:"habilidad"`
	Pregunta          string   `json:"pregunta"`
	Opciones          []string `json:"opciones"`
	RespuestaCorrecta string   `json:"respuesta_correcta"`
}

type bankQuestion struct {
	ID      int      `json:"id"`
	Skill   string   `json:"skill"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// LoadFile reads a question bank file.
func LoadFile(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

// Parse decodes a question bank document.
func Parse(data []byte) ([]Question, error) {
	var f bankFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if f.Preguntas == nil && f.Questions == nil {
		return nil, fmt.Errorf("parse question bank: no \"questions\" or \"preguntas\" array")
	}

	out := make([]Question, 0, len(f.Preguntas)+len(f.Questions))
	for _, p := range f.Preguntas {
		out = append(out, Question{
			ID:            p.ID,
			Skill:         p.Habilidad,
			Prompt:        p.Pregunta,
			Options:       p.Opciones,
			CorrectAnswer: p.RespuestaCorrecta,
		})
	}
	for _, q := range f.Questions {
		out = append(out, Question{
			ID:            q.ID,
			Skill:         q.Skill,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectAnswer: q.Answer,
		})
	}
	return out, nil
}
