package document

import (
	"encoding/json"
)

const (
	// MinSkills and MaxSkills bound habilidades_clave.
	MinSkills = 3
	MaxSkills = 5

	// MaxSkillLength keeps skills to short labels.
	MaxSkillLength = 80

	// DocumentNumberPattern accepts 7-10 digits, or empty when the number
	// could not be verified.
	DocumentNumberPattern = `^([0-9]{7,10})?$`

	schemaURL = "https://intake.local/schemas/record.json"
)

// nonBlank rejects empty and whitespace-only strings.
const nonBlank = `\S`

func identitySchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"description": "Campos de una Cédula de Identidad.",
		"properties": map[string]any{
			"nombre_completo": map[string]any{
				"type":        "string",
				"pattern":     nonBlank,
				"description": "Nombre completo de la persona.",
			},
			"numero_documento": map[string]any{
				"type":        "string",
				"pattern":     DocumentNumberPattern,
				"description": "Número de Cédula de Identidad, solo dígitos (7 a 10). Vacío si anverso y reverso no coinciden.",
			},
			"fecha_nacimiento": map[string]any{
				"type":        []string{"string", "null"},
				"description": "Fecha de nacimiento, DD/MM/AAAA o similar.",
			},
			"lugar_emision": map[string]any{
				"type":        []string{"string", "null"},
				"description": "Ciudad o departamento de emisión.",
			},
		},
		"required": []string{"nombre_completo", "numero_documento"},
	}
}

func resumeSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"description": "Campos de un Currículum Vitae.",
		"properties": map[string]any{
			"nombre": map[string]any{
				"type":        "string",
				"pattern":     nonBlank,
				"description": "Nombre completo del postulante.",
			},
			"email": map[string]any{
				"type":        "string",
				"format":      "email",
				"description": "Correo electrónico principal.",
			},
			"telefono": map[string]any{
				"type":        []string{"string", "null"},
				"description": "Teléfono de contacto.",
			},
			"educacion_principal": map[string]any{
				"type":        "string",
				"pattern":     nonBlank,
				"description": "Título de educación superior más relevante.",
			},
			"ultima_experiencia": map[string]any{
				"type":        "string",
				"pattern":     nonBlank,
				"description": "Resumen de la última experiencia o proyecto relevante.",
			},
			"habilidades_clave": map[string]any{
				"type":        "array",
				"minItems":    MinSkills,
				"maxItems":    MaxSkills,
				"description": "Entre 3 y 5 habilidades técnicas o blandas, en orden de relevancia.",
				"items": map[string]any{
					"type":      "string",
					"pattern":   nonBlank,
					"maxLength": MaxSkillLength,
				},
			},
		},
		"required": []string{"nombre", "email", "educacion_principal", "ultima_experiencia", "habilidades_clave"},
	}
}

// branch ties one discriminant value to the payload keys it allows.
func branch(t DocumentType, active string) map[string]any {
	then := map[string]any{
		"properties": map[string]any{
			"datos_ci": map[string]any{"type": "null"},
			"datos_cv": map[string]any{"type": "null"},
		},
	}
	if active != "" {
		then["properties"].(map[string]any)[active] = map[string]any{"$ref": "#/$defs/" + active}
		then["required"] = []string{active}
	}
	return map[string]any{
		"if": map[string]any{
			"properties": map[string]any{"tipo_documento": map[string]any{"const": string(t)}},
		},
		"then": then,
	}
}

// Schema returns the JSON schema every extraction result must satisfy.
func Schema() map[string]any {
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id":     schemaURL,
		"title":   "RespuestaAnalisis",
		"type":    "object",
		"properties": map[string]any{
			"tipo_documento": map[string]any{
				"type":        "string",
				"enum":        []string{string(TypeIdentityCard), string(TypeResume), string(TypeUnrecognized)},
				"description": "Clasificación: 'CV', 'CI' o 'NO_IDENTIFICADO'.",
			},
			"resumen": map[string]any{
				"type":        "string",
				"pattern":     nonBlank,
				"description": "Resumen breve (máximo 4 líneas) que permita entender el documento sin revisarlo.",
			},
			"datos_cv": map[string]any{
				"description": "Lleno solo si tipo_documento es 'CV'; en otro caso null.",
			},
			"datos_ci": map[string]any{
				"description": "Lleno solo si tipo_documento es 'CI'; en otro caso null.",
			},
		},
		"required": []string{"tipo_documento", "resumen"},
		"allOf": []any{
			branch(TypeIdentityCard, "datos_ci"),
			branch(TypeResume, "datos_cv"),
			branch(TypeUnrecognized, ""),
		},
		"$defs": map[string]any{
			"datos_ci": identitySchema(),
			"datos_cv": resumeSchema(),
		},
	}
}

// SchemaJSON returns Schema as indented JSON, for embedding in instructions.
func SchemaJSON() string {
	b, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		// Schema is built from literals; this cannot fail.
		panic(err)
	}
	return string(b)
}
