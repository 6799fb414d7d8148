package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPersona = "a fullstack software engineer working on web development, cloud infrastructure and AI integration"

// LoadProfile reads the professional profile the assistant answers from.
// .json files are decoded as JSON, .yaml and .yml as YAML; other extensions
// try JSON first and fall back to YAML.
func LoadProfile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read profile")
	}

	profile := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &profile)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &profile)
	default:
		if err = json.Unmarshal(data, &profile); err != nil {
			profile = map[string]any{}
			err = yaml.Unmarshal(data, &profile)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode profile %s", path)
	}
	return profile, nil
}

// BuildSystemPrompt renders the system prompt for persona, embedding profile
// as indented JSON. A nil profile yields a prompt without reference data.
func BuildSystemPrompt(persona string, profile map[string]any) (string, error) {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n\n", persona)
	if len(profile) > 0 {
		raw, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "encode profile")
		}
		b.WriteString("Your professional background is described by this JSON document:\n")
		b.Write(raw)
		b.WriteString("\n\n")
		b.WriteString("Answer only from the information in that document and never invent details it does not contain. ")
		b.WriteString("If a question is unrelated to your professional background, say politely that you can only discuss your professional experience.\n\n")
	}
	b.WriteString("Keep answers concise, conversational and professional, in complete sentences. Only go into detail when asked to.")
	return b.String(), nil
}
