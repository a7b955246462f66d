package image

import (
	"fmt"
	"strings"

	"github.com/BaSui01/rsimage/types"
)

const (
	defaultTaskType    = "TEXTTOIMAGE"
	defaultGenericType = "text-to-image"
	defaultSide        = 1024
	defaultSteps       = 28
	defaultGuidance    = 7.5
)

// BuildBody builds the provider-specific request body.
//
// Task-based providers get the minimal {prompt, type, numImages}. Everything
// else gets the generic shape plus aliases (size, format, count, steps,
// guidance, seed, style) understood by most backends. Extra defaults from
// request_schema are merged first so explicit fields always win.
func BuildBody(req GenerationRequest, cfg ProviderConfig) (map[string]any, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, types.NewError(types.ErrValidation, "prompt is required")
	}

	d := cfg.Defaults
	count := firstPositive(req.Count, d.N, 1)

	if cfg.Kind == KindTaskBased {
		return map[string]any{
			"prompt":    prompt,
			"type":      firstNonEmpty(d.Type, defaultTaskType),
			"numImages": count,
		}, nil
	}

	width := firstPositive(req.Width, d.Width, defaultSide)
	height := firstPositive(req.Height, d.Height, defaultSide)
	format := firstNonEmpty(string(req.ResponseFormat), d.ResponseFormat, string(FormatURL))

	body := make(map[string]any, len(d.Extra)+16)
	for k, v := range d.Extra {
		body[k] = v
	}

	body["prompt"] = prompt
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		body["negative_prompt"] = neg
	}
	body["width"] = width
	body["height"] = height
	body["n"] = count
	body["response_format"] = format
	body["type"] = firstNonEmpty(d.Type, defaultGenericType)
	body["size"] = fmt.Sprintf("%dx%d", width, height)
	body["format"] = format
	body["count"] = count
	body["steps"] = firstPositive(req.Steps, d.Steps, defaultSteps)
	body["guidance"] = firstPositiveFloat(req.Guidance, d.Guidance, defaultGuidance)
	if req.Seed != 0 {
		body["seed"] = req.Seed
	}
	if style := strings.TrimSpace(req.Style); style != "" {
		body["style"] = style
	}
	if d.Model != "" {
		body["model"] = d.Model
	}
	return body, nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
