package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/rsimage/config"
	"github.com/BaSui01/rsimage/types"
)

func TestBuildBody_Generic(t *testing.T) {
	api := config.DefaultImageAPIConfig()
	api.RequestSchema.Model = "sdxl"
	api.RequestSchema.Extra = map[string]any{"quality": "hd", "prompt": "overridden"}
	cfg := NewProviderConfig(api)

	body, err := BuildBody(GenerationRequest{
		Prompt:         "  a cat  ",
		NegativePrompt: "blurry",
		Width:          1920,
		Height:         1080,
		Seed:           7,
		Style:          "anime",
	}, cfg)
	require.NoError(t, err)

	assert.Equal(t, "a cat", body["prompt"])
	assert.Equal(t, "blurry", body["negative_prompt"])
	assert.Equal(t, 1920, body["width"])
	assert.Equal(t, 1080, body["height"])
	assert.Equal(t, "1920x1080", body["size"])
	assert.Equal(t, 1, body["n"])
	assert.Equal(t, 1, body["count"])
	assert.Equal(t, "url", body["response_format"])
	assert.Equal(t, "url", body["format"])
	assert.Equal(t, "text-to-image", body["type"])
	assert.Equal(t, 28, body["steps"])
	assert.Equal(t, 7.5, body["guidance"])
	assert.Equal(t, int64(7), body["seed"])
	assert.Equal(t, "anime", body["style"])
	assert.Equal(t, "sdxl", body["model"])
	assert.Equal(t, "hd", body["quality"])
}

func TestBuildBody_GenericDefaults(t *testing.T) {
	api := config.DefaultImageAPIConfig()
	api.RequestSchema = config.RequestSchemaConfig{}
	body, err := BuildBody(GenerationRequest{Prompt: "a cat", ResponseFormat: FormatBase64}, NewProviderConfig(api))
	require.NoError(t, err)

	assert.Equal(t, 1024, body["width"])
	assert.Equal(t, 1024, body["height"])
	assert.Equal(t, "1024x1024", body["size"])
	assert.Equal(t, "base64", body["response_format"])
	assert.NotContains(t, body, "negative_prompt")
	assert.NotContains(t, body, "seed")
	assert.NotContains(t, body, "style")
	assert.NotContains(t, body, "model")
}

func TestBuildBody_TaskBased(t *testing.T) {
	api := config.DefaultImageAPIConfig()
	api.Provider = "nano-banana"
	cfg := NewProviderConfig(api)
	require.Equal(t, KindTaskBased, cfg.Kind)

	body, err := BuildBody(GenerationRequest{Prompt: "a cat", NegativePrompt: "dog", Width: 512}, cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"prompt": "a cat", "type": "TEXTTOIMAGE", "numImages": 1}, body)
}

func TestBuildBody_EmptyPrompt(t *testing.T) {
	cfg := NewProviderConfig(config.DefaultImageAPIConfig())
	for _, p := range []string{"", "   ", "\n\t"} {
		_, err := BuildBody(GenerationRequest{Prompt: p}, cfg)
		assert.True(t, types.IsCode(err, types.ErrValidation), "prompt %q", p)
	}
}
