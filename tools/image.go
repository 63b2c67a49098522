package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/foundry-9/quilltap/chat"
	"github.com/foundry-9/quilltap/llm"
)

// ImageSink stores a generated image and returns a URL or reference the chat
// can embed.
type ImageSink interface {
	SaveImage(ctx context.Context, chatID string, img llm.GeneratedImage) (string, error)
}

// RegisterImageGeneration wires the generate_image tool to an image-capable
// provider. The prompt's speaker placeholder is resolved from the calling
// participant before the vendor sees it.
func (r *Registry) RegisterImageGeneration(provider llm.Provider, model string, sink ImageSink) {
	r.Register("generate_image", func(ctx context.Context, args map[string]any, execCtx chat.ExecutionContext) (any, error) {
		prompt, _ := args["prompt"].(string)
		if strings.TrimSpace(prompt) == "" {
			return nil, fmt.Errorf("generate_image requires a non-empty prompt")
		}
		if execCtx.Participant != "" {
			prompt = strings.ReplaceAll(prompt, "{{user}}", execCtx.Participant)
		}

		resp, err := provider.GenerateImage(ctx, &llm.ImageRequest{
			Prompt: prompt,
			Model:  model,
			Count:  1,
		})
		if err != nil {
			return nil, fmt.Errorf("image generation failed: %w", err)
		}
		if len(resp.Images) == 0 {
			return nil, fmt.Errorf("provider returned no images")
		}

		img := resp.Images[0]
		if sink != nil {
			url, err := sink.SaveImage(ctx, execCtx.ChatID, img)
			if err != nil {
				return nil, fmt.Errorf("failed to store generated image: %w", err)
			}
			return map[string]any{
				"url":      url,
				"mimeType": img.MimeType,
				"message":  fmt.Sprintf("Image generated for prompt: %q", prompt),
			}, nil
		}

		return map[string]any{
			"mimeType": img.MimeType,
			"bytes":    len(img.Data),
			"message":  fmt.Sprintf("Image generated for prompt: %q", prompt),
		}, nil
	})
}
