// Package vision provides the outbound vision-language model interface used
// by the element extractor, including the OpenAI-compatible HTTP client, the
// retry policy and the element taxonomy prompt.
package vision

import (
	"context"
)

// Caller performs one vision-model inference: an image plus a text prompt in,
// free-form response text out. Implementations must be safe for concurrent
// use; one call is made per page from the worker pool.
type Caller interface {
	Call(ctx context.Context, imagePNG []byte, prompt string) (string, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, imagePNG []byte, prompt string) (string, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, imagePNG []byte, prompt string) (string, error) {
	return f(ctx, imagePNG, prompt)
}

// SystemPrompt is sent as the system message on every inference call.
const SystemPrompt = "You are an AI assistant specialized in document layout analysis."

// ElementPrompt asks the model to locate and classify every visual element
// on a page image. The model is expected to answer with a JSON array of
// objects carrying a bbox_2d field with four numbers and a type drawn from
// the listed taxonomy.
const ElementPrompt = `Locate every content element in this document page image and output a JSON array.
Each entry must be an object with:
  - "bbox_2d": [x1, y1, x2, y2] pixel coordinates of the element's bounding box
  - "type": one of "text", "image", "table", "vector", "line"
  - "label": a short description of the element (optional)
Output only the JSON array.`

// TableCheckPrompt is the cheap yes/no pre-check question asked before table
// detection when the pre-check fast path is enabled.
const TableCheckPrompt = "Does this page image contain any tables? Answer only yes or no."
