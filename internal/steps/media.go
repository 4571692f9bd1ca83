package steps

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/parser"
)

// MediaExecutor derives the journal's visual-asset requirements and writes
// the image files. No image-generation service is wired in yet, so the files
// are flat-color placeholders sized for print; the requirements artifact
// carries everything a real generator needs.
//
// Media failure never fails the enclosing job: the pipeline downgrades it to
// a notice and falls back to WritePlaceholderMedia.
type MediaExecutor struct {
	deps Deps
}

func (e *MediaExecutor) ID() model.StepID { return model.StepMedia }

func (e *MediaExecutor) Run(ctx context.Context, prefs model.Preferences, store *artifact.Store, report ProgressFunc) (Result, error) {
	title := journalTitle(prefs, store)

	report(10, "Planning visual assets")

	res, err := e.deps.Parser.Parse(ctx, e.deps.caller(e.mockResponse(prefs)), parser.Request{
		SystemPrompt: systemPrompt(prefs),
		Prompt:       e.buildPrompt(prefs, title),
		Dir:          store.Dir(artifact.CategoryTranscripts),
		Filename:     transcript(model.StepMedia, ""),
		ExpectedKeys: []string{"style", "images.0.filename", "images.0.description"},
		Flatten:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("media planning call failed: %w", err)
	}

	report(40, "Saving image requirements")

	reqPath, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameImageRequirements, title, prefs.Theme, ".json"),
		res.Value.Interface())
	if err != nil {
		return nil, err
	}

	out := Result{artifact.NameImageRequirements: reqPath}

	images := res.Value.Get("images")
	for i := 0; i < images.Len(); i++ {
		req := images.Index(i)
		name := artifact.Slug(req.Get("filename").Str())
		if name == "" {
			name = fmt.Sprintf("image-%d", i+1)
		}
		report(40+(i+1)*50/max(images.Len(), 1), fmt.Sprintf("Generating %s", name))

		data, err := placeholderPNG()
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", name, err)
		}
		path, err := store.WriteFile(artifact.CategoryMedia, name+".png", data)
		if err != nil {
			return nil, err
		}
		out[name] = path
	}

	return out, nil
}

func (e *MediaExecutor) buildPrompt(prefs model.Preferences, title string) string {
	return fmt.Sprintf(`Plan the visual assets for the guided journal "%s" (theme: %s).
List 3 to 5 images: a cover illustration plus interior accents, each with a
file name, a description usable as an image-generation prompt, and where in
the journal it belongs.

Output as JSON: {"style": "...", "images": [{"filename": "...", "description": "...", "placement": "..."}]}`,
		title, prefs.Theme)
}

func (e *MediaExecutor) mockResponse(prefs model.Preferences) string {
	return fmt.Sprintf(`{"style": "minimal line art", "images": [{"filename": "cover", "description": "Soft abstract illustration evoking %s", "placement": "cover"}, {"filename": "divider", "description": "Thin botanical divider", "placement": "section breaks"}]}`,
		prefs.Theme)
}

// WritePlaceholderMedia writes the fallback assets used when the media step
// fails. Kept as a package function so the pipeline can invoke it from its
// failure path.
func WritePlaceholderMedia(store *artifact.Store) (Result, error) {
	data, err := placeholderPNG()
	if err != nil {
		return nil, err
	}
	path, err := store.WriteFile(artifact.CategoryMedia, "placeholder-cover.png", data)
	if err != nil {
		return nil, err
	}
	return Result{"placeholder-cover": path}, nil
}

// placeholderPNG renders a small neutral-tone PNG.
func placeholderPNG() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fill := color.RGBA{R: 0xe8, G: 0xe4, B: 0xdc, A: 0xff}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
