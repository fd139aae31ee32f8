// Package tts synthesizes speech clips from text.
//
// Clips are written as mp3 files into a folder, ready to be served to a
// cast device over http.
package tts

import (
	"context"
	"os"
	"strings"

	htgotts "github.com/hegedustibor/htgo-tts"
	"github.com/pkg/errors"
)

// Synthesizer converts text to an audio clip on disk.
type Synthesizer interface {
	// Synthesize writes a clip named `name` and returns its path.
	Synthesize(ctx context.Context, text, name string) (string, error)
	Language() string
}

// language codes the speech endpoint spells differently
var langOverride = map[string]string{
	"cz": "cs",
	"gr": "el",
	"se": "sv",
}

// Google synthesizes speech through the Google Translate TTS endpoint.
type Google struct {
	speech   htgotts.Speech
	language string
}

func NewGoogle(folder, language string) (*Google, error) {
	if language == "" {
		language = "en"
	}
	if override, ok := langOverride[language]; ok {
		language = override
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, errors.Wrap(err, "creating speech folder")
	}
	return &Google{
		speech:   htgotts.Speech{Folder: folder, Language: language},
		language: language,
	}, nil
}

func (self *Google) Language() string {
	return self.language
}

func (self *Google) Synthesize(ctx context.Context, text, name string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty message")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := self.speech.CreateSpeechFile(text, name)
	if err != nil {
		return "", errors.Wrap(err, "synthesizing speech")
	}
	// an empty file means the synthesis silently failed
	fi, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "synthesizing speech")
	}
	if fi.Size() == 0 {
		os.Remove(path)
		return "", errors.New("synthesized file empty")
	}
	return path, nil
}
