package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keshon/voice-relay/internal/command"
	"github.com/keshon/voice-relay/internal/tts"
	"github.com/keshon/voice-relay/pkg/cmd"
	"github.com/matryer/is"
)

func testRegistry() *cmd.Registry {
	r := cmd.NewRegistry()
	command.Register(r, nil, []tts.Voice{{ID: "ko", Label: "Korean"}})
	return r
}

func TestCommandSectionsOrder(t *testing.T) {
	is := is.New(t)
	out := CommandSections(testRegistry())

	info := strings.Index(out, "### "+command.CategoryInformation)
	voice := strings.Index(out, "### "+command.CategoryVoice)
	settings := strings.Index(out, "### "+command.CategorySettings)
	is.True(info >= 0 && voice > info && settings > voice)

	is.True(strings.Index(out, "**/join**") < strings.Index(out, "**/leave**"))
	is.True(strings.Contains(out, "**/setup**"))
	is.True(strings.Contains(out, "*(admin)*"))
}

func TestUpdateReadme(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "README.md.tmpl")
	out := filepath.Join(dir, "README.md")
	is.NoErr(os.WriteFile(tmpl, []byte("# {{.AppName}}\n\n{{.CommandSections}}"), 0644))

	is.NoErr(UpdateReadme(testRegistry(), tmpl, out))

	data, err := os.ReadFile(out)
	is.NoErr(err)
	is.True(strings.HasPrefix(string(data), "# Voice Relay"))
	is.True(strings.Contains(string(data), "**/say**"))
}

func TestUpdateReadmeMissingTemplate(t *testing.T) {
	is := is.New(t)
	err := UpdateReadme(testRegistry(), filepath.Join(t.TempDir(), "nope.tmpl"), filepath.Join(t.TempDir(), "README.md"))
	is.True(err != nil)
}
