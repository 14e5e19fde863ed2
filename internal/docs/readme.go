// Package docs renders the command reference into README.md.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"text/template"

	"github.com/keshon/voice-relay/internal/command"
	"github.com/keshon/voice-relay/internal/config"
	"github.com/keshon/voice-relay/pkg/cmd"
)

// CommandSections returns one markdown section per category, ordered by
// category weight, each listing its commands by name.
func CommandSections(registry *cmd.Registry) string {
	commands := registry.GetAll()
	category := func(c cmd.Command) string {
		if meta, ok := cmd.Root(c).(command.Meta); ok {
			return meta.Category()
		}
		return ""
	}
	sort.SliceStable(commands, func(i, j int) bool {
		wi, wj := config.CategoryWeight(category(commands[i])), config.CategoryWeight(category(commands[j]))
		if wi != wj {
			return wi < wj
		}
		return commands[i].Name() < commands[j].Name()
	})

	var buf bytes.Buffer
	current := ""
	for _, c := range commands {
		cat := category(c)
		if cat != current || buf.Len() == 0 {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			current = cat
			fmt.Fprintf(&buf, "### %s\n\n", cat)
		}
		admin := ""
		if meta, ok := cmd.Root(c).(command.Meta); ok && meta.AdminOnly() {
			admin = " *(admin)*"
		}
		fmt.Fprintf(&buf, "- **/%s** %s%s\n", c.Name(), c.Description(), admin)
	}
	return buf.String()
}

// UpdateReadme executes the template at tmplPath and writes the result to outPath.
func UpdateReadme(registry *cmd.Registry, tmplPath, outPath string) error {
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("failed to parse readme template: %w", err)
	}

	data := struct {
		AppName         string
		CommandSections string
	}{
		AppName:         config.AppName,
		CommandSections: CommandSections(registry),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return fmt.Errorf("failed to render readme: %w", err)
	}
	return os.WriteFile(outPath, out.Bytes(), 0644)
}
